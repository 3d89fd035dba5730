package mdblog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/eringen/mdblog/markdown"
	"github.com/eringen/mdblog/posts"
)

// DefaultConfigFile is read by LoadConfig when MDBLOG_CONFIG is unset.
const DefaultConfigFile = "mdblog.yaml"

// SiteConfig holds all configuration for an mdblog site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD and the feed

	Addr       string `yaml:"addr"`        // Listen address (default ":3000")
	ContentDir string `yaml:"content_dir"` // Directory of <slug>.md files (default "content")
	StaticDir  string `yaml:"static_dir"`  // User static assets (default "public")

	Env      string `yaml:"env"`       // "production" or "development" (default)
	LogLevel string `yaml:"log_level"` // zerolog level name (default "info")

	CodeStyle     string `yaml:"code_style"`     // chroma style for code blocks (default "github")
	ExcerptLength int    `yaml:"excerpt_length"` // excerpt size in characters (default 150)
	Locale        string `yaml:"locale"`         // BCP 47 tag for title ordering (default "en")

	SearchRate  float64 `yaml:"search_rate"`  // search requests per second per client (default 2)
	SearchBurst int     `yaml:"search_burst"` // search burst per client (default 10)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CodeStyle == "" {
		c.CodeStyle = markdown.DefaultCodeStyle
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.ExcerptLength <= 0 {
		c.ExcerptLength = markdown.DefaultExcerptLength
	}
	if c.SearchRate <= 0 {
		c.SearchRate = 2
	}
	if c.SearchBurst <= 0 {
		c.SearchBurst = 10
	}
}

// BuildMode returns the post visibility mode for Env.
func (c SiteConfig) BuildMode() posts.BuildMode {
	return posts.ParseBuildMode(c.Env)
}

// Language returns the collation locale, falling back to English when
// Locale does not parse.
func (c SiteConfig) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// Production reports whether the site runs in production mode.
func (c SiteConfig) Production() bool {
	return c.BuildMode() == posts.Production
}

// Validate checks a config after defaults have been applied.
func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.ContentDir, validation.Required),
		validation.Field(&c.Env, validation.In("production", "prod", "development", "dev")),
		validation.Field(&c.LogLevel, validation.By(func(value any) error {
			if _, err := zerolog.ParseLevel(value.(string)); err != nil {
				return validation.NewError("mdblog.config.log_level", "unknown log level")
			}
			return nil
		})),
		validation.Field(&c.ExcerptLength, validation.Min(1)),
		validation.Field(&c.Locale, validation.By(func(value any) error {
			if _, err := language.Parse(value.(string)); err != nil {
				return validation.NewError("mdblog.config.locale", "unknown locale")
			}
			return nil
		})),
		validation.Field(&c.SearchRate, validation.Min(0.0).Exclusive()),
	)
}

// LoadConfig builds a SiteConfig from, in increasing precedence: the YAML
// file at path (skipped when it does not exist), a .env file in the working
// directory and the process environment. An empty path selects
// MDBLOG_CONFIG or DefaultConfigFile. Defaults fill whatever is left.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path == "" {
		path = EnvOr("MDBLOG_CONFIG", DefaultConfigFile)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("mdblog: parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("mdblog: read config %s: %w", path, err)
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("mdblog: invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *SiteConfig) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"SITE_NAME", &cfg.Name},
		{"SITE_URL", &cfg.URL},
		{"SITE_DESCRIPTION", &cfg.Description},
		{"SITE_AUTHOR", &cfg.Author},
		{"MDBLOG_ADDR", &cfg.Addr},
		{"MDBLOG_CONTENT_DIR", &cfg.ContentDir},
		{"MDBLOG_STATIC_DIR", &cfg.StaticDir},
		{"MDBLOG_ENV", &cfg.Env},
		{"MDBLOG_LOG_LEVEL", &cfg.LogLevel},
		{"MDBLOG_CODE_STYLE", &cfg.CodeStyle},
		{"MDBLOG_LOCALE", &cfg.Locale},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}
	if v := os.Getenv("MDBLOG_EXCERPT_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("mdblog: MDBLOG_EXCERPT_LENGTH: %w", err)
		}
		cfg.ExcerptLength = n
	}
	if v := os.Getenv("MDBLOG_SEARCH_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("mdblog: MDBLOG_SEARCH_RATE: %w", err)
		}
		cfg.SearchRate = f
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithContentFS reads posts from fsys instead of Config.ContentDir.
func WithContentFS(fsys fs.FS) Option {
	return func(a *App) {
		a.contentFS = fsys
	}
}

// WithLogger sets the application logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithLiveReload enables the corpus watcher and the /_reload event stream.
// It has no effect in production.
func WithLiveReload(enabled bool) Option {
	return func(a *App) {
		a.liveReload = enabled
	}
}
