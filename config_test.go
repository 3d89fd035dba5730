package mdblog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestSetDefaults(t *testing.T) {
	cfg := SiteConfig{URL: "https://example.com/"}
	cfg.setDefaults()

	if cfg.Name != "Blog" {
		t.Errorf("Name = %q, want Blog", cfg.Name)
	}
	if cfg.URL != "https://example.com" {
		t.Errorf("URL = %q, trailing slash should be trimmed", cfg.URL)
	}
	if cfg.Addr != ":3000" || cfg.ContentDir != "content" || cfg.StaticDir != "public" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ExcerptLength != 150 {
		t.Errorf("ExcerptLength = %d, want 150", cfg.ExcerptLength)
	}
	if cfg.Production() {
		t.Error("default env should be development")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() SiteConfig {
		c := SiteConfig{}
		c.setDefaults()
		return c
	}
	tests := []struct {
		name    string
		mutate  func(*SiteConfig)
		wantErr string
	}{
		{"valid", func(*SiteConfig) {}, ""},
		{"bad url", func(c *SiteConfig) { c.URL = "not a url" }, "url"},
		{"bad env", func(c *SiteConfig) { c.Env = "staging" }, "env"},
		{"bad log level", func(c *SiteConfig) { c.LogLevel = "loud" }, "unknown log level"},
		{"production ok", func(c *SiteConfig) { c.Env = "production" }, ""},
		{"bad locale", func(c *SiteConfig) { c.Locale = "not_a_locale!" }, "unknown locale"},
		{"swedish locale", func(c *SiteConfig) { c.Locale = "sv-SE" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(strings.ToLower(err.Error()), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	yaml := "name: Field Notes\nurl: https://notes.example.com/\ncontent_dir: posts\nexcerpt_length: 80\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SITE_NAME", "")
	t.Setenv("MDBLOG_ENV", "production")
	t.Setenv("MDBLOG_EXCERPT_LENGTH", "")
	t.Setenv("SITE_AUTHOR", "Ada")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "Field Notes" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.URL != "https://notes.example.com" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.ContentDir != "posts" || cfg.ExcerptLength != 80 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !cfg.Production() {
		t.Error("environment should override the file")
	}
	if cfg.Author != "Ada" {
		t.Errorf("Author = %q, want Ada", cfg.Author)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("SITE_NAME", "From Env")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("a missing config file should not be an error: %v", err)
	}
	if cfg.Name != "From Env" {
		t.Errorf("Name = %q", cfg.Name)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("name: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Error("expected a parse error")
	}

	t.Setenv("MDBLOG_EXCERPT_LENGTH", "many")
	if _, err := LoadConfig(filepath.Join(dir, "none.yaml")); err == nil {
		t.Error("expected an error for a non-numeric excerpt length")
	}
}

func TestLanguage(t *testing.T) {
	cfg := SiteConfig{}
	cfg.setDefaults()
	if got := cfg.Language(); got != language.English {
		t.Errorf("default Language() = %v, want en", got)
	}
	cfg.Locale = "sv"
	if got := cfg.Language(); got != language.Swedish {
		t.Errorf("Language() = %v, want sv", got)
	}
	cfg.Locale = "!!"
	if got := cfg.Language(); got != language.English {
		t.Errorf("invalid locale should fall back to en, got %v", got)
	}
}
