package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/mdblog"
	"github.com/eringen/mdblog/posts"
	"github.com/eringen/mdblog/search"
	"github.com/eringen/mdblog/tags"
	"github.com/eringen/mdblog/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "serve":
		err = runServe(args)
	case "list":
		err = runList(args)
	case "tags":
		err = runTags(args)
	case "search":
		err = runSearch(args)
	case "index":
		err = runIndex(args)
	case "init":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: mdblog init <directory>")
			os.Exit(1)
		}
		err = runInit(args[0])
	case "version":
		fmt.Printf("mdblog %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mdblog - A Markdown blog server built with Go, Echo, and templ

Usage:
  mdblog <command> [arguments]

Commands:
  serve [-config file] [-addr addr] [-reload]
                 Serve the blog
  list [-drafts] [-sort date|title] [-order asc|desc] [-limit n]
                 List posts
  tags           List tags with post counts
  search <query> Search posts from the command line
  index          Print the client search index as JSON
  init <dir>     Create a new blog in dir
  version        Print the mdblog version
  help           Show this help message

Configuration is read from mdblog.yaml (or $MDBLOG_CONFIG), .env and
environment variables such as SITE_NAME, SITE_URL and MDBLOG_CONTENT_DIR.`)
}

// loadConfig reads the configuration and sets up the global logger.
func loadConfig(path string) (mdblog.SiteConfig, error) {
	cfg, err := mdblog.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	setupLogger(cfg)
	return cfg, nil
}

func setupLogger(cfg mdblog.SiteConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Production() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	addr := fs.String("addr", "", "listen address, overrides the config")
	reload := fs.Bool("reload", true, "reload browsers when content changes (development only)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	app := mdblog.New(cfg, views.Default(),
		mdblog.WithLogger(log.Logger),
		mdblog.WithLiveReload(*reload),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func newRepository(cfg mdblog.SiteConfig) *posts.Repository {
	return posts.NewDirRepository(cfg.ContentDir,
		posts.WithBuildMode(cfg.BuildMode()),
		posts.WithExcerptLength(cfg.ExcerptLength),
		posts.WithLocale(cfg.Language()),
		posts.WithLogger(log.Logger),
	)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	drafts := fs.Bool("drafts", false, "include drafts")
	sortBy := fs.String("sort", "date", "sort key: date or title")
	order := fs.String("order", "desc", "sort order: asc or desc")
	limit := fs.Int("limit", 0, "maximum number of posts (0 for all)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	list := newRepository(cfg).ListAll(context.Background(), posts.Options{
		IncludeDrafts: *drafts,
		Limit:         *limit,
		SortBy:        posts.SortField(*sortBy),
		Order:         posts.SortOrder(*order),
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSLUG\tTITLE\tTAGS\tMIN")
	for _, p := range list {
		title := p.FrontMatter.Title
		if p.FrontMatter.Draft {
			title += " (draft)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			p.FrontMatter.Date, p.Slug, title, strings.Join(p.FrontMatter.Tags, ", "), p.ReadingTime)
	}
	return w.Flush()
}

func runTags(args []string) error {
	fs := flag.NewFlagSet("tags", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	agg := tags.NewAggregator(newRepository(cfg))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COUNT\tSLUG\tNAME")
	for _, t := range agg.ListAll(context.Background()) {
		fmt.Fprintf(w, "%d\t%s\t%s\n", t.Count, t.Slug, t.Name)
	}
	return w.Flush()
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search needs a query")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	list := newRepository(cfg).ListAll(context.Background(), posts.Options{})
	results := search.NewEngine().Search(list, query)
	if len(results) == 0 {
		fmt.Printf("No posts match %q\n", query)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tSLUG\tTITLE\tMATCHED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			strconv.FormatFloat(r.Score, 'g', 3, 64), r.Post.Slug, r.Post.FrontMatter.Title, strings.Join(r.Matches, ","))
	}
	return w.Flush()
}

func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	return search.WriteIndex(os.Stdout, newRepository(cfg).ListAll(context.Background(), posts.Options{}))
}
