package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"sitesearch/internal/config"
	"sitesearch/internal/crawler"
	"sitesearch/internal/exporter"
	"sitesearch/internal/ranker"
	"sitesearch/internal/server"
	"sitesearch/internal/storage"
)

func main() {
	app := &cli.App{
		Name:  "sitesearch",
		Usage: "Crawl a bounded web domain and search it with a vector-space index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
			},
			{
				Name:      "crawl",
				Usage:     "Crawl from a seed URL and block until the frontier drains",
				ArgsUsage: "[seed-url]",
				Action:    crawlCommand,
			},
			{
				Name:      "search",
				Usage:     "Run a ranked query against the index",
				ArgsUsage: "<query>",
				Action:    searchCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every page, posting and statistic",
				Action: clearCommand,
			},
			{
				Name:  "export",
				Usage: "Write a plain-text report of the first indexed pages",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file (default stdout)",
					},
				},
				Action: exportCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) (*config.Config, *storage.Store, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	out := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, logFile)
	}

	level := slog.LevelInfo
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func newEngine(cfg *config.Config, store *storage.Store, notifier crawler.Notifier) *crawler.Engine {
	fetcher := crawler.NewFetcher(cfg.UserAgent, cfg.FetchTimeout(), cfg.RateLimit)
	return crawler.NewEngine(store, fetcher, notifier, crawler.Config{
		Workers: cfg.Workers,
	}, slog.Default())
}

func newRanker(cfg *config.Config, store *storage.Store) *ranker.Ranker {
	return ranker.New(store,
		ranker.WithTitleWeight(cfg.TitleWeight),
		ranker.WithPhraseWeight(cfg.PhraseWeight),
	)
}

func serveCommand(c *cli.Context) error {
	cfg, store, err := setup(c)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := server.NewHub()
	engine := newEngine(cfg, store, hub)
	srv := server.New(store, engine, newRanker(cfg, store), hub, cfg.SeedURL, cfg.ExportLimit, slog.Default())

	slog.Info("listening", "addr", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, srv.Router())
}

func crawlCommand(c *cli.Context) error {
	cfg, store, err := setup(c)
	if err != nil {
		return err
	}
	defer store.Close()

	seed := c.Args().First()
	if seed == "" {
		seed = cfg.SeedURL
	}
	if seed == "" {
		return fmt.Errorf("no seed url: pass one as an argument or set seed_url in the config")
	}

	engine := newEngine(cfg, store, crawler.NotifierFunc(func(msg string) {
		slog.Info(msg)
	}))
	return engine.Crawl(c.Context, seed)
}

func searchCommand(c *cli.Context) error {
	cfg, store, err := setup(c)
	if err != nil {
		return err
	}
	defer store.Close()

	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("no query given")
	}

	results, err := newRanker(cfg, store).Search(query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, res := range results {
		fmt.Printf("%2d. %.4f  %s\n    %s\n", i+1, res.Score, res.Page.Title, res.Page.URL)
	}
	return nil
}

func clearCommand(c *cli.Context) error {
	_, store, err := setup(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearAll(); err != nil {
		return err
	}
	fmt.Println("index cleared")
	return nil
}

func exportCommand(c *cli.Context) error {
	cfg, store, err := setup(c)
	if err != nil {
		return err
	}
	defer store.Close()

	out := io.Writer(os.Stdout)
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return exporter.Write(out, store, cfg.ExportLimit)
}
