// Package crawler drains a URL frontier with a fixed pool of workers,
// feeding fetched pages through the text-processing pipeline and into
// the index store. One crawl run visits each reachable same-origin
// URL at most once; failed URLs are logged and abandoned.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"sitesearch/internal/storage"
	"sitesearch/internal/textproc"
)

// Config tunes one crawl engine.
type Config struct {
	Workers int
}

// Engine owns the crawl machinery. The per-run state (frontier and
// claimed set) lives in a session created by Crawl, not in globals.
type Engine struct {
	store    *storage.Store
	fetcher  *Fetcher
	parser   *Parser
	proc     *textproc.Processor
	notifier Notifier
	logger   *slog.Logger
	workers  int

	running atomic.Bool
}

// NewEngine wires an engine. notifier may be nil.
func NewEngine(store *storage.Store, fetcher *Fetcher, notifier Notifier, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		fetcher:  fetcher,
		parser:   NewParser(),
		proc:     textproc.NewProcessor(),
		notifier: notifier,
		logger:   logger,
		workers:  cfg.Workers,
	}
}

// Running reports whether a crawl is in flight. The HTTP layer uses
// this to refuse a concurrent index clear.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// session carries the shared per-run crawl state.
type session struct {
	origin   *url.URL
	frontier *Frontier
}

// Crawl runs to frontier exhaustion: it seeds the frontier, starts
// the worker pool and blocks until every worker has exited. A second
// run over the same seed indexes nothing new.
func (e *Engine) Crawl(ctx context.Context, seedURL string) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("crawl already in progress")
	}
	defer e.running.Store(false)

	origin, err := url.Parse(seedURL)
	if err != nil {
		return fmt.Errorf("invalid seed url: %w", err)
	}

	indexed, err := e.store.AllURLs()
	if err != nil {
		return fmt.Errorf("failed to load indexed urls: %w", err)
	}

	sess := &session{
		origin:   origin,
		frontier: NewFrontier(indexed),
	}

	if !sess.frontier.Enqueue(Item{URL: seedURL}) {
		e.logger.Info("seed already indexed, nothing to crawl", "url", seedURL)
		e.notifier.Notify("Crawling completed")
		return nil
	}

	e.logger.Info("starting crawl", "seed", seedURL, "workers", e.workers)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(ctx, sess, workerID)
		}(i)
	}
	wg.Wait()

	e.logger.Info("crawl finished", "seed", seedURL)
	e.notifier.Notify("Crawling completed")
	return nil
}

func (e *Engine) worker(ctx context.Context, sess *session, workerID int) {
	for {
		item, ok := sess.frontier.Next()
		if !ok {
			return
		}

		if err := e.process(ctx, sess, item); err != nil {
			e.logger.Warn("page abandoned", "worker", workerID, "url", item.URL, "err", err)
		}
		sess.frontier.Done()
	}
}

// process moves one claimed URL through fetch, parse, tokenize and
// the atomic index commit. Any error leaves the store untouched for
// this URL and the crawl moves on.
func (e *Engine) process(ctx context.Context, sess *session, item Item) error {
	resp, err := e.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	lastModified := resp.Header.Get("Last-Modified")
	if lastModified == "" {
		lastModified = NoLastModified
	}

	doc, err := e.parser.Parse(resp.Body, item.URL)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	title := e.proc.Process(doc.Title)
	body := e.proc.Process(doc.BodyText)

	var links []string
	for _, link := range doc.Links {
		if SameOrigin(sess.origin, link) {
			links = append(links, link)
		}
	}

	keywords := make([]storage.Keyword, 0, 10)
	for _, kw := range body.TopStems(10) {
		keywords = append(keywords, storage.Keyword{Stem: kw.Stem, Frequency: kw.Frequency})
	}

	indexed := &storage.IndexedDoc{
		Page: storage.Page{
			URL:          item.URL,
			Title:        doc.Title,
			LastModified: lastModified,
			Size:         len(e.proc.Tokens(doc.BodyText)),
			Keywords:     keywords,
			ParentID:     item.ParentID,
			MaxTFTitle:   title.MaxFrequency(),
			MaxTFBody:    body.MaxFrequency(),
		},
		TitlePositions: title.Positions,
		BodyPositions:  body.Positions,
		Links:          links,
	}

	pageID, err := e.store.IndexPage(indexed)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateURL) {
			// Indexed by a previous run; nothing to do.
			return nil
		}
		return fmt.Errorf("index commit failed: %w", err)
	}

	// Children enter the frontier only after the parent's commit,
	// so every parent_id they carry refers to a committed page.
	for _, link := range links {
		sess.frontier.Enqueue(Item{URL: link, ParentID: &pageID})
	}

	e.notifier.Notify(fmt.Sprintf("Crawled %s", item.URL))
	return nil
}
