// Package server exposes the crawl, clear, search, similar and export
// operations over HTTP for the operator UI, plus a server-sent-events
// stream of crawl progress.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sitesearch/internal/crawler"
	"sitesearch/internal/exporter"
	"sitesearch/internal/ranker"
	"sitesearch/internal/storage"
)

// Server wires the HTTP surface. It owns the rule that the index is
// never cleared while a crawl is running.
type Server struct {
	store       *storage.Store
	engine      *crawler.Engine
	ranker      *ranker.Ranker
	hub         *Hub
	logger      *slog.Logger
	seedURL     string
	exportLimit int
}

func New(store *storage.Store, engine *crawler.Engine, rk *ranker.Ranker, hub *Hub, seedURL string, exportLimit int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       store,
		engine:      engine,
		ranker:      rk,
		hub:         hub,
		logger:      logger,
		seedURL:     seedURL,
		exportLimit: exportLimit,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/crawl", s.handleCrawl)
	r.Post("/api/clear", s.handleClear)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/similar/{pageID}", s.handleSimilar)
	r.Get("/api/pages", s.handlePages)
	r.Get("/api/export", s.handleExport)
	r.Get("/api/events", s.handleEvents)

	return r
}

type pageSummary struct {
	ID           int64             `json:"id"`
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	LastModified string            `json:"last_modified"`
	Size         int               `json:"size"`
	Keywords     []storage.Keyword `json:"keywords"`
}

func summarize(page *storage.Page) pageSummary {
	return pageSummary{
		ID:           page.ID,
		URL:          page.URL,
		Title:        page.Title,
		LastModified: page.LastModified,
		Size:         page.Size,
		Keywords:     page.Keywords,
	}
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeedURL string `json:"seed_url"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	seed := req.SeedURL
	if seed == "" {
		seed = s.seedURL
	}
	if seed == "" {
		writeError(w, http.StatusBadRequest, "no seed url configured")
		return
	}
	if s.engine.Running() {
		writeError(w, http.StatusConflict, "crawl already in progress")
		return
	}

	// Detach from the request context: the crawl outlives this request.
	go func() {
		if err := s.engine.Crawl(context.Background(), seed); err != nil {
			s.logger.Error("crawl failed", "seed", seed, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "crawling", "seed_url": seed})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if s.engine.Running() {
		writeError(w, http.StatusConflict, "cannot clear index while a crawl is running")
		return
	}
	if err := s.store.ClearAll(); err != nil {
		s.logger.Error("clear failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to clear index")
		return
	}
	s.hub.Notify("Database cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	results, err := s.ranker.Search(query)
	if err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	type scoredPage struct {
		pageSummary
		Score float64 `json:"score"`
	}
	out := make([]scoredPage, len(results))
	for i, res := range results {
		out[i] = scoredPage{pageSummary: summarize(res.Page), Score: res.Score}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": out})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	pageID, err := strconv.ParseInt(chi.URLParam(r, "pageID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	query, err := s.ranker.Similar(pageID)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		s.logger.Error("similar failed", "page_id", pageID, "err", err)
		writeError(w, http.StatusInternalServerError, "similar failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"query": query})
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	count, err := s.store.PageCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count pages")
		return
	}
	pages, err := s.store.FirstPages(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pages")
		return
	}

	out := make([]pageSummary, len(pages))
	for i, page := range pages {
		out[i] = summarize(page)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    count,
		"crawling": s.engine.Running(),
		"pages":    out,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := exporter.Write(w, s.store, s.exportLimit); err != nil {
		s.logger.Error("export failed", "err", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(events)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-events:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
