// Package server serves a live-reloading web view of a plan's dependency graph.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CaptShanks/sqitchprism/internal/config"
	"github.com/CaptShanks/sqitchprism/internal/graph"
	"github.com/CaptShanks/sqitchprism/internal/parser"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const pollInterval = time.Second

// Config holds the configuration for the web viewer.
type Config struct {
	Addr      string // listen address (default: config.DefaultAddr)
	PlanPath  string // plan file to serve
	Direction graph.Direction
	Theme     string // mermaid theme: "dark" or "default"
}

// Server renders the plan at PlanPath. The file is read again on every
// request; the revision counter only tells browsers when to refetch.
type Server struct {
	addr      string
	planPath  string
	direction graph.Direction
	theme     string
	router    chi.Router
	revision  atomic.Int64
}

// New creates a Server for cfg.
func New(cfg Config) (*Server, error) {
	if cfg.PlanPath == "" {
		return nil, errors.New("PlanPath must not be empty")
	}
	if cfg.Addr == "" {
		cfg.Addr = config.DefaultAddr
	}
	if cfg.Direction == "" {
		cfg.Direction = graph.DirectionLR
	}
	if cfg.Theme == "" {
		cfg.Theme = "dark"
	}

	s := &Server{
		addr:      cfg.Addr,
		planPath:  cfg.PlanPath,
		direction: cfg.Direction,
		theme:     cfg.Theme,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

// Revision returns the number of plan changes seen since start
func (s *Server) Revision() int64 {
	return s.revision.Load()
}

// Bump records a change to the plan file
func (s *Server) Bump() {
	rev := s.revision.Add(1)
	log.Printf("serve plan changed path=%s revision=%d", s.planPath, rev)
}

// ListenAndServe watches the plan file and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	watcher, err := NewWatcher(s.planPath, DefaultDebounce, s.Bump)
	if err != nil {
		return err
	}
	defer watcher.Stop()
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("serve listening addr=%s plan=%s", s.addr, s.planPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		log.Printf("serve stopped addr=%s", s.addr)
		return nil
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/graph.mmd", s.handleDiagram(graph.FormatMermaid))
	r.Get("/graph.dot", s.handleDiagram(graph.FormatDOT))
	r.Get("/api/revision", s.handleRevision)
	r.Get("/healthz", s.handleHealth)

	return r
}

// loadPlan reads and parses the plan file
func (s *Server) loadPlan() (string, *parser.Plan, error) {
	data, err := os.ReadFile(s.planPath)
	if err != nil {
		return "", nil, fmt.Errorf("reading plan: %w", err)
	}
	text := string(data)
	plan, err := parser.Parse(text)
	if err != nil {
		return "", nil, fmt.Errorf("parsing plan: %w", err)
	}
	return text, plan, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, plan, err := s.loadPlan()
	if err != nil {
		s.serverError(w, err)
		return
	}

	title := plan.Project()
	if title == "" {
		title = filepath.Base(s.planPath)
	}
	data := struct {
		Title      string
		Source     string
		Changes    int
		Revision   int64
		Theme      string
		PollMillis int64
	}{
		Title:      title,
		Source:     s.planPath,
		Changes:    len(plan.Changes),
		Revision:   s.Revision(),
		Theme:      s.theme,
		PollMillis: pollInterval.Milliseconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		log.Printf("serve template error=%q", err)
	}
}

func (s *Server) handleDiagram(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := graph.FormatterFor(format, s.direction)
		if err != nil {
			s.serverError(w, err)
			return
		}
		text, _, err := s.loadPlan()
		if err != nil {
			s.serverError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(graph.Render(text, f)))
	}
}

func (s *Server) handleRevision(w http.ResponseWriter, r *http.Request) {
	_, plan, err := s.loadPlan()
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"revision": s.Revision(),
		"changes":  len(plan.Changes),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	log.Printf("serve error=%q plan=%s", err, s.planPath)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
