// Package server provides the HTTP server and handlers.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bryan-buckman/iantel/internal/briefing"
	"github.com/bryan-buckman/iantel/internal/database"
	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/prefs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// refreshTimeout bounds a rebuild triggered over HTTP.
const refreshTimeout = 10 * time.Minute

// Options configures a Server.
type Options struct {
	// Builder serves /api/refresh and the periodic rebuild.
	Builder *briefing.Builder
	// Store is optional; without it /api/status reports no source health.
	Store database.Store
	// Artifact is the path of the briefing document.
	Artifact string
	// RebuildInterval enables periodic rebuilds when positive.
	RebuildInterval time.Duration
}

// Server is the main HTTP server.
type Server struct {
	builder   *briefing.Builder
	store     database.Store
	scheduler *briefing.Scheduler
	artifact  string
	router    chi.Router
	templates *template.Template

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// New creates a new server.
func New(opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		builder:   opts.Builder,
		store:     opts.Store,
		artifact:  opts.Artifact,
		templates: tmpl,
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x1a7e1)),
	}
	if opts.Builder != nil && opts.RebuildInterval > 0 {
		s.scheduler = briefing.NewScheduler(opts.Builder, opts.Artifact, opts.RebuildInterval)
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages.
	r.Get("/", s.handleHome)
	r.Get("/data/briefing.json", s.handleBriefingJSON)

	// API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/message", s.handleMessage)
		r.Post("/prefs", s.handlePrefs)
		r.Get("/status", s.handleStatus)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router = r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	if s.scheduler != nil {
		s.scheduler.Start()
		defer s.scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("Server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) pick(pool []string, last string) string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return prefs.Rotate(pool, last, s.rnd)
}

// --- Page Handlers ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	p := prefs.FromRequest(r)

	doc, err := briefing.LoadArtifact(s.artifact)
	if err != nil && !errors.Is(err, briefing.ErrArtifactMissing) {
		slog.Warn("Briefing unreadable", "path", s.artifact, "error", err)
	}

	family := ""
	if doc != nil {
		family = s.pick(doc.Messages.Family, p.LastMessage(prefs.CategoryFamily))
		if family != "" {
			p = p.WithLastMessage(prefs.CategoryFamily, family)
		}
	}
	data := s.buildPage(doc, p, family)

	if err := prefs.Save(w, p); err != nil {
		slog.Error("Error saving prefs", "error", err)
	}
	s.render(w, "layout.html", data)
}

func (s *Server) handleBriefingJSON(w http.ResponseWriter, r *http.Request) {
	data, err := briefing.ReadArtifact(s.artifact)
	if errors.Is(err, briefing.ErrArtifactMissing) {
		http.Error(w, "briefing not available yet", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error reading briefing", "error", err)
		http.Error(w, "Failed to read briefing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// --- API Handlers ---

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = prefs.CategoryFamily
	}
	if category != prefs.CategoryFamily && category != prefs.CategorySon {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	doc, err := briefing.LoadArtifact(s.artifact)
	if err != nil {
		writeError(w, http.StatusNotFound, "briefing not available yet")
		return
	}
	pool := doc.Messages.Family
	if category == prefs.CategorySon {
		pool = doc.Messages.Son
	}

	p := prefs.FromRequest(r)
	msg := s.pick(pool, p.LastMessage(category))
	if msg != "" {
		p = p.WithLastMessage(category, msg)
		if err := prefs.Save(w, p); err != nil {
			slog.Error("Error saving prefs", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"category": category, "message": msg})
}

func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Value  string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	p, err := applyPref(prefs.FromRequest(r), req.Action, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := prefs.Save(w, p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"prefs":   p,
		"station": stationAt(p.Station),
	})
}

// applyPref maps one named update onto the pure preference functions.
func applyPref(p prefs.Preferences, action, value string) (prefs.Preferences, error) {
	switch action {
	case "text":
		return p.WithTextSize(value)
	case "clicks":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return p, fmt.Errorf("clicks: %w", err)
		}
		return p.WithClicks(on), nil
	case "magnify":
		return p.ToggleMagnify(), nil
	case "station":
		if value == "" || value == "next" {
			return p.NextStation(len(Stations)), nil
		}
		i, err := strconv.Atoi(value)
		if err != nil {
			return p, fmt.Errorf("station: %w", err)
		}
		return p.WithStation(i, len(Stations)), nil
	case "toggle":
		return p.ToggleTopic(value)
	default:
		return p, fmt.Errorf("unknown action %q", action)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"available": false}

	if doc, err := briefing.LoadArtifact(s.artifact); err == nil {
		resp["available"] = true
		resp["edition"] = doc.Meta.Edition
		resp["generated_at"] = doc.Meta.GeneratedAt
		counts := make(map[string]int, len(doc.Sections))
		for topic, items := range doc.Sections {
			counts[topic] = len(items)
		}
		resp["sections"] = counts
		resp["assets"] = len(doc.Snapshot.Items)
	}
	if s.builder != nil {
		resp["configured_sources"] = s.builder.Catalogue().Count()
	}
	if s.scheduler != nil {
		resp["rebuild_interval"] = s.scheduler.Interval().String()
	}

	if s.store != nil {
		resp["database"] = s.store.DatabaseType()
		if v, err := s.store.GetSetting(model.SettingLastBuildAt); err == nil {
			resp["last_build_at"] = v
		}
		statuses, err := s.store.ListSourceStatus()
		if err != nil {
			slog.Error("Error listing source status", "error", err)
		}
		if statuses == nil {
			statuses = []model.SourceStatus{}
		}
		resp["sources"] = statuses
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.builder == nil {
		writeError(w, http.StatusServiceUnavailable, "rebuilds are not enabled")
		return
	}

	// The rebuild outlives the request; a closed tab must not cut it short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), refreshTimeout)
	defer cancel()

	doc, err := s.builder.TryPublish(ctx, s.artifact)
	if errors.Is(err, briefing.ErrBuildInProgress) {
		writeError(w, http.StatusConflict, "a rebuild is already running")
		return
	}
	if err != nil {
		slog.Error("Refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to write briefing")
		return
	}

	total := 0
	for _, items := range doc.Sections {
		total += len(items)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"edition": doc.Meta.Edition,
		"items":   total,
		"assets":  len(doc.Snapshot.Items),
	})
}

// --- Helpers ---

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	// Buffer the whole page; a template error must not send a partial response.
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template error", "error", err)
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
