// Package server exposes the pipeline over HTTP: trigger endpoints for the
// engines, a freshness read, and source operator actions.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/jobswipe/jobintel/internal/enrich"
	"github.com/jobswipe/jobintel/internal/freshness"
	"github.com/jobswipe/jobintel/internal/ingest"
	"github.com/jobswipe/jobintel/internal/logo"
	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
	"github.com/jobswipe/jobintel/internal/verify"
)

// IngestRunner triggers an ingestion pass.
type IngestRunner interface {
	Run(ctx context.Context, filter ingest.Filter) (*ingest.Result, error)
}

// VerifyRunner triggers a liveness verification pass.
type VerifyRunner interface {
	Run(ctx context.Context, filter verify.Filter) (*verify.Result, error)
}

// EnrichRunner triggers an AI enrichment pass.
type EnrichRunner interface {
	Run(ctx context.Context, filter enrich.Filter) (*enrich.Result, error)
}

// LogoResolver answers single lookups and backfills missing logos.
type LogoResolver interface {
	Resolve(ctx context.Context, req logo.Request) logo.Resolution
	ResolveBatch(ctx context.Context, cfg logo.BatchConfig) (*logo.BatchResult, error)
}

// FreshnessCollector produces corpus freshness snapshots.
type FreshnessCollector interface {
	Collect(ctx context.Context) (*freshness.Snapshot, error)
}

// SourceDirectory is the operator surface over the source registry.
type SourceDirectory interface {
	List(ctx context.Context, filter store.SourceFilter) ([]model.JobSource, error)
	SetStatus(ctx context.Context, id string, status model.SourceStatus) error
}

// Deps collects everything the handlers call.
type Deps struct {
	Ingest    IngestRunner
	Verify    VerifyRunner
	Enrich    EnrichRunner
	Logos     LogoResolver
	Freshness FreshnessCollector
	Sources   SourceDirectory
}

// Config holds server settings.
type Config struct {
	// CronSecret guards the trigger and operator endpoints.
	CronSecret string
	// Sessions validates bearer tokens on POST /api/ingest. When nil the
	// cron secret is accepted there too.
	Sessions TokenValidator
}

// Server wires the router. Use Handler for the http.Server or tests.
type Server struct {
	cfg  Config
	deps Deps
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	if cfg.Sessions == nil {
		cfg.Sessions = StaticToken(cfg.CronSecret)
	}
	return &Server{cfg: cfg, deps: deps}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(requireSession(s.cfg.Sessions)).Post("/ingest", s.handleIngest)

		r.Group(func(r chi.Router) {
			r.Use(requireSecret(s.cfg.CronSecret))
			r.Post("/verify", s.handleVerify)
			r.Post("/classify", s.handleClassify)
			r.Post("/logo", s.handleLogo)
			r.Get("/freshness", s.handleFreshness)
			r.Get("/sources", s.handleListSources)
			r.Post("/sources/{id}/status", s.handleSetSourceStatus)
		})
	})

	return r
}

// writeJSON writes v with the given status. Encoding failures are ignored;
// the header is already gone.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResult reports an engine outcome. Business failures travel as
// success=false with HTTP 200; only transport problems get 4xx/5xx.
func writeResult(w http.ResponseWriter, result any, err error) {
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}
