package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobswipe/jobintel/internal/enrich"
	"github.com/jobswipe/jobintel/internal/ingest"
	"github.com/jobswipe/jobintel/internal/logo"
	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
	"github.com/jobswipe/jobintel/internal/verify"
)

var errEnrichmentDisabled = errors.New("enrichment is not configured")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID string `json:"source_id"`
		Kind     string `json:"kind"`
		Limit    int    `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Ingest.Run(r.Context(), ingest.Filter{
		SourceID: req.SourceID,
		Kind:     model.SourceKind(req.Kind),
		Limit:    req.Limit,
	})
	writeResult(w, result, err)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"job_id"`
		Limit int    `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Verify.Run(r.Context(), verify.Filter{JobID: req.JobID, Limit: req.Limit})
	writeResult(w, result, err)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"job_id"`
		Limit int    `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if s.deps.Enrich == nil {
		writeResult(w, nil, errEnrichmentDisabled)
		return
	}
	result, err := s.deps.Enrich.Run(r.Context(), enrich.Filter{JobID: req.JobID, Limit: req.Limit})
	writeResult(w, result, err)
}

// handleLogo serves both shapes: a single company lookup when "company" is
// present, otherwise a backfill over jobs missing logos.
func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Company    string `json:"company"`
		ApplyURL   string `json:"apply_url"`
		ATSLogoURL string `json:"ats_logo_url"`
		Limit      int    `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Company != "" {
		res := s.deps.Logos.Resolve(r.Context(), logo.Request{
			Company:    req.Company,
			ApplyURL:   req.ApplyURL,
			ATSLogoURL: req.ATSLogoURL,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"logo_url": res.LogoURL,
			"domain":   res.Domain,
			"method":   res.Method,
		})
		return
	}

	result, err := s.deps.Logos.ResolveBatch(r.Context(), logo.BatchConfig{Limit: req.Limit})
	writeResult(w, result, err)
}

func (s *Server) handleFreshness(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Freshness.Collect(r.Context())
	writeResult(w, snap, err)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	filter := store.SourceFilter{
		Status: model.SourceStatus(r.URL.Query().Get("status")),
		Kind:   model.SourceKind(r.URL.Query().Get("kind")),
	}
	sources, err := s.deps.Sources.List(r.Context(), filter)
	writeResult(w, sources, err)
}

func (s *Server) handleSetSourceStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.deps.Sources.SetStatus(r.Context(), id, model.SourceStatus(req.Status)); err != nil {
		writeResult(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id, "status": req.Status})
}
