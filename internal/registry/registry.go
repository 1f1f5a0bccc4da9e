// Package registry manages job source records and their health state.
// Every ingestion run reports back through RecordOutcome, which owns the
// poll scheduling and the automatic active/failing transitions.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
)

// Config tunes the health bookkeeping.
type Config struct {
	// FailingThreshold is the consecutive-failure count at which an active
	// source is marked failing. Default: 5.
	FailingThreshold int
	// ReliabilityAlpha is the EWMA smoothing factor for the reliability
	// score. Default: 0.3.
	ReliabilityAlpha float64
	// DefaultPollInterval applies to sources created without one. Default: 1h.
	DefaultPollInterval time.Duration
}

// Registry wraps the store with source health semantics.
type Registry struct {
	store   store.Store
	cfg     Config
	nowFunc func() time.Time
}

// New creates a Registry.
func New(st store.Store, cfg Config) *Registry {
	if cfg.FailingThreshold <= 0 {
		cfg.FailingThreshold = 5
	}
	if cfg.ReliabilityAlpha <= 0 || cfg.ReliabilityAlpha > 1 {
		cfg.ReliabilityAlpha = 0.3
	}
	if cfg.DefaultPollInterval <= 0 {
		cfg.DefaultPollInterval = time.Hour
	}
	return &Registry{store: st, cfg: cfg, nowFunc: time.Now}
}

// WithNow overrides the clock, for tests.
func (r *Registry) WithNow(now func() time.Time) *Registry {
	r.nowFunc = now
	return r
}

// Create registers a new source. Missing fields get defaults; a fresh
// source starts active with a perfect reliability score and is immediately
// due for polling.
func (r *Registry) Create(ctx context.Context, src *model.JobSource) error {
	if src.Name == "" {
		return eris.New("registry: source name is required")
	}
	if !src.Kind.Valid() {
		return eris.Errorf("registry: invalid source kind %q", src.Kind)
	}
	if src.Endpoint == "" {
		return eris.New("registry: source endpoint is required")
	}

	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.Status == "" {
		src.Status = model.SourceStatusActive
	}
	if src.PollInterval <= 0 {
		src.PollInterval = r.cfg.DefaultPollInterval
	}
	if src.ReliabilityScore == 0 {
		src.ReliabilityScore = 1.0
	}

	if err := r.store.CreateSource(ctx, src); err != nil {
		return eris.Wrap(err, "registry: create source")
	}

	zap.L().Info("source registered",
		zap.String("source_id", src.ID),
		zap.String("name", src.Name),
		zap.String("kind", string(src.Kind)),
	)
	return nil
}

// Get fetches one source.
func (r *Registry) Get(ctx context.Context, id string) (*model.JobSource, error) {
	return r.store.GetSource(ctx, id)
}

// List returns sources matching the filter.
func (r *Registry) List(ctx context.Context, filter store.SourceFilter) ([]model.JobSource, error) {
	return r.store.ListSources(ctx, filter)
}

// ListDue returns active sources whose next poll time has arrived,
// priority sources first, then oldest poll first. limit <= 0 means all.
func (r *Registry) ListDue(ctx context.Context, limit int) ([]model.JobSource, error) {
	return r.store.ListDueSources(ctx, r.nowFunc(), limit)
}

// Outcome is one ingestion run's result against a single source.
type Outcome struct {
	Success  bool
	Ingested int // postings fetched, only meaningful on success
	Err      error
}

// RecordOutcome folds a run result into the source's health state: poll
// timestamps advance, the reliability EWMA absorbs the result, and the
// consecutive-failure counter drives the active<->failing transition.
// Paused and disabled sources keep their status; automatic transitions
// never reach disabled.
func (r *Registry) RecordOutcome(ctx context.Context, id string, outcome Outcome) error {
	src, err := r.store.GetSource(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "registry: record outcome for %s", id)
	}

	now := r.nowFunc()
	next := now.Add(src.PollInterval)
	src.LastPollAt = &now
	src.NextPollAt = &next

	alpha := r.cfg.ReliabilityAlpha
	if outcome.Success {
		src.ReliabilityScore = alpha*1 + (1-alpha)*src.ReliabilityScore
		src.ConsecutiveFailures = 0
		src.LastSuccessAt = &now
		src.LastError = ""
		src.TotalIngested += outcome.Ingested
		if src.Status == model.SourceStatusFailing {
			src.Status = model.SourceStatusActive
			zap.L().Info("source recovered",
				zap.String("source_id", src.ID),
				zap.String("name", src.Name),
			)
		}
	} else {
		src.ReliabilityScore = (1 - alpha) * src.ReliabilityScore
		src.ConsecutiveFailures++
		src.LastFailureAt = &now
		if outcome.Err != nil {
			src.LastError = outcome.Err.Error()
		}
		if src.Status == model.SourceStatusActive && src.ConsecutiveFailures >= r.cfg.FailingThreshold {
			src.Status = model.SourceStatusFailing
			zap.L().Warn("source marked failing",
				zap.String("source_id", src.ID),
				zap.String("name", src.Name),
				zap.Int("consecutive_failures", src.ConsecutiveFailures),
			)
		}
	}

	if err := r.store.SaveSourceState(ctx, src); err != nil {
		return eris.Wrapf(err, "registry: save state for %s", id)
	}
	return nil
}

// SetStatus is the operator path to pause, disable, or re-enable a source.
func (r *Registry) SetStatus(ctx context.Context, id string, status model.SourceStatus) error {
	if !status.Valid() {
		return eris.Errorf("registry: invalid status %q", status)
	}
	if err := r.store.SetSourceStatus(ctx, id, status); err != nil {
		return eris.Wrapf(err, "registry: set status for %s", id)
	}
	zap.L().Info("source status changed",
		zap.String("source_id", id),
		zap.String("status", string(status)),
	)
	return nil
}
