// Package freshness reports how current the corpus is: what share of
// sources have refreshed recently and how old the active postings are.
package freshness

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
)

// Config tunes the health thresholds.
type Config struct {
	// HealthyRatio is the minimum refreshed-source share considered
	// healthy. Default: 0.8.
	HealthyRatio float64
	// RefreshFactor scales each source's poll interval into its freshness
	// allowance; a source is refreshed if it succeeded within
	// RefreshFactor x PollInterval. Default: 2.
	RefreshFactor float64
}

// Snapshot is one point-in-time freshness reading.
type Snapshot struct {
	SourcesTotal     int     `json:"sources_total"`
	SourcesRefreshed int     `json:"sources_refreshed"`
	RefreshedRatio   float64 `json:"refreshed_ratio"`
	Healthy          bool    `json:"healthy"`

	ActiveJobs     int `json:"active_jobs"`
	StaleJobs      int `json:"stale_jobs"`
	ExpiredJobs    int `json:"expired_jobs"`
	UnverifiedJobs int `json:"unverified_jobs"`

	AgeP50Hours float64 `json:"age_p50_hours"`
	AgeP90Hours float64 `json:"age_p90_hours"`

	CollectedAt time.Time `json:"collected_at"`
}

// Monitor collects snapshots. Read-only: a snapshot never mutates state.
type Monitor struct {
	store   store.Store
	cfg     Config
	nowFunc func() time.Time
}

// New creates a Monitor.
func New(st store.Store, cfg Config) *Monitor {
	if cfg.HealthyRatio <= 0 || cfg.HealthyRatio > 1 {
		cfg.HealthyRatio = 0.8
	}
	if cfg.RefreshFactor <= 0 {
		cfg.RefreshFactor = 2
	}
	return &Monitor{store: st, cfg: cfg, nowFunc: time.Now}
}

// WithNow overrides the clock, for tests.
func (m *Monitor) WithNow(now func() time.Time) *Monitor {
	m.nowFunc = now
	return m
}

// Collect assembles a snapshot. Paused and disabled sources are an
// operator's choice and do not count against freshness.
func (m *Monitor) Collect(ctx context.Context) (*Snapshot, error) {
	now := m.nowFunc()
	snap := &Snapshot{CollectedAt: now}

	sources, err := m.store.ListSources(ctx, store.SourceFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "freshness: list sources")
	}
	for _, src := range sources {
		if src.Status == model.SourceStatusPaused || src.Status == model.SourceStatusDisabled {
			continue
		}
		snap.SourcesTotal++
		if m.refreshed(&src, now) {
			snap.SourcesRefreshed++
		}
	}
	if snap.SourcesTotal > 0 {
		snap.RefreshedRatio = float64(snap.SourcesRefreshed) / float64(snap.SourcesTotal)
	}
	snap.Healthy = snap.SourcesTotal == 0 || snap.RefreshedRatio >= m.cfg.HealthyRatio

	counts, err := m.store.CountJobsByVerification(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "freshness: count jobs")
	}
	snap.ActiveJobs = counts[model.VerificationActive]
	snap.StaleJobs = counts[model.VerificationStale]
	snap.ExpiredJobs = counts[model.VerificationExpired]
	snap.UnverifiedJobs = counts[model.VerificationUnverified]

	postedTimes, err := m.store.ListActivePostedTimes(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "freshness: list posted times")
	}
	ages := make([]float64, 0, len(postedTimes))
	for _, t := range postedTimes {
		ages = append(ages, now.Sub(t).Hours())
	}
	snap.AgeP50Hours = percentile(ages, 50)
	snap.AgeP90Hours = percentile(ages, 90)

	return snap, nil
}

func (m *Monitor) refreshed(src *model.JobSource, now time.Time) bool {
	if src.LastSuccessAt == nil {
		return false
	}
	allowance := time.Duration(m.cfg.RefreshFactor * float64(src.PollInterval))
	return now.Sub(*src.LastSuccessAt) <= allowance
}

// percentile computes the pth percentile by nearest-rank over a copy of
// values. Returns 0 on an empty set.
func percentile(values []float64, p int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(math.Ceil(float64(p)/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
