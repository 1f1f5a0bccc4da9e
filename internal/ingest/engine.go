package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/logo"
	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/registry"
	"github.com/jobswipe/jobintel/internal/store"
)

const maxSampleJobIDs = 10

// LogoResolver is the slice of the logo chain the engine uses inline.
type LogoResolver interface {
	Resolve(ctx context.Context, req logo.Request) logo.Resolution
}

// Filter narrows an ingestion pass.
type Filter struct {
	SourceID string
	Kind     model.SourceKind
	Limit    int // max sources, 0 = all due
}

// Result summarizes one ingestion pass.
type Result struct {
	RunID             string   `json:"run_id"`
	SourcesProcessed  int      `json:"sources_processed"`
	TotalFetched      int      `json:"total_fetched"`
	TotalNew          int      `json:"total_new"`
	TotalUpdated      int      `json:"total_updated"`
	TotalDeduplicated int      `json:"total_deduplicated"`
	Errors            []string `json:"errors,omitempty"`
}

// Engine runs ingestion passes. A failing source never aborts the pass;
// its error lands in the run record and its health state, and the pass
// moves on.
type Engine struct {
	store     store.Store
	registry  *registry.Registry
	providers map[model.SourceKind]Provider
	logos     LogoResolver // optional
	nowFunc   func() time.Time
}

// NewEngine creates an Engine. logos may be nil to skip inline resolution.
func NewEngine(st store.Store, reg *registry.Registry, logos LogoResolver, providers ...Provider) *Engine {
	byKind := make(map[model.SourceKind]Provider, len(providers))
	for _, p := range providers {
		byKind[p.Kind()] = p
	}
	return &Engine{
		store:     st,
		registry:  reg,
		providers: byKind,
		logos:     logos,
		nowFunc:   time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.nowFunc = now
	return e
}

// Run executes one ingestion pass and writes its audit record.
func (e *Engine) Run(ctx context.Context, filter Filter) (*Result, error) {
	started := e.nowFunc()

	sources, err := e.resolveSources(ctx, filter)
	if err != nil {
		return nil, err
	}

	run := &model.IngestionRun{
		ID:        uuid.NewString(),
		StartedAt: started,
	}
	result := &Result{RunID: run.ID}

	for _, src := range sources {
		stats := e.ingestSource(ctx, &src, run)
		run.Sources = append(run.Sources, stats)
		run.SourcesProcessed++
		run.TotalFetched += stats.Fetched
		run.TotalNew += stats.New
		run.TotalUpdated += stats.Updated
		run.TotalDeduplicated += stats.Deduplicated
		if !stats.Success {
			run.TotalErrors++
			result.Errors = append(result.Errors, stats.SourceName+": "+stats.Error)
		}

		if ctx.Err() != nil {
			break
		}
	}

	completed := e.nowFunc()
	run.CompletedAt = &completed
	run.DurationMs = completed.Sub(started).Milliseconds()
	run.Success = run.TotalErrors == 0
	if !run.Success && len(result.Errors) > 0 {
		run.Error = result.Errors[0]
	}

	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "ingest: write run record")
	}

	result.SourcesProcessed = run.SourcesProcessed
	result.TotalFetched = run.TotalFetched
	result.TotalNew = run.TotalNew
	result.TotalUpdated = run.TotalUpdated
	result.TotalDeduplicated = run.TotalDeduplicated

	zap.L().Info("ingestion pass complete",
		zap.String("run_id", run.ID),
		zap.Int("sources", run.SourcesProcessed),
		zap.Int("fetched", run.TotalFetched),
		zap.Int("new", run.TotalNew),
		zap.Int("updated", run.TotalUpdated),
		zap.Int("deduplicated", run.TotalDeduplicated),
		zap.Int("errors", run.TotalErrors),
	)
	return result, nil
}

// resolveSources picks the sources a pass covers. Naming a source runs it
// regardless of schedule; otherwise only due sources qualify.
func (e *Engine) resolveSources(ctx context.Context, filter Filter) ([]model.JobSource, error) {
	if filter.SourceID != "" {
		src, err := e.registry.Get(ctx, filter.SourceID)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: source %s", filter.SourceID)
		}
		return []model.JobSource{*src}, nil
	}

	due, err := e.registry.ListDue(ctx, filter.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list due sources")
	}
	if filter.Kind == "" {
		return due, nil
	}

	var filtered []model.JobSource
	for _, src := range due {
		if src.Kind == filter.Kind {
			filtered = append(filtered, src)
		}
	}
	return filtered, nil
}

func (e *Engine) ingestSource(ctx context.Context, src *model.JobSource, run *model.IngestionRun) model.SourceRunStats {
	stats := model.SourceRunStats{SourceID: src.ID, SourceName: src.Name}

	provider, ok := e.providers[src.Kind]
	if !ok {
		stats.Error = "no provider for kind " + string(src.Kind)
		e.recordOutcome(ctx, src.ID, registry.Outcome{Err: eris.New(stats.Error)})
		return stats
	}

	postings, err := provider.Fetch(ctx, src)
	if err != nil {
		stats.Error = err.Error()
		zap.L().Warn("source fetch failed",
			zap.String("source_id", src.ID),
			zap.String("source", src.Name),
			zap.Error(err),
		)
		e.recordOutcome(ctx, src.ID, registry.Outcome{Err: err})
		return stats
	}

	stats.Fetched = len(postings)
	for i := range postings {
		outcome, jobID, err := e.upsertPosting(ctx, src, &postings[i])
		if err != nil {
			// A single bad row does not fail the source.
			zap.L().Warn("posting upsert failed",
				zap.String("source", src.Name),
				zap.String("title", postings[i].Title),
				zap.Error(err),
			)
			continue
		}
		switch outcome {
		case store.OutcomeNew:
			stats.New++
			if len(run.SampleJobIDs) < maxSampleJobIDs {
				run.SampleJobIDs = append(run.SampleJobIDs, jobID)
			}
			e.resolveLogoInline(ctx, jobID, src, &postings[i])
		case store.OutcomeUpdated:
			stats.Updated++
		case store.OutcomeUnchanged:
			stats.Deduplicated++
		}
	}

	stats.Success = true
	e.recordOutcome(ctx, src.ID, registry.Outcome{Success: true, Ingested: stats.Fetched})
	return stats
}

func (e *Engine) upsertPosting(ctx context.Context, src *model.JobSource, p *model.Posting) (store.UpsertOutcome, string, error) {
	now := e.nowFunc()
	job := &model.Job{
		DedupKey:           model.DedupKey(src.ID, p.NativeID, p.Title, p.Company, p.Location),
		Title:              p.Title,
		Company:            p.Company,
		Location:           p.Location,
		WorkType:           p.WorkType,
		SalaryMin:          p.SalaryMin,
		SalaryMax:          p.SalaryMax,
		Description:        p.Description,
		Requirements:       p.Requirements,
		ApplyURL:           p.ApplyURL,
		SourceID:           src.ID,
		SourceNativeID:     p.NativeID,
		FirstSeenAt:        now,
		PostedAt:           p.PostedAt,
		UpdatedAt:          now,
		VerificationStatus: model.VerificationUnverified,
	}

	res, err := e.store.UpsertJob(ctx, job)
	if err != nil {
		return 0, "", err
	}
	return res.Outcome, res.JobID, nil
}

// resolveLogoInline attaches a logo to a newly created job. Best effort:
// the chain never errors, and a failed write only logs.
func (e *Engine) resolveLogoInline(ctx context.Context, jobID string, src *model.JobSource, p *model.Posting) {
	if e.logos == nil {
		return
	}

	res := e.logos.Resolve(ctx, logo.Request{
		Company:    p.Company,
		ApplyURL:   p.ApplyURL,
		ATSLogoURL: p.LogoURL,
	})
	if res.Method == model.LogoMethodNone || res.LogoURL == "" {
		return
	}

	if err := e.store.SetJobLogo(ctx, jobID, res.LogoURL, res.Domain, res.Method, e.nowFunc()); err != nil {
		zap.L().Warn("inline logo write failed",
			zap.String("job_id", jobID),
			zap.String("source", src.Name),
			zap.Error(err),
		)
	}
}

func (e *Engine) recordOutcome(ctx context.Context, sourceID string, outcome registry.Outcome) {
	if err := e.registry.RecordOutcome(ctx, sourceID, outcome); err != nil {
		zap.L().Error("record source outcome failed",
			zap.String("source_id", sourceID),
			zap.Error(err),
		)
	}
}
