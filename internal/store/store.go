// Package store defines the persistence interface for the job intelligence
// pipeline and its sqlite and postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/jobswipe/jobintel/internal/model"
)

// UpsertOutcome classifies what an UpsertJob call did.
type UpsertOutcome int

const (
	// OutcomeNew means no job had the dedup key; a row was inserted.
	OutcomeNew UpsertOutcome = iota
	// OutcomeUpdated means an existing row's mutable fields changed.
	OutcomeUpdated
	// OutcomeUnchanged means the posting was seen but identical.
	OutcomeUnchanged
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// UpsertResult reports the outcome of an UpsertJob call and the ID of the
// row the posting landed in.
type UpsertResult struct {
	Outcome UpsertOutcome
	JobID   string
}

// SourceFilter narrows ListSources.
type SourceFilter struct {
	Status model.SourceStatus
	Kind   model.SourceKind
}

// Store is the persistence boundary. All engines speak to storage only
// through this interface; the rest of the pipeline never sees SQL.
type Store interface {
	// Sources
	CreateSource(ctx context.Context, src *model.JobSource) error
	GetSource(ctx context.Context, id string) (*model.JobSource, error)
	ListSources(ctx context.Context, filter SourceFilter) ([]model.JobSource, error)
	// ListDueSources returns active sources with next_poll_at <= now (or
	// never polled), priority sources first, then oldest poll first.
	ListDueSources(ctx context.Context, now time.Time, limit int) ([]model.JobSource, error)
	// SaveSourceState persists the mutable health fields of a source.
	SaveSourceState(ctx context.Context, src *model.JobSource) error
	SetSourceStatus(ctx context.Context, id string, status model.SourceStatus) error

	// Jobs. UpsertJob is atomic per dedup key: the insert races on the
	// unique constraint and the change comparison runs inside the UPDATE
	// statement, never as a read-then-write in Go.
	UpsertJob(ctx context.Context, job *model.Job) (UpsertResult, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	GetJobByDedupKey(ctx context.Context, key string) (*model.Job, error)
	ListJobsDueVerification(ctx context.Context, cutoff time.Time, limit int) ([]model.Job, error)
	ListJobsMissingEnrichment(ctx context.Context, limit int) ([]model.Job, error)
	ListJobsMissingLogo(ctx context.Context, limit int) ([]model.Job, error)
	SetJobVerification(ctx context.Context, id string, status model.VerificationStatus, failedChecks int, at time.Time) error
	SetJobEnrichment(ctx context.Context, id string, e *model.Enrichment) error
	SetJobLogo(ctx context.Context, id, logoURL, domain string, method model.LogoMethod, at time.Time) error
	CountJobsByVerification(ctx context.Context) (map[model.VerificationStatus]int, error)
	// ListActivePostedTimes returns the effective posted time of every
	// non-expired job, for freshness percentile aggregation.
	ListActivePostedTimes(ctx context.Context) ([]time.Time, error)

	// Runs (append-only)
	CreateRun(ctx context.Context, run *model.IngestionRun) error
	ListRuns(ctx context.Context, limit int) ([]model.IngestionRun, error)

	// Logo cache. GetLogoCache returns (nil, nil) on a miss.
	GetLogoCache(ctx context.Context, domain string) (*model.LogoCacheEntry, error)
	SetLogoCache(ctx context.Context, entry *model.LogoCacheEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
