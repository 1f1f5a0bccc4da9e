package verify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
)

// Config tunes a verification pass.
type Config struct {
	// StalenessWindow is how long a verification result stays fresh; only
	// jobs unchecked for longer are re-probed. Default: 2h.
	StalenessWindow time.Duration
	// ExpireAfterChecks is the consecutive failed probes after which a
	// posting is expired. Default: 3.
	ExpireAfterChecks int
	// Limit caps how many jobs one pass probes. Default: 100.
	Limit int
	// InterCheckDelay paces probes. Default: 100ms.
	InterCheckDelay time.Duration
}

// Filter narrows a pass.
type Filter struct {
	JobID string // probe one job regardless of the staleness window
	Limit int
}

// Result summarizes a verification pass.
type Result struct {
	Checked  int      `json:"checked"`
	Verified int      `json:"verified"`
	Stale    int      `json:"stale"`
	Expired  int      `json:"expired"`
	Errors   []string `json:"errors,omitempty"`
}

// Engine runs verification passes.
type Engine struct {
	store   store.Store
	checker Checker
	cfg     Config
	nowFunc func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(st store.Store, checker Checker, cfg Config) *Engine {
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 2 * time.Hour
	}
	if cfg.ExpireAfterChecks <= 0 {
		cfg.ExpireAfterChecks = 3
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.InterCheckDelay < 0 {
		cfg.InterCheckDelay = 0
	} else if cfg.InterCheckDelay == 0 {
		cfg.InterCheckDelay = 100 * time.Millisecond
	}
	return &Engine{store: st, checker: checker, cfg: cfg, nowFunc: time.Now}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.nowFunc = now
	return e
}

// Run probes due jobs and applies the staged lifecycle: a live posting is
// verified_active with its failure streak cleared; a dead one climbs
// stale until the expire threshold. Probe errors leave state untouched.
func (e *Engine) Run(ctx context.Context, filter Filter) (*Result, error) {
	jobs, err := e.dueJobs(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && e.cfg.InterCheckDelay > 0 {
			timer := time.NewTimer(e.cfg.InterCheckDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, nil
			case <-timer.C:
			}
		}

		e.checkJob(ctx, &jobs[i], result)
	}

	zap.L().Info("verification pass complete",
		zap.Int("checked", result.Checked),
		zap.Int("verified", result.Verified),
		zap.Int("stale", result.Stale),
		zap.Int("expired", result.Expired),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (e *Engine) dueJobs(ctx context.Context, filter Filter) ([]model.Job, error) {
	if filter.JobID != "" {
		job, err := e.store.GetJob(ctx, filter.JobID)
		if err != nil {
			return nil, eris.Wrapf(err, "verify: job %s", filter.JobID)
		}
		return []model.Job{*job}, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = e.cfg.Limit
	}
	cutoff := e.nowFunc().Add(-e.cfg.StalenessWindow)
	jobs, err := e.store.ListJobsDueVerification(ctx, cutoff, limit)
	if err != nil {
		return nil, eris.Wrap(err, "verify: list due jobs")
	}
	return jobs, nil
}

func (e *Engine) checkJob(ctx context.Context, job *model.Job, result *Result) {
	result.Checked++

	alive, closed, err := e.checker.Check(ctx, job)
	if err != nil {
		result.Errors = append(result.Errors, job.ID+": "+err.Error())
		zap.L().Debug("verification probe inconclusive",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return
	}

	now := e.nowFunc()
	switch {
	case alive:
		if werr := e.store.SetJobVerification(ctx, job.ID, model.VerificationActive, 0, now); werr != nil {
			result.Errors = append(result.Errors, job.ID+": "+werr.Error())
			return
		}
		result.Verified++

	case closed:
		if werr := e.store.SetJobVerification(ctx, job.ID, model.VerificationExpired, job.FailedChecks+1, now); werr != nil {
			result.Errors = append(result.Errors, job.ID+": "+werr.Error())
			return
		}
		result.Expired++
		zap.L().Info("posting closed at source",
			zap.String("job_id", job.ID),
			zap.String("title", job.Title),
		)

	default:
		failed := job.FailedChecks + 1
		status := model.VerificationStale
		if failed >= e.cfg.ExpireAfterChecks {
			status = model.VerificationExpired
		}
		if werr := e.store.SetJobVerification(ctx, job.ID, status, failed, now); werr != nil {
			result.Errors = append(result.Errors, job.ID+": "+werr.Error())
			return
		}
		if status == model.VerificationExpired {
			result.Expired++
		} else {
			result.Stale++
		}
	}
}
