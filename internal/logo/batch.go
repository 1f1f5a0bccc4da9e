package logo

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jobswipe/jobintel/internal/model"
)

// BatchConfig tunes the backfill pass.
type BatchConfig struct {
	// Limit caps how many jobs one pass touches. Default: 200.
	Limit int
	// Concurrency bounds parallel resolutions. Default: 4.
	Concurrency int
	// InterItemDelay paces external lookups so icon services are not
	// hammered. Default: 50ms.
	InterItemDelay time.Duration
}

// BatchResult summarizes a backfill pass.
type BatchResult struct {
	Processed int `json:"processed"`
	Resolved  int `json:"resolved"`
	Skipped   int `json:"skipped"` // resolved to no logo at all
}

// ResolveBatch backfills jobs that have no logo. Per-job failures are
// impossible by the chain's contract; only store writes can fail, and
// those abort the pass.
func (r *Resolver) ResolveBatch(ctx context.Context, cfg BatchConfig) (*BatchResult, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.InterItemDelay <= 0 {
		cfg.InterItemDelay = 50 * time.Millisecond
	}

	jobs, err := r.store.ListJobsMissingLogo(ctx, cfg.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "logo: list jobs missing logo")
	}

	result := &BatchResult{}
	if len(jobs) == 0 {
		return result, nil
	}

	zap.L().Info("logo backfill starting",
		zap.Int("jobs", len(jobs)),
		zap.Int("concurrency", cfg.Concurrency),
	)

	ticker := time.NewTicker(cfg.InterItemDelay)
	defer ticker.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	results := make([]Resolution, len(jobs))
	for i, job := range jobs {
		select {
		case <-gctx.Done():
			break
		case <-ticker.C:
		}

		g.Go(func() error {
			results[i] = r.Resolve(gctx, Request{
				Company:  job.Company,
				ApplyURL: job.ApplyURL,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "logo: backfill")
	}

	now := r.nowFunc()
	for i, job := range jobs {
		res := results[i]
		result.Processed++
		if res.Method == model.LogoMethodNone || res.LogoURL == "" {
			result.Skipped++
			continue
		}
		if err := r.store.SetJobLogo(ctx, job.ID, res.LogoURL, res.Domain, res.Method, now); err != nil {
			return result, eris.Wrapf(err, "logo: save logo for job %s", job.ID)
		}
		result.Resolved++
	}

	zap.L().Info("logo backfill complete",
		zap.Int("processed", result.Processed),
		zap.Int("resolved", result.Resolved),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}
