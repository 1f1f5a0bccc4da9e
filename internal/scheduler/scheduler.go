// Package scheduler runs the mutating engines on cron specs inside the
// serve process.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/enrich"
	"github.com/jobswipe/jobintel/internal/ingest"
	"github.com/jobswipe/jobintel/internal/verify"
)

// Config holds one cron spec per engine. An empty spec disables that job.
type Config struct {
	IngestSpec   string
	VerifySpec   string
	ClassifySpec string
}

// Engines are the three mutating passes the scheduler drives.
type Engines struct {
	Ingest interface {
		Run(ctx context.Context, filter ingest.Filter) (*ingest.Result, error)
	}
	Verify interface {
		Run(ctx context.Context, filter verify.Filter) (*verify.Result, error)
	}
	Enrich interface {
		Run(ctx context.Context, filter enrich.Filter) (*enrich.Result, error)
	}
}

// Scheduler wraps robfig/cron around the engines.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	engines Engines
}

// New creates a Scheduler. Jobs never overlap themselves and a panic in
// one tick never takes the process down.
func New(cfg Config, engines Engines) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		cfg:     cfg,
		engines: engines,
	}
}

// Start registers the configured jobs and starts ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	if spec := s.cfg.IngestSpec; spec != "" && s.engines.Ingest != nil {
		_, err := s.cron.AddFunc(spec, func() { s.runIngest(ctx) })
		if err != nil {
			return eris.Wrapf(err, "scheduler: ingest spec %q", spec)
		}
	}
	if spec := s.cfg.VerifySpec; spec != "" && s.engines.Verify != nil {
		_, err := s.cron.AddFunc(spec, func() { s.runVerify(ctx) })
		if err != nil {
			return eris.Wrapf(err, "scheduler: verify spec %q", spec)
		}
	}
	if spec := s.cfg.ClassifySpec; spec != "" && s.engines.Enrich != nil {
		_, err := s.cron.AddFunc(spec, func() { s.runClassify(ctx) })
		if err != nil {
			return eris.Wrapf(err, "scheduler: classify spec %q", spec)
		}
	}

	s.cron.Start()
	zap.L().Info("scheduler started",
		zap.String("ingest", s.cfg.IngestSpec),
		zap.String("verify", s.cfg.VerifySpec),
		zap.String("classify", s.cfg.ClassifySpec),
	)
	return nil
}

// Stop halts the ticker and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("scheduler stopped")
}

func (s *Scheduler) runIngest(ctx context.Context) {
	result, err := s.engines.Ingest.Run(ctx, ingest.Filter{})
	if err != nil {
		zap.L().Error("scheduled ingest failed", zap.Error(err))
		return
	}
	zap.L().Info("scheduled ingest complete",
		zap.Int("sources", result.SourcesProcessed),
		zap.Int("new", result.TotalNew),
		zap.Int("updated", result.TotalUpdated),
	)
}

func (s *Scheduler) runVerify(ctx context.Context) {
	result, err := s.engines.Verify.Run(ctx, verify.Filter{})
	if err != nil {
		zap.L().Error("scheduled verification failed", zap.Error(err))
		return
	}
	zap.L().Info("scheduled verification complete",
		zap.Int("checked", result.Checked),
		zap.Int("stale", result.Stale),
		zap.Int("expired", result.Expired),
	)
}

func (s *Scheduler) runClassify(ctx context.Context) {
	result, err := s.engines.Enrich.Run(ctx, enrich.Filter{})
	if err != nil {
		zap.L().Error("scheduled enrichment failed", zap.Error(err))
		return
	}
	zap.L().Info("scheduled enrichment complete",
		zap.Int("processed", result.Processed),
		zap.Int("errors", result.ErrorCount),
	)
}
