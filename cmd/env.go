package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/cache"
	"github.com/jobswipe/jobintel/internal/enrich"
	"github.com/jobswipe/jobintel/internal/fetcher"
	"github.com/jobswipe/jobintel/internal/freshness"
	"github.com/jobswipe/jobintel/internal/ingest"
	"github.com/jobswipe/jobintel/internal/logo"
	"github.com/jobswipe/jobintel/internal/registry"
	"github.com/jobswipe/jobintel/internal/store"
	"github.com/jobswipe/jobintel/internal/verify"
	"github.com/jobswipe/jobintel/pkg/aiclient"
	"github.com/jobswipe/jobintel/pkg/ats"
	"github.com/jobswipe/jobintel/pkg/logoapi"
	"github.com/jobswipe/jobintel/pkg/scrapeapi"
)

// pipelineEnv holds the initialized store, registry, and engines shared by
// the trigger commands and the serve process.
type pipelineEnv struct {
	Store     store.Store
	Registry  *registry.Registry
	Ingest    *ingest.Engine
	Verify    *verify.Engine
	Enrich    *enrich.Engine // nil when no Anthropic key is configured
	Logos     *logo.Resolver
	Freshness *freshness.Monitor
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "jobintel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initCache() cache.Cache {
	if cfg.Cache.Backend == "redis" {
		zap.L().Info("cache backend: redis", zap.String("addr", cfg.Cache.RedisAddr))
		return cache.NewRedis(cfg.Cache.RedisAddr, "jobintel")
	}
	return cache.NewMemory(cfg.Cache.MaxEntries)
}

// initEnv sets up the store, clients, and engines. Component gates which
// settings are required. Callers should defer env.Close().
func initEnv(ctx context.Context, component string) (*pipelineEnv, error) {
	if err := cfg.Validate(component); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	reg := registry.New(st, registry.Config{
		FailingThreshold: cfg.Registry.FailingThreshold,
		ReliabilityAlpha: cfg.Registry.ReliabilityAlpha,
	})

	logos := logo.New(st, initCache(), logoapi.NewVerifier(), logo.Config{
		FastCacheTTL: cfg.Cache.TTL,
	})

	scrapeOpts := []scrapeapi.Option{scrapeapi.WithBaseURL(cfg.ScrapeAPI.BaseURL)}
	if cfg.ScrapeAPI.SearchBaseURL != "" {
		scrapeOpts = append(scrapeOpts, scrapeapi.WithSearchBaseURL(cfg.ScrapeAPI.SearchBaseURL))
	}
	scrapeClient := scrapeapi.NewClient(cfg.ScrapeAPI.Key, scrapeOpts...)

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: cfg.Ingest.FetchTimeout})
	ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: cfg.Ingest.FetchTimeout})

	ingestEngine := ingest.NewEngine(st, reg, logos,
		ingest.NewATSProvider(ats.NewClient()),
		ingest.NewFeedProvider(httpFetcher, ftpFetcher),
		ingest.NewScrapeProvider(scrapeClient),
	)

	var checker verify.Checker
	if cfg.ScrapeAPI.Key != "" {
		checker = verify.NewScrapeChecker(scrapeClient)
	} else {
		checker = verify.NewHTTPChecker(cfg.Verify.CheckTimeout)
	}
	verifyEngine := verify.NewEngine(st, checker, verify.Config{
		StalenessWindow:   cfg.Verify.StalenessWindow,
		ExpireAfterChecks: cfg.Verify.ExpireAfterChecks,
		Limit:             cfg.Verify.DefaultLimit,
	})

	var enrichEngine *enrich.Engine
	if cfg.Anthropic.Key != "" {
		enrichEngine = enrich.NewEngine(st, aiclient.NewClient(cfg.Anthropic.Key), enrich.Config{
			Model:               cfg.Anthropic.Model,
			MaxTokens:           cfg.Anthropic.MaxTokens,
			MaxDescriptionChars: cfg.Enrich.MaxDescriptionLen,
			InterCallDelay:      cfg.Enrich.InterCallDelay,
			Limit:               cfg.Enrich.DefaultLimit,
		})
	} else if component != "classify" {
		zap.L().Debug("JOBINTEL_ANTHROPIC_KEY not set, enrichment disabled")
	}

	return &pipelineEnv{
		Store:     st,
		Registry:  reg,
		Ingest:    ingestEngine,
		Verify:    verifyEngine,
		Enrich:    enrichEngine,
		Logos:     logos,
		Freshness: freshness.New(st, freshness.Config{}),
	}, nil
}
