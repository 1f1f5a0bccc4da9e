package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/scheduler"
	"github.com/jobswipe/jobintel/internal/server"
)

var (
	servePort int
	serveCron bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		deps := server.Deps{
			Ingest:    env.Ingest,
			Verify:    env.Verify,
			Logos:     env.Logos,
			Freshness: env.Freshness,
			Sources:   env.Registry,
		}
		engines := scheduler.Engines{
			Ingest: env.Ingest,
			Verify: env.Verify,
		}
		// A typed nil engine behind the interface would pass nil checks.
		if env.Enrich != nil {
			deps.Enrich = env.Enrich
			engines.Enrich = env.Enrich
		}
		srv := server.New(server.Config{CronSecret: cfg.Server.CronSecret}, deps)

		if serveCron {
			sched := scheduler.New(scheduler.Config{
				IngestSpec:   cfg.Scheduler.IngestSpec,
				VerifySpec:   cfg.Scheduler.VerifySpec,
				ClassifySpec: cfg.Scheduler.ClassifySpec,
			}, engines)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Handler(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Bool("cron", serveCron))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveCron, "cron", false, "run the in-process scheduler")
	rootCmd.AddCommand(serveCmd)
}
