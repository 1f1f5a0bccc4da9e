package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus freshness and recent ingestion runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "status")
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Freshness.Collect(ctx)
		if err != nil {
			return eris.Wrap(err, "collect freshness")
		}

		runs, err := env.Store.ListRuns(ctx, statusRuns)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		return printJSON(struct {
			Freshness any `json:"freshness"`
			Runs      any `json:"runs"`
		}{snap, runs})
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 5, "how many recent runs to show")
	rootCmd.AddCommand(statusCmd)
}
