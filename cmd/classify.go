package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/enrich"
)

var (
	classifyJob   string
	classifyLimit int
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Enrich unprocessed postings via Claude",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "classify")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Enrich.Run(ctx, enrich.Filter{JobID: classifyJob, Limit: classifyLimit})
		if err != nil {
			return eris.Wrap(err, "classify run")
		}

		zap.L().Info("enrichment complete",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.SuccessCount),
			zap.Int("failed", result.ErrorCount),
		)

		return printJSON(result)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyJob, "job", "", "enrich one job by ID")
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "max jobs per pass (default from config)")
	rootCmd.AddCommand(classifyCmd)
}
