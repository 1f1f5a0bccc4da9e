package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/logo"
)

var (
	logoCompany  string
	logoApplyURL string
	logoLimit    int
)

var logoCmd = &cobra.Command{
	Use:   "logo",
	Short: "Resolve company logos (single lookup or backfill)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "logo")
		if err != nil {
			return err
		}
		defer env.Close()

		if logoCompany != "" {
			res := env.Logos.Resolve(ctx, logo.Request{
				Company:  logoCompany,
				ApplyURL: logoApplyURL,
			})
			return printJSON(res)
		}

		limit := logoLimit
		if limit == 0 {
			limit = cfg.Logo.BatchSize
		}

		result, err := env.Logos.ResolveBatch(ctx, logo.BatchConfig{
			Limit:          limit,
			Concurrency:    cfg.Logo.MaxConcurrent,
			InterItemDelay: cfg.Logo.InterItemDelay,
		})
		if err != nil {
			return eris.Wrap(err, "logo backfill")
		}

		zap.L().Info("logo backfill complete",
			zap.Int("processed", result.Processed),
			zap.Int("resolved", result.Resolved),
			zap.Int("skipped", result.Skipped),
		)

		return printJSON(result)
	},
}

func init() {
	logoCmd.Flags().StringVar(&logoCompany, "company", "", "resolve a single company instead of backfilling")
	logoCmd.Flags().StringVar(&logoApplyURL, "apply-url", "", "apply URL hint for domain derivation")
	logoCmd.Flags().IntVar(&logoLimit, "limit", 0, "max jobs per backfill pass (default from config)")
	rootCmd.AddCommand(logoCmd)
}
