package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/verify"
)

var (
	verifyJob   string
	verifyLimit int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-check whether stored postings are still live",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "verify")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Verify.Run(ctx, verify.Filter{JobID: verifyJob, Limit: verifyLimit})
		if err != nil {
			return eris.Wrap(err, "verify run")
		}

		zap.L().Info("verification complete",
			zap.Int("checked", result.Checked),
			zap.Int("verified", result.Verified),
			zap.Int("stale", result.Stale),
			zap.Int("expired", result.Expired),
		)

		return printJSON(result)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyJob, "job", "", "check one job by ID, regardless of the staleness window")
	verifyCmd.Flags().IntVar(&verifyLimit, "limit", 0, "max jobs per pass (default from config)")
	rootCmd.AddCommand(verifyCmd)
}
