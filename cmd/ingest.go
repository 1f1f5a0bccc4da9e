package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/ingest"
	"github.com/jobswipe/jobintel/internal/model"
)

var (
	ingestSource string
	ingestKind   string
	ingestLimit  int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over due sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		limit := ingestLimit
		if limit == 0 {
			limit = cfg.Ingest.DefaultLimit
		}

		result, err := env.Ingest.Run(ctx, ingest.Filter{
			SourceID: ingestSource,
			Kind:     model.SourceKind(ingestKind),
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "ingest run")
		}

		zap.L().Info("ingestion complete",
			zap.Int("sources", result.SourcesProcessed),
			zap.Int("fetched", result.TotalFetched),
			zap.Int("new", result.TotalNew),
			zap.Int("updated", result.TotalUpdated),
			zap.Int("deduplicated", result.TotalDeduplicated),
		)

		return printJSON(result)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "ingest one source by ID, regardless of schedule")
	ingestCmd.Flags().StringVar(&ingestKind, "kind", "", "only sources of this kind (api, feed, scrape)")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "max sources per pass (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
