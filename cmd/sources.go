package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
)

var (
	sourceStatusFilter string
	sourceKindFilter   string

	addName     string
	addKind     string
	addEndpoint string
	addInterval time.Duration
	addPriority bool
	addTags     []string
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage job sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "sources")
		if err != nil {
			return err
		}
		defer env.Close()

		sources, err := env.Registry.List(ctx, store.SourceFilter{
			Status: model.SourceStatus(sourceStatusFilter),
			Kind:   model.SourceKind(sourceKindFilter),
		})
		if err != nil {
			return eris.Wrap(err, "list sources")
		}

		return printJSON(sources)
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "sources")
		if err != nil {
			return err
		}
		defer env.Close()

		src := &model.JobSource{
			Name:         addName,
			Kind:         model.SourceKind(addKind),
			Endpoint:     addEndpoint,
			PollInterval: addInterval,
			Priority:     addPriority,
			Tags:         addTags,
		}
		if err := env.Registry.Create(ctx, src); err != nil {
			return eris.Wrap(err, "create source")
		}

		zap.L().Info("source registered",
			zap.String("id", src.ID),
			zap.String("name", src.Name),
			zap.String("kind", string(src.Kind)),
		)

		return printJSON(src)
	},
}

var sourcesStatusCmd = &cobra.Command{
	Use:   "status <id> <active|paused|disabled>",
	Short: "Set a source's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "sources")
		if err != nil {
			return err
		}
		defer env.Close()

		id, status := args[0], model.SourceStatus(args[1])
		if err := env.Registry.SetStatus(ctx, id, status); err != nil {
			return eris.Wrap(err, "set source status")
		}

		zap.L().Info("source status updated",
			zap.String("id", id),
			zap.String("status", string(status)),
		)
		return nil
	},
}

func init() {
	sourcesListCmd.Flags().StringVar(&sourceStatusFilter, "status", "", "filter by status")
	sourcesListCmd.Flags().StringVar(&sourceKindFilter, "kind", "", "filter by kind")

	sourcesAddCmd.Flags().StringVar(&addName, "name", "", "source name (required)")
	sourcesAddCmd.Flags().StringVar(&addKind, "kind", "", "source kind: api, feed, or scrape (required)")
	sourcesAddCmd.Flags().StringVar(&addEndpoint, "endpoint", "", "board token, feed URL, or search query (required)")
	sourcesAddCmd.Flags().DurationVar(&addInterval, "interval", 0, "poll interval (default 1h)")
	sourcesAddCmd.Flags().BoolVar(&addPriority, "priority", false, "poll before non-priority sources")
	sourcesAddCmd.Flags().StringSliceVar(&addTags, "tags", nil, "free-form tags")
	_ = sourcesAddCmd.MarkFlagRequired("name")
	_ = sourcesAddCmd.MarkFlagRequired("kind")
	_ = sourcesAddCmd.MarkFlagRequired("endpoint")

	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesStatusCmd)
	rootCmd.AddCommand(sourcesCmd)
}
