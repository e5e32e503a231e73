package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var collectYears []int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect papers, reviews, and author profiles for the given years",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(collectYears) == 0 {
			return eris.New("at least one --years value is required")
		}

		env, err := initCollector(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, _, err := env.Collector.Collect(ctx, collectYears)
		if err != nil {
			return eris.Wrap(err, "collect")
		}

		for _, yc := range result.Years {
			zap.L().Info("year collected",
				zap.Int("year", yc.Year),
				zap.Int("papers", yc.TotalPapers),
				zap.Int("reviews", yc.TotalReviews),
				zap.Int("skipped", yc.SkippedPapers),
			)
		}
		zap.L().Info("collection complete",
			zap.Int("authors", result.TotalAuthors),
			zap.Int("skipped_profiles", result.SkippedProfiles),
			zap.String("authors_file", result.AuthorsFile),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	collectCmd.Flags().IntSliceVar(&collectYears, "years", nil, "conference years to collect (e.g. --years 2023,2024)")
	_ = collectCmd.MarkFlagRequired("years")
	rootCmd.AddCommand(collectCmd)
}
