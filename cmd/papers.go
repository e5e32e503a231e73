package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarly-group/confcollect/internal/model"
)

var (
	papersYears []int
	papersAPI   string
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Collect only the papers table, forcing one upstream API format",
	Long:  "Fetches submissions for the given years through a single upstream API format regardless of year, and writes just the papers table. Useful for probing which format a venue/year actually serves.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(papersYears) == 0 {
			return eris.New("at least one --years value is required")
		}

		var shape model.APIShape
		switch papersAPI {
		case "legacy":
			shape = model.ShapeLegacy
		case "revised":
			shape = model.ShapeRevised
		default:
			return eris.Errorf("unknown --api value %q (want legacy or revised)", papersAPI)
		}

		env, err := initCollector(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, _, err := env.Collector.CollectPapersOnly(ctx, papersYears, shape)
		if err != nil {
			return eris.Wrap(err, "collect papers")
		}

		for _, yc := range result.Years {
			zap.L().Info("papers collected",
				zap.Int("year", yc.Year),
				zap.Int("papers", yc.TotalPapers),
				zap.Int("skipped", yc.SkippedPapers),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	papersCmd.Flags().IntSliceVar(&papersYears, "years", nil, "conference years to collect (e.g. --years 2023,2024)")
	papersCmd.Flags().StringVar(&papersAPI, "api", "revised", "upstream API format to use: legacy or revised")
	_ = papersCmd.MarkFlagRequired("years")
	rootCmd.AddCommand(papersCmd)
}
