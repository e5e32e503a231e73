package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarly-group/confcollect/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "confcollect",
	Short: "Conference submission and review collector",
	Long:  "Fetches accepted submissions, reviews, and author profiles from OpenReview across years, reconciles the two upstream API formats, and writes flat analysis tables.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
