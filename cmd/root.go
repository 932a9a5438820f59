package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ethicalfinder/esg-api/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "esg-api",
	Short: "ESG scoring API for consumer products",
	Long:  "Looks up products against OpenFoodFacts, maintains a company ESG registry, and serves weighted ESG scores with confidence over HTTP.",
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
