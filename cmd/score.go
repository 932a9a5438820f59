package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ethicalfinder/esg-api/internal/model"
)

var (
	scoreID     string
	scoreTicker string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print the ESG score report for a company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var c *model.Company
		switch {
		case scoreID != "":
			c, err = env.Directory.GetByID(ctx, scoreID)
		case scoreTicker != "":
			c, err = env.Directory.GetByTicker(ctx, scoreTicker)
		default:
			return eris.New("one of --id or --ticker is required")
		}
		if err != nil {
			return eris.Wrap(err, "find company")
		}

		report, err := env.Engine.ComputeScore(c)
		if err != nil {
			return eris.Wrap(err, "compute score")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreID, "id", "", "company id")
	scoreCmd.Flags().StringVar(&scoreTicker, "ticker", "", "company ticker")
	rootCmd.AddCommand(scoreCmd)
}
