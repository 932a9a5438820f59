package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ethicalfinder/esg-api/internal/lookup"
)

var lookupReq lookup.Request

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up a product by barcode or free-text query",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Lookup.Lookup(ctx, lookupReq)
		if err != nil {
			return eris.Wrap(err, "lookup")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupReq.UPC, "upc", "", "12-digit UPC")
	lookupCmd.Flags().StringVar(&lookupReq.EAN, "ean", "", "13-digit EAN")
	lookupCmd.Flags().StringVar(&lookupReq.GTIN, "gtin", "", "GTIN")
	lookupCmd.Flags().StringVar(&lookupReq.Q, "q", "", "free-text query")
	rootCmd.AddCommand(lookupCmd)
}
