package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ethicalfinder/esg-api/internal/ingest"
)

var (
	ingestFile    string
	ingestCharset string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load an ESG factor CSV into the company registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(ingestFile)
		if err != nil {
			return eris.Wrapf(err, "open csv %s", ingestFile)
		}
		defer f.Close()

		var r io.Reader = f
		if ingestCharset != "" {
			r, err = ingest.DecodeCharset(f, ingestCharset)
			if err != nil {
				return err
			}
		}

		stats, err := ingest.New(env.Store).Run(ctx, r)
		if err != nil {
			return eris.Wrap(err, "ingest csv")
		}

		fmt.Printf("Inserted: %d\nUpdated: %d\nSkipped: %d\n",
			stats.Inserted, stats.Updated, stats.Skipped)
		for _, reason := range stats.SkipReasons {
			fmt.Printf("  skipped: %s\n", reason)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to the ESG CSV (required)")
	ingestCmd.Flags().StringVar(&ingestCharset, "charset", "", "source charset when not UTF-8 (e.g. iso-8859-1)")
	ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}
