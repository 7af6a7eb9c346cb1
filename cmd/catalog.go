package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/catalog"
)

var catalogCSVPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the suggestion catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import suggestion entries from CSV into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("catalog-import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		tax, err := initTaxonomy()
		if err != nil {
			return err
		}

		f, err := os.Open(catalogCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open %s", catalogCSVPath)
		}
		defer f.Close() //nolint:errcheck

		entries, err := catalog.ImportCSV(f, tax.Known)
		if err != nil {
			return eris.Wrap(err, "import csv")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		saved, err := catalog.Save(ctx, st, entries)
		if err != nil {
			return err
		}
		zap.L().Info("catalog import complete",
			zap.Int("saved", saved),
			zap.String("csv", catalogCSVPath),
		)
		return nil
	},
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy suggestion entries from the Notion catalog database into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("catalog-sync"); err != nil {
			return err
		}
		ctx := cmd.Context()

		tax, err := initTaxonomy()
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		saved, err := catalog.Sync(ctx, newNotionSource(tax), st)
		if err != nil {
			return err
		}
		zap.L().Info("catalog sync complete", zap.Int("saved", saved))
		return nil
	},
}

func init() {
	catalogImportCmd.Flags().StringVar(&catalogCSVPath, "csv", "", "path to CSV file (required)")
	_ = catalogImportCmd.MarkFlagRequired("csv")
	catalogCmd.AddCommand(catalogImportCmd, catalogSyncCmd)
	rootCmd.AddCommand(catalogCmd)
}
