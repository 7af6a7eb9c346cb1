package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/privacy-assess/internal/assessment"
	"github.com/sells-group/privacy-assess/internal/catalog"
)

var reportInput string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute a report from a JSON file of scores",
	Long:  `Reads {"scores": {...}, "maxScores": {...}} from --input (or stdin with "-") and prints the report JSON.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}
		ctx := cmd.Context()

		tax, err := initTaxonomy()
		if err != nil {
			return err
		}

		var src catalog.Source
		if cfg.Catalog.Source == "store" {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			src = catalog.NewStoreSource(st)
		} else {
			src = newNotionSource(tax)
		}

		in, err := openInput(reportInput)
		if err != nil {
			return err
		}
		defer in.Close() //nolint:errcheck

		return runReport(ctx, assessment.NewBuilder(tax, src), in, cmd.OutOrStdout())
	},
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	return f, nil
}

func runReport(ctx context.Context, b *assessment.Builder, in io.Reader, out io.Writer) error {
	var req struct {
		Scores    assessment.Scores `json:"scores"`
		MaxScores assessment.Scores `json:"maxScores"`
	}
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return eris.Wrap(err, "decode report input")
	}

	report, err := b.Build(ctx, req.Scores, req.MaxScores)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	reportCmd.Flags().StringVar(&reportInput, "input", "", `path to the scores JSON file, or "-" for stdin (required)`)
	_ = reportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(reportCmd)
}
