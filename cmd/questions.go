package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/questionbank"
	"github.com/sells-group/privacy-assess/internal/store"
)

var (
	exportPath   string
	exportStatus string
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Work with the question bank",
}

var questionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the question bank to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("questions"); err != nil {
			return err
		}
		status := model.QuestionStatus(exportStatus)
		if status != "" && !status.Valid() {
			return eris.Errorf("unknown status %q", exportStatus)
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		qs, err := st.ListQuestions(cmd.Context(), store.QuestionFilter{Status: status})
		if err != nil {
			return eris.Wrap(err, "list questions")
		}
		if err := exportQuestionsXLSX(qs, exportPath); err != nil {
			return err
		}
		zap.L().Info("questions exported", zap.Int("count", len(qs)), zap.String("path", exportPath))
		return nil
	},
}

var importPath string

var questionsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Append questions from a JSON fixture to the question bank",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("questions"); err != nil {
			return err
		}
		tax, err := initTaxonomy()
		if err != nil {
			return err
		}
		qs, err := questionbank.LoadFile(importPath)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := questionbank.Import(cmd.Context(), st, qs, tax.Known)
		if err != nil {
			return err
		}
		zap.L().Info("questions imported", zap.Int("count", n), zap.String("file", importPath))
		return nil
	},
}

var exportHeader = []string{"Position", "Question ID", "Status", "Question", "Option ID", "Option", "Points", "Next Question ID"}

// exportQuestionsXLSX writes one row per option; a question without options
// still gets a row.
func exportQuestionsXLSX(qs []model.Question, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Questions")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}
	addRow(sheet, exportHeader...)

	for _, q := range qs {
		if len(q.Options) == 0 {
			addRow(sheet, strconv.Itoa(q.Position), q.ID, string(q.Status), q.Text, "", "", "", "")
			continue
		}
		for _, o := range q.Options {
			addRow(sheet, strconv.Itoa(q.Position), q.ID, string(q.Status), q.Text,
				o.ID, o.Text, formatPoints(o.Points), o.NextQuestionID)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// formatPoints renders points as "CODE=n" pairs sorted by code.
func formatPoints(points map[model.ConcernCode]int) string {
	codes := make([]string, 0, len(points))
	for c := range points {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%s=%d", c, points[model.ConcernCode(c)])
	}
	return strings.Join(parts, "; ")
}

func init() {
	questionsExportCmd.Flags().StringVar(&exportPath, "out", "questions.xlsx", "output xlsx path")
	questionsExportCmd.Flags().StringVar(&exportStatus, "status", "", "only export questions with this status")
	questionsImportCmd.Flags().StringVar(&importPath, "file", "", "path to a JSON array of questions (required)")
	_ = questionsImportCmd.MarkFlagRequired("file")
	questionsCmd.AddCommand(questionsExportCmd, questionsImportCmd)
	rootCmd.AddCommand(questionsCmd)
}
