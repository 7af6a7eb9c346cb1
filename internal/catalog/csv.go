package catalog

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/privacy-assess/internal/model"
)

// csvColumns are the recognized header names. tools and methodology are
// optional.
var csvColumns = []string{"code", "positive", "negative", "tools", "methodology"}

// ImportCSV parses catalog rows from r. The first row is a header naming
// the columns in any order; list columns hold semicolon-separated values.
// known, when non-nil, rejects codes outside the taxonomy. Parsing stops
// at the first bad row and the error names its line.
func ImportCSV(r io.Reader, known func(model.ConcernCode) bool) ([]model.SuggestionEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("catalog: csv is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read csv header")
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var entries []model.SuggestionEntry
	seen := make(map[model.ConcernCode]int)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read csv row")
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}

		e := model.SuggestionEntry{
			Code:        model.ConcernCode(strings.ToUpper(field(record, idx, "code"))),
			Positive:    field(record, idx, "positive"),
			Negative:    field(record, idx, "negative"),
			Tools:       SplitList(field(record, idx, "tools")),
			Methodology: SplitList(field(record, idx, "methodology")),
		}
		switch {
		case e.Code == "":
			return nil, eris.Errorf("catalog: csv line %d: code is empty", line)
		case known != nil && !known(e.Code):
			return nil, eris.Errorf("catalog: csv line %d: unknown concern code %q", line, e.Code)
		case e.Positive == "" || e.Negative == "":
			return nil, eris.Errorf("catalog: csv line %d: positive and negative text are required", line)
		}
		if prev, dup := seen[e.Code]; dup {
			return nil, eris.Errorf("catalog: csv line %d: code %s already defined on line %d", line, e.Code, prev)
		}
		seen[e.Code] = line
		entries = append(entries, e)
	}
	return entries, nil
}

// SplitList splits a semicolon-separated list, trimming blanks. It never
// returns nil.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns[:3] {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("catalog: csv header missing %q column", col)
		}
	}
	return idx, nil
}

func field(record []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
