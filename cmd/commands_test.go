package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/privacy-assess/internal/assessment"
	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/store"
)

var storeFilterAll = store.QuestionFilter{}

type stubCatalog struct {
	mock.Mock
}

func (m *stubCatalog) Load(ctx context.Context) (model.Catalog, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Catalog), args.Error(1)
}

func TestRunReport(t *testing.T) {
	src := &stubCatalog{}
	src.On("Load", mock.Anything).Return(model.NewCatalog([]model.SuggestionEntry{
		{Code: "DIT", Positive: "keep going", Negative: "enable MFA"},
	}), nil)

	var out bytes.Buffer
	in := strings.NewReader(`{"scores":{"DIT":8},"maxScores":{"DIT":10}}`)
	require.NoError(t, runReport(context.Background(), assessment.NewBuilder(nil, src), in, &out))

	var body map[string]struct {
		ScorePercentage int `json:"scorePercentage"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, 20, body["Digital Identity & Authentication"].ScorePercentage)
	assert.Contains(t, out.String(), "enable MFA")
}

func TestRunReport_Errors(t *testing.T) {
	b := assessment.NewBuilder(nil, &stubCatalog{})

	err := runReport(context.Background(), b, strings.NewReader(`not json`), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode report input")

	err = runReport(context.Background(), b, strings.NewReader(`{"scores":{"QQ":1},"maxScores":{"QQ":1}}`), &bytes.Buffer{})
	kind, ok := assessment.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, assessment.KindUnknownConcernCode, kind)
}

func TestExportQuestionsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	qs := []model.Question{
		{
			ID: "q1", Text: "Do you use a VPN?", Position: 1, Status: model.QuestionPublished,
			Options: []model.Option{
				{ID: "o1", Text: "Always", Points: map[model.ConcernCode]int{"ST": 0}},
				{ID: "o2", Text: "Never", Points: map[model.ConcernCode]int{"ST": 3, "DC": 1}, NextQuestionID: "q2"},
			},
		},
		{ID: "q2", Text: "Empty", Position: 2, Status: model.QuestionDraft},
	}
	require.NoError(t, exportQuestionsXLSX(qs, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "Questions", sheet.Name)
	require.Len(t, sheet.Rows, 4)

	cells := func(r int) []string {
		var out []string
		for _, c := range sheet.Rows[r].Cells {
			out = append(out, c.String())
		}
		return out
	}
	assert.Equal(t, exportHeader, cells(0))
	assert.Equal(t, []string{"1", "q1", "published", "Do you use a VPN?", "o2", "Never", "DC=1; ST=3", "q2"}, cells(2))
	assert.Equal(t, "q2", cells(3)[1])
	assert.Equal(t, "draft", cells(3)[2])
}

func TestFormatPoints(t *testing.T) {
	assert.Equal(t, "", formatPoints(nil))
	assert.Equal(t, "A=1; B=2", formatPoints(map[model.ConcernCode]int{"B": 2, "A": 1}))
}
