package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func known(code model.ConcernCode) bool {
	return code == "DIT" || code == "ST"
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Question), args.Error(1)
}

func (m *mockWriter) UpdateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Question), args.Error(1)
}

func TestLoadFile(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Text: "Do you reuse passwords?", Options: []model.Option{{Text: "Yes"}}},
		{ID: "q2", Text: "Do you use a VPN?"},
	}
	data, err := json.Marshal(questions)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].ID)
	assert.Equal(t, "Yes", got[0].Options[0].Text)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile("/nonexistent/questions.json")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       model.Question
		wantErr string
	}{
		{"valid", model.Question{Text: "Q", Options: []model.Option{{Text: "A", Points: map[model.ConcernCode]int{"DIT": 2}}}}, ""},
		{"no text", model.Question{}, "text is required"},
		{"bad status", model.Question{Text: "Q", Status: "archived"}, `unknown status "archived"`},
		{"empty option", model.Question{Text: "Q", Options: []model.Option{{}}}, "option 1: text is required"},
		{"unknown code", model.Question{Text: "Q", Options: []model.Option{{Text: "A", Points: map[model.ConcernCode]int{"XX": 1}}}}, `unknown concern code "XX"`},
		{"negative", model.Question{Text: "Q", Options: []model.Option{{Text: "A", Points: map[model.ConcernCode]int{"ST": -2}}}}, "must not be negative"},
		{"self branch", model.Question{ID: "q1", Text: "Q", Options: []model.Option{{Text: "A", NextQuestionID: "q1"}}}, "cannot be the question itself"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.q, known)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, ve.Msg, tt.wantErr)
		})
	}
}

func TestNormalize(t *testing.T) {
	// "e" + combining acute accent composes to a single rune under NFC.
	q := model.Question{
		Text:    "  Café wifi?  ",
		Options: []model.Option{{Text: " Yes ", NextQuestionID: " q2 "}},
	}
	Normalize(&q)
	assert.Equal(t, "Caf\u00e9 wifi?", q.Text)
	assert.Equal(t, "Yes", q.Options[0].Text)
	assert.Equal(t, "q2", q.Options[0].NextQuestionID)
}

func TestImport_RemapsBranches(t *testing.T) {
	w := &mockWriter{}
	fixture := []model.Question{
		{ID: "start", Text: "Start", Options: []model.Option{
			{Text: "Go on", NextQuestionID: "end"},
			{Text: "Stay"},
		}},
		{ID: "end", Text: "End"},
	}

	w.On("CreateQuestion", mock.Anything, mock.MatchedBy(func(q model.Question) bool {
		return q.Text == "Start" && q.Options[0].NextQuestionID == ""
	})).Return(&model.Question{ID: "id-1", Text: "Start", Options: []model.Option{
		{ID: "o1", Text: "Go on"}, {ID: "o2", Text: "Stay"},
	}}, nil)
	w.On("CreateQuestion", mock.Anything, mock.MatchedBy(func(q model.Question) bool {
		return q.Text == "End"
	})).Return(&model.Question{ID: "id-2", Text: "End"}, nil)
	w.On("UpdateQuestion", mock.Anything, mock.MatchedBy(func(q model.Question) bool {
		return q.ID == "id-1" && q.Options[0].NextQuestionID == "id-2" && q.Options[1].NextQuestionID == ""
	})).Return(&model.Question{ID: "id-1"}, nil)

	n, err := Import(context.Background(), w, fixture, known)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	w.AssertExpectations(t)
	w.AssertNumberOfCalls(t, "UpdateQuestion", 1)
}

func TestImport_RejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name    string
		fixture []model.Question
		wantErr string
	}{
		{"invalid question", []model.Question{{Text: "ok"}, {Text: ""}}, "question 2"},
		{"duplicate id", []model.Question{{ID: "a", Text: "x"}, {ID: "a", Text: "y"}}, `duplicate id "a"`},
		{"dangling branch", []model.Question{{ID: "a", Text: "x", Options: []model.Option{{Text: "o", NextQuestionID: "zz"}}}}, "not in the fixture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &mockWriter{}
			_, err := Import(context.Background(), w, tt.fixture, known)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			w.AssertNotCalled(t, "CreateQuestion", mock.Anything, mock.Anything)
		})
	}
}

func TestImport_CreateError(t *testing.T) {
	w := &mockWriter{}
	w.On("CreateQuestion", mock.Anything, mock.Anything).Return(&model.Question{ID: "id-1"}, nil).Once()
	w.On("CreateQuestion", mock.Anything, mock.Anything).Return(nil, errors.New("disk full")).Once()

	n, err := Import(context.Background(), w, []model.Question{{Text: "a"}, {Text: "b"}}, known)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "disk full")
}
