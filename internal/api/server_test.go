package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/assessment"
	"github.com/sells-group/privacy-assess/internal/auth"
	"github.com/sells-group/privacy-assess/internal/catalog"
	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testAdmin    = "operator"
	testPassword = "correct horse battery"
)

type testEnv struct {
	store   *store.SQLiteStore
	cache   *catalog.CachedSource
	handler http.Handler
	token   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	_, err = st.CreateAdmin(context.Background(), testAdmin, hash)
	require.NoError(t, err)

	for _, e := range []model.SuggestionEntry{
		{Code: "DIT", Positive: "Use a password manager", Negative: "Enable MFA immediately", Tools: []string{"Bitwarden"}},
		{Code: "SB", Positive: "Keep monitoring breach alerts", Negative: "Rotate breached passwords"},
		{Code: "SE", Positive: "Keep verifying unexpected requests", Negative: "Learn to spot phishing"},
	} {
		require.NoError(t, st.UpsertSuggestion(context.Background(), e))
	}

	cache := catalog.NewCachedSource(catalog.NewStoreSource(st), time.Minute)
	tokens := auth.NewTokenManager(testSecret, "privacy-assess", time.Hour)
	srv := NewServer(Deps{
		Builder:        assessment.NewBuilder(assessment.DefaultTaxonomy(), cache),
		Store:          st,
		Auth:           auth.NewAuthenticator(st, tokens),
		Invalidator:    cache,
		Registry:       prometheus.NewRegistry(),
		SubscribeRate:  60,
		SubscribeBurst: 3,
	})
	token, _, err := tokens.Issue(testAdmin)
	require.NoError(t, err)

	return &testEnv{store: st, cache: cache, handler: srv.Handler(), token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:5555"
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_StoreDown(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())
	rec := env.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReport_ExampleScenario(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/report", map[string]any{
		"scores":    map[string]int{"DIT": 8},
		"maxScores": map[string]int{"DIT": 10, "SB": 10, "SE": 10},
	}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]struct {
		ScorePercentage int `json:"scorePercentage"`
		Suggestions     []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	cat, ok := body["Digital Identity & Authentication"]
	require.True(t, ok)
	assert.Equal(t, 20, cat.ScorePercentage)
	require.Len(t, cat.Suggestions, 3)
	assert.Equal(t, "negative", cat.Suggestions[0].Type)
	assert.Equal(t, "Enable MFA immediately", cat.Suggestions[0].Text)
	assert.Equal(t, "positive", cat.Suggestions[1].Type)
	assert.Equal(t, "positive", cat.Suggestions[2].Type)
}

func TestReport_CategoryOrderInBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/report", map[string]any{
		"scores":    map[string]int{"DIT": 1},
		"maxScores": map[string]int{"DIT": 2},
	}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	last := -1
	for _, c := range assessment.DefaultTaxonomy().Categories() {
		key, _ := json.Marshal(c.Name)
		idx := strings.Index(body, string(key))
		require.GreaterOrEqual(t, idx, 0, c.Name)
		assert.Greater(t, idx, last, c.Name)
		last = idx
	}
}

func TestReport_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		body     any
		status   int
		contains string
	}{
		{"malformed json", `{"scores":`, http.StatusBadRequest, "invalid request body"},
		{"trailing data", `{"scores":{"DIT":1},"maxScores":{"DIT":2}} {}`, http.StatusBadRequest, "invalid request body"},
		{"missing scores", map[string]any{"maxScores": map[string]int{"DIT": 2}}, http.StatusBadRequest, "scores is required"},
		{"missing max scores", map[string]any{"scores": map[string]int{"DIT": 2}}, http.StatusBadRequest, "maxScores is required"},
		{"unknown code", map[string]any{
			"scores":    map[string]int{"DIT": 1},
			"maxScores": map[string]int{"DIT": 2, "ZZ": 1},
		}, http.StatusBadRequest, `"ZZ"`},
		{"missing max for code", map[string]any{
			"scores":    map[string]int{"DIT": 1, "SB": 1},
			"maxScores": map[string]int{"DIT": 2},
		}, http.StatusBadRequest, `"SB"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/report", tt.body, false)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.contains)
		})
	}
}

func TestReport_CatalogUnavailable(t *testing.T) {
	env := newTestEnv(t)
	for _, code := range []model.ConcernCode{"DIT", "SB", "SE"} {
		require.NoError(t, env.store.DeleteSuggestion(context.Background(), code))
	}

	rec := env.do(t, http.MethodPost, "/api/report", map[string]any{
		"scores":    map[string]int{"DIT": 1},
		"maxScores": map[string]int{"DIT": 2},
	}, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "suggestion catalog unavailable", errorBody(t, rec))
}

func TestTaxonomy(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/taxonomy", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Concerns   []json.RawMessage `json:"concerns"`
		Categories []json.RawMessage `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Concerns, len(assessment.DefaultTaxonomy().Concerns()))
	assert.Len(t, body.Categories, len(assessment.DefaultTaxonomy().Categories()))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: testAdmin, Password: testPassword}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	rec = env.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: testAdmin, Password: "wrong password!"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: "nobody", Password: testPassword}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: testAdmin}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/admin/questions"},
		{http.MethodPost, "/api/admin/questions"},
		{http.MethodPut, "/api/admin/questions/order"},
		{http.MethodDelete, "/api/admin/questions/abc"},
		{http.MethodGet, "/api/admin/catalog"},
		{http.MethodPut, "/api/admin/catalog/DIT"},
	} {
		rec := env.do(t, tc.method, tc.path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestMetrics_Exposed(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/report", map[string]any{
		"scores":    map[string]int{"DIT": 1},
		"maxScores": map[string]int{"DIT": 2},
	}, false)

	rec := env.do(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `privacy_assess_reports_total{outcome="ok"} 1`)
	assert.Contains(t, body, `privacy_assess_http_requests_total{method="POST",route="/api/report",status="200"} 1`)
}
