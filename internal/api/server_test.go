package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/audit"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/repository"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/testutil"
)

func ordersSnapshot() *schema.Snapshot {
	five := 5
	return &schema.Snapshot{
		ProjectID: 1,
		Entities: []schema.Entity{
			{Type: "TABLE", ID: 1, Name: "orders"},
			{Type: "SP", ID: 2, Name: "purge_orders", Criticality: &five},
			{Type: "VIEW", ID: 3, Name: "open_orders"},
		},
		Dependencies: []schema.Dependency{
			{SourceType: "SP", SourceID: 2, TargetType: "TABLE", TargetID: 1, Kind: "DELETE"},
			{SourceType: "VIEW", SourceID: 3, TargetType: "TABLE", TargetID: 1, Kind: "SELECT"},
		},
	}
}

// testServer creates a Server over an in-memory snapshot with a temp history file.
func testServer(t *testing.T, opts ...Option) (*Server, *engine.Engine) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	eng, err := engine.New(config.Default(), testutil.NewLogger(t),
		repository.NewSnapshot(ordersSnapshot(), 5),
		engine.WithHistoryPath(filepath.Join(t.TempDir(), "history.yaml")),
		engine.WithRecorder(audit.NewMemoryRecorder()),
	)
	require.NoError(t, err)
	return New(eng, slog.Default(), 0, opts...), eng
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(t)
	w := do(t, s.Handler(), "GET", "/api/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, impact.DefaultPolicyVersion, resp["policy_version"])
}

func TestAnalyze(t *testing.T) {
	s, eng := testServer(t)
	w := do(t, s.Handler(), "POST", "/api/impact/analyze", AnalyzeRequest{
		ProjectID: 1, EntityType: "table", EntityID: 1, ChangeType: "DELETE",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "orders", resp.Result.RootEntity.Name)
	assert.Equal(t, impact.ImpactCritical, resp.Result.OverallImpact.WorstImpactLevel)
	assert.Equal(t, 150, resp.Result.OverallImpact.WorstRiskScore)
	require.NotNil(t, resp.Approval)
	assert.Equal(t, audit.StatusPending, resp.Approval.Status)

	h, err := eng.History()
	require.NoError(t, err)
	assert.Len(t, h.Entries, 1)
}

func TestAnalyze_BadRequests(t *testing.T) {
	s, _ := testServer(t)
	handler := s.Handler()

	tests := []struct {
		name string
		body any
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing project", AnalyzeRequest{EntityType: "TABLE", EntityID: 1, ChangeType: "DELETE"}, http.StatusBadRequest},
		{"missing change", AnalyzeRequest{ProjectID: 1, EntityType: "TABLE", EntityID: 1}, http.StatusBadRequest},
		{"unknown entity type", AnalyzeRequest{ProjectID: 1, EntityType: "INDEX", EntityID: 1, ChangeType: "DELETE"}, http.StatusBadRequest},
		{"unknown change type", AnalyzeRequest{ProjectID: 1, EntityType: "TABLE", EntityID: 1, ChangeType: "RENAME"}, http.StatusBadRequest},
		{"unknown project", AnalyzeRequest{ProjectID: 2, EntityType: "TABLE", EntityID: 1, ChangeType: "DELETE"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, handler, "POST", "/api/impact/analyze", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestBatch(t *testing.T) {
	s, _ := testServer(t)
	w := do(t, s.Handler(), "POST", "/api/impact/batch", BatchRequest{
		ProjectID:  1,
		ChangeType: "MODIFY",
		Entities: []BatchEntity{
			{EntityType: "TABLE", EntityID: 1},
			{EntityType: "VIEW", EntityID: 3},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, int64(1), resp.Results[0].Result.RootEntity.ID)
	assert.Equal(t, impact.EntityTypeView, resp.Results[1].Result.RootEntity.Type)
	assert.Equal(t, 0, resp.Results[1].Result.TotalPaths)
}

func TestBatch_Validation(t *testing.T) {
	s, _ := testServer(t)
	handler := s.Handler()

	w := do(t, handler, "POST", "/api/impact/batch", BatchRequest{ProjectID: 1, ChangeType: "MODIFY"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, handler, "POST", "/api/impact/batch", BatchRequest{
		ProjectID: 1, ChangeType: "MODIFY",
		Entities: []BatchEntity{{EntityType: "TABLE", EntityID: 1}, {EntityType: "SEQUENCE", EntityID: 4}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "entities[1]")
}

func TestPolicyEndpoint(t *testing.T) {
	s, _ := testServer(t)
	w := do(t, s.Handler(), "GET", "/api/impact/policy", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var policy impact.RiskPolicy
	require.NoError(t, json.NewDecoder(w.Body).Decode(&policy))
	assert.Equal(t, impact.DefaultRiskPolicy(), policy)
}

func TestHistoryAndApprovals(t *testing.T) {
	s, _ := testServer(t)
	handler := s.Handler()

	for _, change := range []string{"CREATE", "DELETE"} {
		w := do(t, handler, "POST", "/api/impact/analyze", AnalyzeRequest{
			ProjectID: 1, EntityType: "TABLE", EntityID: 1, ChangeType: change,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, handler, "GET", "/api/impact/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hist))
	assert.Equal(t, 2, hist.Total)
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, "DELETE", hist.Entries[0].ChangeType)

	w = do(t, handler, "GET", "/api/impact/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, handler, "GET", "/api/impact/approvals?project_id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var approvals ApprovalsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&approvals))
	// CREATE scores 10*1*5 = 50 (High), DELETE 150 (Critical); both need approval
	assert.Len(t, approvals.Pending, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	handler := s.Handler()

	do(t, handler, "POST", "/api/impact/analyze", AnalyzeRequest{
		ProjectID: 1, EntityType: "TABLE", EntityID: 1, ChangeType: "DELETE",
	})
	w := do(t, handler, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `acto_impact_analyses_total{change_type="DELETE",level="Critical"} 1`)
	assert.Contains(t, body, "acto_http_requests_total")
}

func TestCORSMiddleware(t *testing.T) {
	s, _ := testServer(t, WithDevMode(true))
	handler := s.Handler()

	w := do(t, handler, "OPTIONS", "/api/health", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))

	w = do(t, handler, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSPAHandler(t *testing.T) {
	staticFS := fstest.MapFS{
		"index.html":     {Data: []byte("<html>dashboard</html>")},
		"assets/app.js":  {Data: []byte("console.log('app')")},
		"assets/app.css": {Data: []byte("body{}")},
	}

	s, _ := testServer(t, WithStaticFS(staticFS))
	handler := s.Handler()

	tests := []struct {
		name     string
		path     string
		wantBody string
	}{
		{"root", "/", "<html>dashboard</html>"},
		{"asset JS", "/assets/app.js", "console.log('app')"},
		{"asset CSS", "/assets/app.css", "body{}"},
		{"fallback", "/history", "<html>dashboard</html>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, handler, "GET", tc.path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.wantBody, w.Body.String())
		})
	}
}

func TestJsonResponse(t *testing.T) {
	w := httptest.NewRecorder()
	jsonResponse(w, http.StatusCreated, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"key":"value"}`, w.Body.String())
}

func TestValidationMessage(t *testing.T) {
	err := validate.Struct(AnalyzeRequest{})
	msg := validationMessage(err)
	assert.True(t, strings.Contains(msg, "AnalyzeRequest.ProjectID failed gt"), msg)
	assert.Contains(t, msg, "AnalyzeRequest.ChangeType failed required")
}

func TestWithOptions(t *testing.T) {
	_, eng := testServer(t)
	staticFS := fstest.MapFS{"index.html": {Data: []byte("test")}}
	s := New(eng, slog.Default(), 8080, WithStaticFS(staticFS), WithDevMode(true))

	assert.Equal(t, 8080, s.port)
	assert.True(t, s.devMode)
	assert.NotNil(t, s.staticFS)
}
