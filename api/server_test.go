package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoex/adapters/excel"
	"gocoex/app"
	"gocoex/domain/dataset"
	"gocoex/domain/run"
	"gocoex/internal/config"
	"gocoex/internal/testkit"
)

func newTestServer(t *testing.T) (*Server, *testkit.InMemoryRunRepository) {
	t.Helper()
	repo := testkit.NewInMemoryRunRepository()
	service := app.NewAnalysisService(repo, 2, 2)
	defaults := config.AnalysisConfig{
		Method:          "pearson",
		KernelFamily:    "gaussian",
		KernelParameter: 15,
		KernelCutoff:    0.05,
	}
	return NewServer(service, excel.NewWorkbookResolver(), defaults, "", gin.TestMode), repo
}

func testBundle(t *testing.T) (*dataset.ExpressionBundle, *testkit.SpatialDataGenerator) {
	t.Helper()
	gen := testkit.NewSpatialDataGenerator(testkit.DefaultSpatialConfig())
	bundle, err := gen.GenerateBundle()
	require.NoError(t, err)
	return bundle, gen
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func inlinePayload(bundle *dataset.ExpressionBundle, pairs []string) AnalysisPayload {
	spots := make([]string, len(bundle.Spots))
	for i, s := range bundle.Spots {
		spots[i] = string(s)
	}
	entities := make([]string, len(bundle.Entities))
	for i, e := range bundle.Entities {
		entities[i] = string(e)
	}
	return AnalysisPayload{
		Entities: entities,
		Spots:    spots,
		Values:   bundle.Values,
		Coords:   bundle.Coords,
		Pairs:    pairs,
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateAnalysisInline(t *testing.T) {
	s, repo := newTestServer(t)
	bundle, _ := testBundle(t)

	payload := inlinePayload(bundle, []string{"liga^reca", "noise1^noise2"})
	payload.Params = run.Parameters{Permutations: 25, Seed: 9}

	rec := doJSON(t, s, http.MethodPost, "/v1/analyses", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created run.AnalysisRun
	decodeInto(t, rec, &created)
	assert.Equal(t, run.StatusCompleted, created.Status)
	assert.Equal(t, len(bundle.Spots), created.SpotCount)
	assert.Equal(t, 2, created.PairCount)
	assert.Len(t, created.Summaries, 2)

	rec = doJSON(t, s, http.MethodGet, "/v1/analyses/"+string(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched run.AnalysisRun
	decodeInto(t, rec, &fetched)
	assert.Equal(t, created.Fingerprint, fetched.Fingerprint)

	rec = doJSON(t, s, http.MethodGet, "/v1/analyses/"+string(created.ID)+"/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result run.Result
	decodeInto(t, rec, &result)
	assert.Len(t, result.Stats, len(bundle.Spots))
	assert.Len(t, result.Stats[0], 2)
	assert.NotEmpty(t, result.Pvals, "permutations were requested")

	rec = doJSON(t, s, http.MethodGet, "/v1/analyses?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Runs  []run.AnalysisRun `json:"runs"`
		Count int               `json:"count"`
	}
	decodeInto(t, rec, &listing)
	assert.Equal(t, 1, listing.Count)

	stored, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, stored.Status)
}

func TestCreateAnalysisAppliesDefaults(t *testing.T) {
	s, _ := newTestServer(t)
	bundle, _ := testBundle(t)

	payload := inlinePayload(bundle, []string{"liga^reca"})

	rec := doJSON(t, s, http.MethodPost, "/v1/analyses", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created run.AnalysisRun
	decodeInto(t, rec, &created)
	assert.Equal(t, "pearson", created.Params.Method)
	assert.Equal(t, "gaussian", created.Params.KernelFamily)
	assert.Equal(t, 15.0, created.Params.KernelParam)
	require.NotNil(t, created.Params.KernelCutoff)
	assert.Equal(t, 0.05, *created.Params.KernelCutoff)

	// permutations were left at zero, so no p-values were computed
	rec = doJSON(t, s, http.MethodGet, "/v1/analyses/"+string(created.ID)+"/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result run.Result
	decodeInto(t, rec, &result)
	assert.Empty(t, result.Pvals)
}

func TestCreateAnalysisKeepsExplicitKNN(t *testing.T) {
	s, _ := newTestServer(t)
	bundle, _ := testBundle(t)

	payload := inlinePayload(bundle, []string{"liga^reca"})
	payload.Params = run.Parameters{NNeighbors: 6}

	rec := doJSON(t, s, http.MethodPost, "/v1/analyses", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created run.AnalysisRun
	decodeInto(t, rec, &created)
	assert.Nil(t, created.Params.KernelCutoff, "knn requests must not gain a cutoff default")
	assert.Equal(t, 6, created.Params.NNeighbors)
}

func TestCreateAnalysisValidation(t *testing.T) {
	s, _ := newTestServer(t)
	bundle, _ := testBundle(t)

	base := func() AnalysisPayload { return inlinePayload(bundle, []string{"liga^reca"}) }

	tests := []struct {
		name    string
		payload AnalysisPayload
	}{
		{"no pairs", func() AnalysisPayload { p := base(); p.Pairs = nil; return p }()},
		{"malformed pair key", func() AnalysisPayload { p := base(); p.Pairs = []string{"liga-reca"}; return p }()},
		{"unknown method", func() AnalysisPayload {
			p := base()
			p.Params = run.Parameters{Method: "morans"}
			return p
		}()},
		{"unknown kernel", func() AnalysisPayload {
			p := base()
			p.Params = run.Parameters{KernelFamily: "cubic"}
			return p
		}()},
		{"values without entities", func() AnalysisPayload { p := base(); p.Entities = nil; return p }()},
		{"spot count mismatch", func() AnalysisPayload { p := base(); p.Spots = p.Spots[:3]; return p }()},
		{"no values and no source", func() AnalysisPayload {
			return AnalysisPayload{Pairs: []string{"liga^reca"}}
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/v1/analyses", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestCreateAnalysisFromWorkbook(t *testing.T) {
	s, _ := newTestServer(t)
	bundle, _ := testBundle(t)

	path := filepath.Join(t.TempDir(), "spots.xlsx")
	require.NoError(t, excel.WriteBundle(path, bundle))

	payload := AnalysisPayload{
		Source:   path,
		Entities: []string{"liga", "reca"},
		Pairs:    []string{"liga^reca"},
	}

	rec := doJSON(t, s, http.MethodPost, "/v1/analyses", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created run.AnalysisRun
	decodeInto(t, rec, &created)
	assert.Equal(t, run.StatusCompleted, created.Status)
	assert.Equal(t, len(bundle.Spots), created.SpotCount)
}

func TestCreateAnalysisUsesConfiguredWorkbook(t *testing.T) {
	bundle, _ := testBundle(t)
	path := filepath.Join(t.TempDir(), "default.xlsx")
	require.NoError(t, excel.WriteBundle(path, bundle))

	repo := testkit.NewInMemoryRunRepository()
	service := app.NewAnalysisService(repo, 2, 2)
	defaults := config.AnalysisConfig{
		Method:          "pearson",
		KernelFamily:    "gaussian",
		KernelParameter: 15,
		KernelCutoff:    0.05,
	}
	s := NewServer(service, excel.NewWorkbookResolver(), defaults, path, gin.TestMode)

	rec := doJSON(t, s, http.MethodPost, "/v1/analyses", AnalysisPayload{Pairs: []string{"liga^reca"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created run.AnalysisRun
	decodeInto(t, rec, &created)
	assert.Equal(t, run.StatusCompleted, created.Status)
	assert.Equal(t, len(bundle.Spots), created.SpotCount)
}

func TestCreateAnalysisUnknownSourceEntity(t *testing.T) {
	s, _ := newTestServer(t)
	bundle, _ := testBundle(t)

	path := filepath.Join(t.TempDir(), "spots.xlsx")
	require.NoError(t, excel.WriteBundle(path, bundle))

	payload := AnalysisPayload{
		Source:   path,
		Entities: []string{"liga", "ghost"},
		Pairs:    []string{"liga^ghost"},
	}

	rec := doJSON(t, s, http.MethodPost, "/v1/analyses", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestGetAnalysisNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/v1/analyses/no-such-run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/analyses/no-such-run/result", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAnalysesRejectsBadPaging(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/v1/analyses?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/analyses?offset=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMethods(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/v1/methods", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Methods    []string `json:"methods"`
		Kernels    []string `json:"kernels"`
		Estimators []string `json:"estimators"`
	}
	decodeInto(t, rec, &body)
	assert.Contains(t, body.Methods, "pearson")
	assert.Contains(t, body.Methods, "spearman")
	assert.Contains(t, body.Kernels, "gaussian")
	assert.Contains(t, body.Estimators, "mean")
}
