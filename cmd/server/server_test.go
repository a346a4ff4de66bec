package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/database"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/pipeline"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/regression"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	log := logger.CreateTestLogger(t.TempDir()+"/server-test.log", "debug")
	stub := pipeline.NewStubGenerator(t.TempDir(), "product-catalog", "shopping-cart")
	stub.Isolate = true

	api := &apiServer{
		pipeline: pipeline.New(pipeline.NewConfig(), stub, database.NewMemoryStore(), nil, log),
		runner:   regression.NewRunner(nil, log).SetBaseDir(t.TempDir()),
		logger:   log,
	}
	return newRouter(api)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody(t, w)
	assert.Equal(t, "healthy", got["status"])
	assert.EqualValues(t, len(regression.SuiteNames()), got["suites"])
}

func TestAnalyzeEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/analyze", map[string]string{
		"text": "Create an online store with a product catalog and shopping cart",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody(t, w)
	assert.Equal(t, "e-commerce", got["domain"])
	assert.NotEmpty(t, got["key_features"])
}

func TestAnalyzeRejectsMissingText(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/analyze", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonalizeEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/personalize", map[string]string{
		"text": "Build an analytics dashboard with charts",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody(t, w)
	template, ok := got["template"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "react-vite-app", template["base_template"])
}

func TestValidateRejectsMissingArtifact(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/validate", map[string]string{
		"path": t.TempDir() + "/does-not-exist",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPipelineRunEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/pipeline/run", map[string]string{
		"prompt": "Create an online store with a product catalog and shopping cart",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody(t, w)
	assert.Equal(t, true, got["success"])
	assert.EqualValues(t, 1, got["attempts"])
	require.NotNil(t, got["validation"])
}

func TestPipelineRunRequiresPrompt(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/pipeline/run", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/pipeline/run", map[string]string{
		"session_id": "user-9",
		"prompt":     "Create an online store with a product catalog and shopping cart",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-9")

	w = doJSON(t, router, http.MethodGet, "/api/sessions/user-9", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/sessions/user-9", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/sessions/user-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegressionUnknownSuite(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/regression/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
