package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clickpredict/internal/config"
	"clickpredict/internal/inference"
	"clickpredict/internal/testutil"
	"clickpredict/internal/training"
)

type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func trained(t *testing.T) (*inference.Service, Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Dataset.Path = testutil.WriteBankCSV(t, 300, 9)
	cfg.Artifacts.Model = filepath.Join(dir, "model_weights.mw")
	cfg.Artifacts.Importances = filepath.Join(dir, "importances.csv")
	cfg.Artifacts.Metadata = ""

	_, err := training.Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	service, err := inference.Load(cfg.Artifacts.Model, inference.Options{CacheSize: 16})
	require.NoError(t, err)

	return service, Config{
		ImportancesPath: cfg.Artifacts.Importances,
		DatasetPath:     cfg.Dataset.Path,
		IDColumn:        cfg.Dataset.IDColumn,
		TargetColumn:    cfg.Dataset.TargetColumn,
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func TestHealth(t *testing.T) {
	service, cfg := trained(t)
	h := NewServer(service, cfg, zap.NewNop()).Routes()

	rr, env := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.True(t, health.Model)
	assert.Len(t, health.Features, 9)
	assert.Equal(t, "Accuracy", health.Metric)
	assert.Positive(t, health.Iterations)
}

func TestPredict(t *testing.T) {
	service, cfg := trained(t)
	h := NewServer(service, cfg, zap.NewNop()).Routes()

	body := `{"gender":"male","age":25,"children":0,"dependants":0,"employed":true,"personal_income":0,"loans":0,"closed_loans":0}`
	rr, env := do(t, h, http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 0, env.Status)

	var pred predictResponse
	require.NoError(t, json.Unmarshal(env.Data, &pred))
	assert.Contains(t, []int{0, 1}, pred.Label)
	assert.Equal(t, pred.Label == 1, pred.Interested)
	assert.InDelta(t, 1.0, pred.Probabilities[0]+pred.Probabilities[1], 1e-6)
	assert.Equal(t, pred.Probabilities[pred.Label], pred.Confidence)
}

func TestPredictRejectsBadInput(t *testing.T) {
	service, cfg := trained(t)
	h := NewServer(service, cfg, zap.NewNop()).Routes()

	tests := map[string]string{
		"not json":     `{"age":`,
		"out of range": `{"age":150}`,
		"bad gender":   `{"gender":"robot"}`,
		"unparsable":   `{"loans":"many"}`,
		"nan income":   `{"personal_income":"NaN"}`,
		"inf income":   `{"personal_income":"Inf"}`,
		"fractional":   `{"age":25.7}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rr, env := do(t, h, http.MethodPost, "/predict", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, 1, env.Status)
			assert.NotEmpty(t, env.Msg)
		})
	}
}

func TestPredictWithoutModel(t *testing.T) {
	_, cfg := trained(t)
	h := NewServer(nil, cfg, nil).Routes()

	rr, env := do(t, h, http.MethodPost, "/predict", `{"age":30}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, env.Msg, "prediction unavailable")

	rr, env = do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.False(t, health.Model)
}

func TestImportances(t *testing.T) {
	service, cfg := trained(t)
	h := NewServer(service, cfg, zap.NewNop()).Routes()

	type row struct {
		Feature string  `json:"feature"`
		Weight  float64 `json:"weight"`
	}

	rr, env := do(t, h, http.MethodGet, "/importances?n=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var most []row
	require.NoError(t, json.Unmarshal(env.Data, &most))
	assert.Len(t, most, 3)

	rr, env = do(t, h, http.MethodGet, "/importances?n=100&direction=least", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var least []row
	require.NoError(t, json.Unmarshal(env.Data, &least))
	require.Len(t, least, 9)
	assert.Equal(t, most[0], least[8])

	rr, _ = do(t, h, http.MethodGet, "/importances?n=0", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, h, http.MethodGet, "/importances?direction=up", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImportancesBeforeTraining(t *testing.T) {
	h := NewServer(nil, Config{ImportancesPath: filepath.Join(t.TempDir(), "importances.csv")}, nil).Routes()

	rr, _ := do(t, h, http.MethodGet, "/importances", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDatasetSummary(t *testing.T) {
	service, cfg := trained(t)
	h := NewServer(service, cfg, zap.NewNop()).Routes()

	rr, env := do(t, h, http.MethodGet, "/dataset/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var summary struct {
		Samples           int               `json:"samples"`
		Features          []json.RawMessage `json:"features"`
		ClassDistribution map[string]int    `json:"class_distribution"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 300, summary.Samples)
	assert.Len(t, summary.Features, 9)
	assert.Equal(t, 300, summary.ClassDistribution["0"]+summary.ClassDistribution["1"])

	missing := NewServer(service, Config{DatasetPath: filepath.Join(t.TempDir(), "absent.csv")}, nil).Routes()
	rr, _ = do(t, missing, http.MethodGet, "/dataset/summary", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	service, cfg := trained(t)
	h := NewServer(service, cfg, zap.NewNop()).Routes()

	do(t, h, http.MethodPost, "/predict", `{"age":40,"personal_income":20000}`)
	do(t, h, http.MethodPost, "/predict", `{"age":400}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "clickpredict_predictions_total")
	assert.Contains(t, body, `clickpredict_prediction_failures_total{reason="invalid_profile"} 1`)
	assert.Contains(t, body, "clickpredict_prediction_duration_seconds_count 1")
}

func TestCORSPreflight(t *testing.T) {
	h := NewServer(nil, Config{}, nil).Routes()

	req := httptest.NewRequest(http.MethodOptions, "/predict", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
