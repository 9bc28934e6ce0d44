package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/monitoring"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

func newTestServer(t *testing.T, opts Options) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServer(opts)
	return s, s.Router()
}

func risingCandles(n int) []types.PriceCandle {
	return data.Linear(data.SyntheticParams{Count: n}, 100, 1)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBacktestEndpoint(t *testing.T) {
	_, r := newTestServer(t, Options{})

	w := doJSON(t, r, http.MethodPost, "/v1/backtests", BacktestRequest{RunParams: RunParams{Candles: risingCandles(120)}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BacktestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, 120, resp.Result.Candles)
	assert.Equal(t, 50, resp.Result.StartIndex)
	assert.Len(t, resp.Result.Snapshots, 70)

	metrics := doJSON(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `sim_runs_total{outcome="success"} 1`)

	health := doJSON(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, health.Code)
	var status monitoring.HealthStatus
	require.NoError(t, json.Unmarshal(health.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 1, status.RunsCompleted)
	assert.Equal(t, monitoring.OutcomeSuccess, status.LastOutcome)
}

func TestBacktestConfigOverride(t *testing.T) {
	_, r := newTestServer(t, Options{})

	body := map[string]interface{}{
		"candles": risingCandles(120),
		"config":  map[string]interface{}{"warmup_periods": 60},
	}
	w := doJSON(t, r, http.MethodPost, "/v1/backtests", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BacktestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 60, resp.Result.StartIndex)
	assert.Len(t, resp.Result.Snapshots, 60)
}

func TestBacktestErrors(t *testing.T) {
	_, r := newTestServer(t, Options{})

	tests := []struct {
		name     string
		body     interface{}
		status   int
		category string
	}{
		{"malformed json", `{"candles": [`, http.StatusBadRequest, ""},
		{"no candles", map[string]interface{}{}, http.StatusBadRequest, "DATA"},
		{"too few candles", map[string]interface{}{"candles": risingCandles(10)}, http.StatusBadRequest, "DATA"},
		{"unknown config field", map[string]interface{}{
			"candles": risingCandles(120),
			"config":  map[string]interface{}{"nope": 1},
		}, http.StatusBadRequest, "CONFIG"},
		{"invalid config", map[string]interface{}{
			"candles": risingCandles(120),
			"config":  map[string]interface{}{"bullish": nil},
		}, http.StatusBadRequest, "CONFIG"},
		{"mismatched secondary", map[string]interface{}{
			"candles":   risingCandles(120),
			"secondary": risingCandles(100),
		}, http.StatusBadRequest, "DATA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/v1/backtests", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.category, resp.Category)
		})
	}
}

func TestBacktestWithSecondary(t *testing.T) {
	_, r := newTestServer(t, Options{})

	candles := risingCandles(120)
	secondary := data.Linear(data.SyntheticParams{Count: 120}, 50, 0.5)
	w := doJSON(t, r, http.MethodPost, "/v1/backtests", BacktestRequest{
		RunParams: RunParams{Candles: candles, Secondary: secondary},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestBatchEndpoint(t *testing.T) {
	_, r := newTestServer(t, Options{Workers: 2})

	body := map[string]interface{}{
		"candles": risingCandles(120),
		"configs": []interface{}{
			nil,
			map[string]interface{}{"bullish": nil},
			map[string]interface{}{"warmup_periods": 60},
		},
	}
	w := doJSON(t, r, http.MethodPost, "/v1/backtests/batch", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 1, resp.Failed)

	for i, item := range resp.Results {
		assert.Equal(t, i, item.Seq)
		assert.NotEmpty(t, item.ID)
	}
	require.NotNil(t, resp.Results[0].Result)
	assert.Equal(t, 50, resp.Results[0].Result.StartIndex)

	assert.Nil(t, resp.Results[1].Result)
	assert.Equal(t, "CONFIG", resp.Results[1].Category)
	assert.True(t, strings.Contains(resp.Results[1].Error, "bullish"))

	require.NotNil(t, resp.Results[2].Result)
	assert.Equal(t, 60, resp.Results[2].Result.StartIndex)
}

func TestBatchLimits(t *testing.T) {
	_, r := newTestServer(t, Options{MaxBatch: 1})

	w := doJSON(t, r, http.MethodPost, "/v1/backtests/batch", map[string]interface{}{
		"candles": risingCandles(120),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/backtests/batch", map[string]interface{}{
		"candles": risingCandles(120),
		"configs": []interface{}{nil, nil},
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealthDegradesAfterFailures(t *testing.T) {
	s, r := newTestServer(t, Options{FailureLimit: 1})
	s.metrics.RunStarted()
	s.metrics.RunFinished(monitoring.OutcomeError, 0, 0)

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
