package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onemec/gmeet-slash-cmd/internal/kv"
)

func serve(t *testing.T, handler http.Handler, path string) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(brokenStore{})

	code, resp := serve(t, h.LivenessHandler(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, resp.Status)
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		storage  Pinger
		setup    func(h *HealthChecker)
		wantCode int
		wantKey  string
		wantVal  string
	}{
		{
			name:     "ready",
			storage:  kv.NewMemoryStore(),
			wantCode: http.StatusOK,
			wantKey:  "storage",
			wantVal:  healthStatusOK,
		},
		{
			name:     "no storage",
			wantCode: http.StatusOK,
			wantKey:  "ready",
			wantVal:  healthStatusOK,
		},
		{
			name:     "storage down",
			storage:  brokenStore{},
			wantCode: http.StatusServiceUnavailable,
			wantKey:  "storage",
			wantVal:  healthStatusUnreachable,
		},
		{
			name:     "not ready",
			storage:  kv.NewMemoryStore(),
			setup:    func(h *HealthChecker) { h.SetReady(false) },
			wantCode: http.StatusServiceUnavailable,
			wantKey:  "ready",
			wantVal:  healthStatusNotReady,
		},
		{
			name:     "shutting down",
			storage:  kv.NewMemoryStore(),
			setup:    func(h *HealthChecker) { h.MarkShuttingDown() },
			wantCode: http.StatusServiceUnavailable,
			wantKey:  "shutdown",
			wantVal:  healthStatusShuttingDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(tt.storage)
			if tt.setup != nil {
				tt.setup(h)
			}

			code, resp := serve(t, h.ReadinessHandler(), "/readyz")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantVal, resp.Checks[tt.wantKey])
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, healthStatusOK, resp.Status)
			} else {
				assert.Equal(t, healthStatusNotReady, resp.Status)
			}
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.NotEmpty(t, resp.Uptime)

	h.MarkShuttingDown()
	rec = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthChecker_Registered(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthChecker(kv.NewMemoryStore()).RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
