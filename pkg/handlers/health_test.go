package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
)

type fakeConnectionTester struct {
	err error
}

func (f *fakeConnectionTester) TestConnection(context.Context) error { return f.err }
func (f *fakeConnectionTester) Close() error                         { return nil }

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name         string
		db           *fakeConnectionTester
		wantStatus   int
		wantResponse HealthResponse
	}{
		{
			name:         "without database",
			wantStatus:   http.StatusOK,
			wantResponse: HealthResponse{Status: "ok"},
		},
		{
			name:         "database up",
			db:           &fakeConnectionTester{},
			wantStatus:   http.StatusOK,
			wantResponse: HealthResponse{Status: "ok", Database: "up"},
		},
		{
			name:       "database down",
			db:         &fakeConnectionTester{err: errors.New("dial tcp: password=hunter2 refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantResponse: HealthResponse{
				Status:   "unavailable",
				Database: "down",
				Error:    "dial tcp: password=[REDACTED] refused",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Version: "test-version", Env: "test"}
			var handler *HealthHandler
			if tt.db != nil {
				handler = NewHealthHandler(cfg, tt.db, zap.NewNop())
			} else {
				handler = NewHealthHandler(cfg, nil, zap.NewNop())
			}

			rec := httptest.NewRecorder()
			handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var response HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
			assert.Equal(t, tt.wantResponse, response)
		})
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "test"}
	cfg.Database.Type = "sqlite"

	r := chi.NewRouter()
	NewHealthHandler(cfg, nil, zap.NewNop()).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, "ekaya-pagelist", response.Service)
	assert.Equal(t, "test", response.Environment)
	assert.Equal(t, "sqlite", response.Dialect)
	assert.NotEmpty(t, response.GoVersion)
}

func TestHealthHandler_RejectsWrongMethod(t *testing.T) {
	r := chi.NewRouter()
	NewHealthHandler(&config.Config{}, nil, zap.NewNop()).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
