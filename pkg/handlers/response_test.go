package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errorCode  string
		message    string
	}{
		{"bad request", http.StatusBadRequest, "invalid_request", "Invalid request body"},
		{"not found", http.StatusNotFound, "not_found", "Unknown parameter"},
		{"internal error", http.StatusInternalServerError, "evaluation_failed", "Failed to evaluate page list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, ErrorResponse(rec, tt.statusCode, tt.errorCode, tt.message))

			assert.Equal(t, tt.statusCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ApiResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.errorCode, body.Error)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]int{"count": 5}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"count":5}`, rec.Body.String())

	rec = httptest.NewRecorder()
	assert.Error(t, WriteJSON(rec, http.StatusOK, make(chan int)))
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"input":"category = A"}`, false},
		{"unknown field", `{"input":"a","extra":1}`, true},
		{"truncated", `{"input":`, true},
		{"too large", `{"input":"` + strings.Repeat("a", maxRequestBody) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst EvaluateRequest
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "category = A", dst.Input)
		})
	}
}
