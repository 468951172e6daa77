package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logLine decodes the single JSON log record the middleware wrote.
func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), "log output: %s", buf.String())
	return rec
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  float64
		wantLevel string
		wantBytes float64
	}{
		{
			name: "implicit 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("hello"))
			},
			wantCode:  200,
			wantLevel: "INFO",
			wantBytes: 5,
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantCode:  404,
			wantLevel: "WARN",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("{}"))
			},
			wantCode:  500,
			wantLevel: "ERROR",
			wantBytes: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			h := chimiddleware.RequestID(Logger(logger)(tt.handler))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

			rec := logLine(t, &buf)
			assert.Equal(t, "request completed", rec["msg"])
			assert.Equal(t, tt.wantLevel, rec["level"])
			assert.Equal(t, "GET", rec["method"])
			assert.Equal(t, "/api/posts", rec["path"])
			assert.Equal(t, tt.wantCode, rec["status"])
			assert.Equal(t, tt.wantBytes, rec["bytes"])
			assert.NotEmpty(t, rec["request_id"])
		})
	}
}

func TestLogger_KeepsFirstStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError) // superfluous; net/http ignores it
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/posts", nil))

	assert.Equal(t, float64(201), logLine(t, &buf)["status"])
}
