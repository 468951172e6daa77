package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/blog-platform/internal/handler"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("store reachable", func(t *testing.T) {
		api := newTestAPI(t)
		rr := api.do(t, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("store down", func(t *testing.T) {
		h := handler.NewHealthHandler(pingerFunc(func(context.Context) error {
			return errors.New("connection refused")
		}), logger)

		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"unavailable"}`, rr.Body.String())
		assert.NotContains(t, rr.Body.String(), "refused")
	})

	t.Run("ping gets a deadline", func(t *testing.T) {
		var hadDeadline bool
		h := handler.NewHealthHandler(pingerFunc(func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		}), logger)

		h.HandleHealth(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.True(t, hadDeadline)
	})
}
