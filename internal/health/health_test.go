package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestChecker_Ready(t *testing.T) {
	var calls []string
	ok := Check{Name: "db", Ping: func(context.Context) error { calls = append(calls, "db"); return nil }}
	bad := Check{Name: "redis", Ping: func(context.Context) error { calls = append(calls, "redis"); return errors.New("refused") }}
	never := Check{Name: "other", Ping: func(context.Context) error { calls = append(calls, "other"); return nil }}

	require.NoError(t, NewChecker(time.Second, ok).Ready(context.Background()))

	calls = nil
	err := NewChecker(time.Second, ok, bad, never).Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis not ready")
	assert.Equal(t, []string{"db", "redis"}, calls)
}

func TestChecker_Handler(t *testing.T) {
	healthy := true
	c := NewChecker(time.Second, Check{Name: "db", Ping: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("locked")
	}})
	h := c.Handler()

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, serve("/healthz").Code)
	assert.Equal(t, http.StatusOK, serve("/readyz").Code)

	healthy = false
	assert.Equal(t, http.StatusOK, serve("/healthz").Code)
	w := serve("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db not ready")
}

func TestChecker_UpdateGRPCStatus(t *testing.T) {
	healthy := false
	c := NewChecker(time.Second, Check{Name: "db", Ping: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	}})
	hs := health.NewServer()
	ctx := context.Background()

	assert.Error(t, c.Update(ctx, hs))
	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	healthy = true
	require.NoError(t, c.Update(ctx, hs))
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
