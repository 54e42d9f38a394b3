package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, handler http.HandlerFunc) (int, probeResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body probeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestLiveEndpoint_NoChecks(t *testing.T) {
	h := New()

	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("broken", time.Second, func(context.Context) error {
		return errors.New("down")
	})

	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "down", body.Checks["broken"])
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")
}

func TestReadyEndpoint_ReadyWithPassingChecks(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, func(context.Context) error { return nil })
	h.SetReady(true)

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyEndpoint_FailingCheckOverridesReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	h.SetReady(true)

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestReadyEndpoint_DrainOnShutdown(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, _ := probe(t, h.ReadyEndpoint)
	require.Equal(t, http.StatusOK, code)

	h.SetReady(false)
	code, _ = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
