package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, window time.Duration) (*rateLimiter, *time.Time) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(RateLimitConfig{Max: max, Window: window})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_AllowsUpToMax(t *testing.T) {
	rl, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _, _ := rl.allow("k")
		require.True(t, allowed, "request %d", i+1)
	}
	allowed, remaining, _ := rl.allow("k")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl, now := newTestLimiter(1, time.Minute)

	allowed, _, _ := rl.allow("k")
	require.True(t, allowed)
	allowed, _, _ = rl.allow("k")
	require.False(t, allowed)

	*now = now.Add(time.Minute)
	allowed, _, _ = rl.allow("k")
	assert.True(t, allowed)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	allowed, _, _ := rl.allow("a")
	require.True(t, allowed)
	allowed, _, _ = rl.allow("b")
	assert.True(t, allowed)
}

func TestRateLimiter_Evict(t *testing.T) {
	rl, now := newTestLimiter(1, time.Minute)

	rl.allow("k")
	*now = now.Add(2 * time.Minute)
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.windows)
}

func TestRateLimit_Middleware(t *testing.T) {
	handler := Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		RateLimit(t.Context(), RateLimitConfig{Max: 1, Window: time.Minute}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client is unaffected.
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
