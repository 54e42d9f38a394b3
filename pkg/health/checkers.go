package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is anything with a Ping method, such as a database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a CheckFunc that pings p. Useful as a readiness check
// for database connectivity.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return errors.Wrap(p.Ping(ctx), "ping")
	}
}

// GoroutineCountCheck reports unhealthy when the goroutine count exceeds
// threshold. Useful as a liveness check against goroutine leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}
