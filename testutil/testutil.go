package testutil

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"randomness-scorer/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var registryMu sync.Mutex

// ResetRegistryForTest points the metrics package at a fresh Prometheus
// registry for the duration of the test and restores the default
// registerer on cleanup.
//
// The package-level lock is held until the test completes, so tests using
// this helper serialize against each other; that is the price of swapping
// a process-global registry safely.
func ResetRegistryForTest(t *testing.T) *prometheus.Registry {
	t.Helper()

	registryMu.Lock()

	reg := prometheus.NewRegistry()
	metrics.ResetForTesting(reg)

	t.Cleanup(func() {
		metrics.ResetForTesting(prometheus.DefaultRegisterer)
		registryMu.Unlock()
	})

	return reg
}

// WaitForCondition polls check until it reports success or the context is
// cancelled.
func WaitForCondition[T any](ctx context.Context, check func() (T, bool)) (T, error) {
	var zero T
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		if val, ok := check(); ok {
			return val, nil
		}

		runtime.Gosched()
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForError blocks until ch yields a value and returns that value.
// The helper fails the test only if WaitForCondition returns an error.
func WaitForError(t *testing.T, ch <-chan error, desc string) error {
	t.Helper()
	ctx := context.Background()
	result, err := WaitForCondition(ctx, func() (error, bool) {
		select {
		case err := <-ch:
			return err, true
		default:
			return nil, false
		}
	})
	if err != nil {
		t.Fatalf("timeout waiting for %s: %v", desc, err)
	}
	return result
}
