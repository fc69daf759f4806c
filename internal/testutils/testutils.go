// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every test context
const DefaultTimeout = 5 * time.Second

// Context returns a context that is cancelled after DefaultTimeout or when the test ends
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	t.Cleanup(cancel)
	return ctx
}

// Drain calls next until it reports no more values and returns everything it produced.
// It fails the test if more than limit values are produced.
func Drain[T any](t testing.TB, next func() (T, bool), limit int) []T {
	t.Helper()

	var values []T
	for {
		v, ok := next()
		if !ok {
			return values
		}
		values = append(values, v)
		require.LessOrEqual(t, len(values), limit, "sequence did not end within %d values", limit)
	}
}
