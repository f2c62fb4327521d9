// Package testutil provides polling helpers for tests that wait on work
// crossing a goroutine or loop boundary.
package testutil

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultTimeout bounds a wait in tests that cross a loop boundary.
	DefaultTimeout = 5 * time.Second

	// DefaultInterval is the polling period used by Eventually.
	DefaultInterval = 5 * time.Millisecond
)

// Poll repeatedly checks a condition until it becomes true or timeout expires.
// Returns an error if timeout expires before condition becomes true.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if condition() {
			return nil
		}

		if time.Since(start) >= timeout {
			return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForState waits until the state getter returns a value that satisfies
// the predicate function, or timeout expires.
//
// Example usage:
//
//	frame, err := WaitForState(ctx, sc.Frame,
//		func(n uint64) bool { return n >= 3 },
//		time.Second,
//		10*time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	var state T
	err := Poll(ctx, func() bool {
		state = getter()
		return predicate(state)
	}, timeout, interval)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("waiting for target state (type %T): %w", zero, err)
	}
	return state, nil
}

// Eventually is Poll with the default timeout and interval.
func Eventually(ctx context.Context, condition func() bool) error {
	return Poll(ctx, condition, DefaultTimeout, DefaultInterval)
}
