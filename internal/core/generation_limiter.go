package core

// generation_limiter.go bounds how many calls to the data-generation
// collaborator run at once across all sessions.
//
// When every slot is taken, a request waits up to maxWait before failing
// with ErrTooManyGenerations. WaitForDrain supports graceful shutdown.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentGenerations is the default limit for parallel generations.
const DefaultMaxConcurrentGenerations = 4

// DefaultGenerationWait is how long to wait for a slot before rejecting.
const DefaultGenerationWait = 10 * time.Second

// GenerationLimiter is a weighted semaphore with an active counter.
type GenerationLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewGenerationLimiter allows at most maxConcurrent simultaneous generations.
func NewGenerationLimiter(maxConcurrent int, maxWait time.Duration) *GenerationLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentGenerations
	}
	if maxWait <= 0 {
		maxWait = DefaultGenerationWait
	}
	return &GenerationLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire takes a slot or fails with ErrTooManyGenerations once maxWait
// elapses. The caller must call Release after a nil return.
func (l *GenerationLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTooManyGenerations
		}
		return err
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *GenerationLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *GenerationLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of running generations.
func (l *GenerationLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no generation is running or ctx is done.
func (l *GenerationLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// GenerationLimiterStatus is a snapshot of the limiter.
type GenerationLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *GenerationLimiter) Status() GenerationLimiterStatus {
	active := l.ActiveCount()
	return GenerationLimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
