// Package pacing spaces out calls to rate-limited image providers.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next call may proceed or ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interval lets the first Wait through immediately and each following Wait
// one interval after the previous one. Callers wait before every call,
// including the first.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates an Interval pacer. A non-positive interval disables pacing.
func NewInterval(interval time.Duration) Pacer {
	if interval <= 0 {
		return None{}
	}
	return &Interval{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// PerRun returns a factory that builds a fresh pacer for each run.
func PerRun(interval time.Duration) func() Pacer {
	return func() Pacer { return NewInterval(interval) }
}

func (p *Interval) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// None never blocks.
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}
