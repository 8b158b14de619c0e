package chrono

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	DefaultPaceMin = 150 * time.Millisecond
	DefaultPaceMax = 500 * time.Millisecond
)

// Pacer is the delay inserted between two sequential submissions.
type Pacer interface {
	Pause(ctx context.Context) error
}

// RandomPacer sleeps for a uniformly distributed duration in [Min, Max].
type RandomPacer struct {
	Min  time.Duration
	Max  time.Duration
	time TimeAPI
}

// NewRandomPacer swaps min and max if they are given in the wrong order, a
// zero max falls back to the defaults.
func NewRandomPacer(time TimeAPI, min, max time.Duration) RandomPacer {
	if max <= 0 {
		min, max = DefaultPaceMin, DefaultPaceMax
	}
	if min > max {
		min, max = max, min
	}
	if min < 0 {
		min = 0
	}
	return RandomPacer{Min: min, Max: max, time: time}
}

// Next returns the next delay without sleeping.
func (p RandomPacer) Next() time.Duration {
	span := p.Max - p.Min
	if span <= 0 {
		return p.Min
	}
	return p.Min + rand.N(span+1)
}

func (p RandomPacer) Pause(ctx context.Context) error {
	return p.time.Sleep(ctx, p.Next())
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Pause(ctx context.Context) error {
	return ctx.Err()
}
