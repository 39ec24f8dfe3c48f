// Package timegate decides how long the checker sleeps before its next poll.
package timegate

import (
	"math/rand/v2"
	"time"
)

// BoundaryBuffer is added to a boundary-avoidance wait so the next poll lands
// just after the top of the hour.
const BoundaryBuffer = 10 * time.Second

// Reason explains why a delay was chosen.
type Reason string

const (
	ReasonBoundary Reason = "boundary avoidance"
	ReasonJitter   Reason = "jittered poll"
)

// Decision is the outcome of one Time Gate evaluation.
type Decision struct {
	Wait   time.Duration
	Reason Reason
	// UntilBoundary is the time left before the top of the hour, only set for ReasonBoundary.
	UntilBoundary time.Duration
}

// NextDelay computes the wait before the next poll at the wall-clock time now.
// Intervals are in seconds and are expected to be clamped already (min >= 10,
// max >= min+5). A fixedInterval > 0 replaces the random draw.
func NextDelay(now time.Time, maxInterval, minInterval, fixedInterval int, rng *rand.Rand) Decision {
	elapsed := now.Minute()*60 + now.Second()
	toHour := 3600 - elapsed
	if toHour <= maxInterval {
		until := time.Duration(toHour) * time.Second
		return Decision{
			Wait:          until + BoundaryBuffer,
			Reason:        ReasonBoundary,
			UntilBoundary: until,
		}
	}

	if fixedInterval > 0 {
		return Decision{Wait: time.Duration(fixedInterval) * time.Second, Reason: ReasonJitter}
	}

	span := maxInterval - minInterval + 1
	if span < 1 {
		span = 1
	}
	var n int
	if rng != nil {
		n = rng.IntN(span)
	} else {
		n = rand.IntN(span)
	}
	return Decision{Wait: time.Duration(minInterval+n) * time.Second, Reason: ReasonJitter}
}

// Gate binds NextDelay to configured intervals, a clock and a random source.
type Gate struct {
	MinInterval   int
	MaxInterval   int
	FixedInterval int

	now func() time.Time
	rng *rand.Rand
}

// Option customises a Gate.
type Option func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithRand replaces the global random source.
func WithRand(rng *rand.Rand) Option {
	return func(g *Gate) { g.rng = rng }
}

// New creates a Gate.
func New(minInterval, maxInterval, fixedInterval int, opts ...Option) *Gate {
	g := &Gate{
		MinInterval:   minInterval,
		MaxInterval:   maxInterval,
		FixedInterval: fixedInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next evaluates the gate at the current time.
func (g *Gate) Next() Decision {
	return NextDelay(g.now(), g.MaxInterval, g.MinInterval, g.FixedInterval, g.rng)
}
