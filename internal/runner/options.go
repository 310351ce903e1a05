package runner

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Iteration abstracts one pass of a virtual user through its workload.
// Implementations should return an error for failed iterations.
type Iteration interface {
	Do(ctx context.Context) error
}

// IterationFunc adapts a plain function to the Iteration interface.
type IterationFunc func(ctx context.Context) error

func (f IterationFunc) Do(ctx context.Context) error {
	return f(ctx)
}

// Stage ramps the virtual user count linearly to Target over Duration.
type Stage struct {
	Target   int
	Duration time.Duration
}

// Options configure the Runner.
type Options struct {
	Stages           []Stage       // ramp profile (required)
	StartVUs         int           // virtual users at the start of the first stage
	GracefulStop     time.Duration // time a stopped VU may spend in its iteration (0 waits for it to finish)
	MaxIterationRate float64       // iterations started per second across all VUs (0 means unlimited)
	Iteration        Iteration     // per-VU workload (required)
	OnVUs            func(active int)
	LimiterFactory   func(rps float64) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.StartVUs < 0 {
		o.StartVUs = 0
	}
	if o.GracefulStop < 0 {
		o.GracefulStop = 0
	}
	if o.MaxIterationRate < 0 {
		o.MaxIterationRate = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps float64) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing across VUs.
			burst := int(math.Ceil(rps))
			return rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}
