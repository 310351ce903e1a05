package runner

import (
	"context"

	"golang.org/x/time/rate"
)

func newArrival(opt Options) *uniformArrival {
	if opt.MaxIterationRate <= 0 {
		return nil
	}
	return &uniformArrival{limiter: opt.LimiterFactory(opt.MaxIterationRate)}
}

// uniformArrival delegates iteration pacing to a rate.Limiter shared by all VUs.
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return ctx.Err()
	}
	return u.limiter.Wait(ctx)
}
