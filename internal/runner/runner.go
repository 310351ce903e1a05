package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// controllerTick is how often the VU controller re-reads the stage plan.
const controllerTick = 100 * time.Millisecond

// Result captures execution summary.
type Result struct {
	Iterations  int64 // completed iterations
	Failed      int64 // completed iterations that returned an error
	Interrupted int64 // iterations cut off by cancellation or GracefulStop
	Duration    time.Duration
	MaxVUs      int
}

// Runner drives virtual users through a ramping stage profile.
type Runner struct {
	opt     Options
	plan    *stagePlan
	arrival *uniformArrival
}

func New(opt Options) *Runner {
	opt.normalize()
	plan := compileStagePlan(opt.StartVUs, opt.Stages)
	return &Runner{opt: opt, plan: plan, arrival: newArrival(opt)}
}

// Duration returns the planned length of the ramp profile.
func (r *Runner) Duration() time.Duration {
	return r.plan.totalDuration()
}

// virtualUser is one looping worker. Its wait context is cancelled as soon
// as it is asked to stop; its iteration context only once GracefulStop runs
// out (or the run is cancelled).
type virtualUser struct {
	ctx        context.Context
	cancel     context.CancelFunc
	waitCtx    context.Context
	waitCancel context.CancelFunc
}

type counters struct {
	iterations  atomic.Int64
	failed      atomic.Int64
	interrupted atomic.Int64
}

func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var c counters
	var wg sync.WaitGroup
	var active []*virtualUser
	maxVUs := 0

	scale := func(target int) {
		for len(active) < target {
			vu := r.spawn(ctx)
			active = append(active, vu)
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.loop(vu, &c)
			}()
		}
		for len(active) > target {
			last := active[len(active)-1]
			active = active[:len(active)-1]
			r.stop(last)
		}
		if len(active) > maxVUs {
			maxVUs = len(active)
		}
		if r.opt.OnVUs != nil {
			r.opt.OnVUs(len(active))
		}
	}

	if initial, ok := r.plan.vusAt(0); ok && ctx.Err() == nil {
		scale(initial)

		ticker := time.NewTicker(controllerTick)
	control:
		for {
			select {
			case <-ctx.Done():
				break control
			case <-ticker.C:
				target, ok := r.plan.vusAt(time.Since(start))
				if !ok {
					break control
				}
				scale(target)
			}
		}
		ticker.Stop()
	}

	scale(0)
	wg.Wait()

	return Result{
		Iterations:  c.iterations.Load(),
		Failed:      c.failed.Load(),
		Interrupted: c.interrupted.Load(),
		Duration:    time.Since(start),
		MaxVUs:      maxVUs,
	}
}

func (r *Runner) spawn(ctx context.Context) *virtualUser {
	vuCtx, cancel := context.WithCancel(ctx)
	waitCtx, waitCancel := context.WithCancel(vuCtx)
	return &virtualUser{ctx: vuCtx, cancel: cancel, waitCtx: waitCtx, waitCancel: waitCancel}
}

func (r *Runner) stop(vu *virtualUser) {
	vu.waitCancel()
	if r.opt.GracefulStop > 0 {
		time.AfterFunc(r.opt.GracefulStop, vu.cancel)
	}
}

func (r *Runner) loop(vu *virtualUser, c *counters) {
	defer vu.cancel()

	if r.opt.Iteration == nil {
		<-vu.waitCtx.Done()
		return
	}
	for {
		if vu.waitCtx.Err() != nil {
			return
		}
		if err := r.arrival.Wait(vu.waitCtx); err != nil {
			return
		}
		err := r.opt.Iteration.Do(vu.ctx)
		if err != nil && vu.ctx.Err() != nil {
			c.interrupted.Add(1)
			return
		}
		c.iterations.Add(1)
		if err != nil {
			c.failed.Add(1)
		}
	}
}
