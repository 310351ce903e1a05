package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/qa21t02/dbjourney/internal/runner"
)

// fakeIteration simulates a session with fixed latency and tracks concurrency.
type fakeIteration struct {
	latency   time.Duration
	calls     atomic.Int64
	inFlight  atomic.Int64
	peak      atomic.Int64
	failEvery int64 // if >0, every failEvery-th call fails
}

func (f *fakeIteration) Do(ctx context.Context) error {
	n := f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	select {
	case <-time.After(f.latency):
	case <-ctx.Done():
		return ctx.Err()
	}
	if f.failEvery > 0 && n%f.failEvery == 0 {
		return errors.New("check failed")
	}
	return nil
}

// vuRecorder collects OnVUs callbacks.
type vuRecorder struct {
	mu     sync.Mutex
	values []int
}

func (v *vuRecorder) observe(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values = append(v.values, n)
}

func (v *vuRecorder) snapshot() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.values...)
}

// TestRunnerHoldsConstantVUs ensures a flat stage keeps the VU count steady.
func TestRunnerHoldsConstantVUs(t *testing.T) {
	it := &fakeIteration{latency: 5 * time.Millisecond}
	r := runner.New(runner.Options{
		StartVUs:  3,
		Stages:    []runner.Stage{{Target: 3, Duration: 250 * time.Millisecond}},
		Iteration: it,
	})
	res := r.Run(context.Background())
	if res.MaxVUs != 3 {
		t.Fatalf("expected max VUs 3, got %d", res.MaxVUs)
	}
	if got := it.peak.Load(); got != 3 {
		t.Fatalf("expected peak concurrency 3, got %d", got)
	}
	if res.Iterations <= 3 {
		t.Fatalf("expected VUs to loop, got %d iterations", res.Iterations)
	}
	if res.Iterations != it.calls.Load()-res.Interrupted {
		t.Fatalf("iterations %d do not match calls %d", res.Iterations, it.calls.Load())
	}
	if res.Duration < 250*time.Millisecond {
		t.Fatalf("run ended before the stage: %s", res.Duration)
	}
}

// TestRunnerRampsUpAndDown ensures the controller follows the stage targets.
func TestRunnerRampsUpAndDown(t *testing.T) {
	var vus vuRecorder
	it := &fakeIteration{latency: 2 * time.Millisecond}
	r := runner.New(runner.Options{
		StartVUs: 0,
		Stages: []runner.Stage{
			{Target: 4, Duration: 400 * time.Millisecond},
			{Target: 4, Duration: 200 * time.Millisecond},
			{Target: 0, Duration: 400 * time.Millisecond},
		},
		Iteration: it,
		OnVUs:     vus.observe,
	})
	if r.Duration() != time.Second {
		t.Fatalf("planned duration = %s", r.Duration())
	}
	res := r.Run(context.Background())
	if res.MaxVUs != 4 {
		t.Fatalf("expected max VUs 4, got %d", res.MaxVUs)
	}

	values := vus.snapshot()
	if len(values) == 0 {
		t.Fatal("OnVUs never called")
	}
	if values[0] != 0 {
		t.Fatalf("expected ramp to start at 0 VUs, got %d", values[0])
	}
	if values[len(values)-1] != 0 {
		t.Fatalf("expected final VU count 0, got %d", values[len(values)-1])
	}
	peakAt := -1
	for i, v := range values {
		if v == 4 {
			peakAt = i
			break
		}
	}
	if peakAt < 0 {
		t.Fatalf("never reached 4 VUs: %v", values)
	}
	for i := 1; i <= peakAt; i++ {
		if values[i] < values[i-1] {
			t.Fatalf("VU count dropped while ramping up: %v", values)
		}
	}
}

// TestRunnerCountsFailedIterations ensures errors are tallied.
func TestRunnerCountsFailedIterations(t *testing.T) {
	it := &fakeIteration{latency: time.Millisecond, failEvery: 2}
	r := runner.New(runner.Options{
		StartVUs:  1,
		Stages:    []runner.Stage{{Target: 1, Duration: 150 * time.Millisecond}},
		Iteration: it,
	})
	res := r.Run(context.Background())
	if res.Iterations < 2 {
		t.Fatalf("expected several iterations, got %d", res.Iterations)
	}
	if res.Failed == 0 || res.Failed > res.Iterations {
		t.Fatalf("unexpected failed count %d of %d", res.Failed, res.Iterations)
	}
}

// TestRunnerWaitsForIterationWithoutGracefulStop ensures a zero GracefulStop
// lets the last iteration complete.
func TestRunnerWaitsForIterationWithoutGracefulStop(t *testing.T) {
	it := &fakeIteration{latency: 300 * time.Millisecond}
	r := runner.New(runner.Options{
		StartVUs:  1,
		Stages:    []runner.Stage{{Target: 1, Duration: 50 * time.Millisecond}},
		Iteration: it,
	})
	res := r.Run(context.Background())
	if res.Duration < 300*time.Millisecond {
		t.Fatalf("run returned before the iteration finished: %s", res.Duration)
	}
	if res.Iterations != 1 || res.Interrupted != 0 {
		t.Fatalf("expected 1 completed iteration, got %+v", res)
	}
}

// TestRunnerGracefulStopInterrupts ensures GracefulStop bounds the wait.
func TestRunnerGracefulStopInterrupts(t *testing.T) {
	it := &fakeIteration{latency: 10 * time.Second}
	r := runner.New(runner.Options{
		StartVUs:     1,
		Stages:       []runner.Stage{{Target: 1, Duration: 50 * time.Millisecond}},
		GracefulStop: 50 * time.Millisecond,
		Iteration:    it,
	})
	res := r.Run(context.Background())
	if res.Duration > 2*time.Second {
		t.Fatalf("graceful stop not enforced: %s", res.Duration)
	}
	if res.Interrupted != 1 || res.Iterations != 0 {
		t.Fatalf("expected 1 interrupted iteration, got %+v", res)
	}
}

// TestRunnerStopsOnCancel ensures cancelling the parent context ends the run.
func TestRunnerStopsOnCancel(t *testing.T) {
	it := &fakeIteration{latency: time.Hour}
	r := runner.New(runner.Options{
		StartVUs:  2,
		Stages:    []runner.Stage{{Target: 2, Duration: time.Hour}},
		Iteration: it,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res := r.Run(ctx)
	if res.Duration > 2*time.Second {
		t.Fatalf("run ignored cancellation: %s", res.Duration)
	}
	if res.Interrupted != 2 {
		t.Fatalf("expected 2 interrupted iterations, got %d", res.Interrupted)
	}
}

// TestRateLimiterCapsIterations ensures the shared limiter restricts starts.
func TestRateLimiterCapsIterations(t *testing.T) {
	it := &fakeIteration{}
	duration := 500 * time.Millisecond
	r := runner.New(runner.Options{
		StartVUs:         4,
		Stages:           []runner.Stage{{Target: 4, Duration: duration}},
		MaxIterationRate: 20,
		Iteration:        it,
		LimiterFactory:   func(rps float64) *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), 1) },
	})
	res := r.Run(context.Background())
	// the controller may overrun the last stage by one tick, hence the slack
	maxExpected := int64(20*duration.Seconds()*1.5) + 1
	if res.Iterations > maxExpected {
		t.Fatalf("rate limiter exceeded: iterations=%d max=%d", res.Iterations, maxExpected)
	}
	if res.Iterations == 0 {
		t.Fatal("expected some iterations")
	}
}

// TestRunnerWithoutStagesDoesNothing ensures an empty profile returns at once.
func TestRunnerWithoutStagesDoesNothing(t *testing.T) {
	it := &fakeIteration{}
	res := runner.New(runner.Options{Iteration: it}).Run(context.Background())
	if res.Iterations != 0 || res.MaxVUs != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if it.calls.Load() != 0 {
		t.Fatalf("iteration should not run, got %d calls", it.calls.Load())
	}
}

type failureLog struct {
	mu   sync.Mutex
	errs []error
}

func (f *failureLog) LogFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func TestWithLoggingLogsFailures(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	inner := runner.IterationFunc(func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	log := &failureLog{}
	it := runner.WithLogging(inner, log)

	for i := 0; i < 3; i++ {
		_ = it.Do(context.Background())
	}
	if len(log.errs) != 1 || !errors.Is(log.errs[0], boom) {
		t.Fatalf("expected exactly the boom error logged, got %v", log.errs)
	}
}

func TestWithLoggingSkipsCancelledIterations(t *testing.T) {
	inner := runner.IterationFunc(func(ctx context.Context) error { return ctx.Err() })
	log := &failureLog{}
	it := runner.WithLogging(inner, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := it.Do(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(log.errs) != 0 {
		t.Fatalf("cancelled iteration should not be logged, got %v", log.errs)
	}
}

func TestWithLoggingNilLoggerPassThrough(t *testing.T) {
	inner := runner.IterationFunc(func(ctx context.Context) error { return nil })
	if got := runner.WithLogging(inner, nil); got == nil {
		t.Fatal("expected the inner iteration back")
	}
}
