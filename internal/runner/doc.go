// Package runner provides the virtual-user executor for dbjourney.
//
// The runner ramps a pool of virtual users (VUs) through a list of stages.
// Each VU loops over the same [Iteration] until it is stopped:
//   - The VU target at any moment is interpolated linearly between stage targets
//   - A controller re-reads the target every 100ms and starts or stops VUs
//   - A stopped VU finishes its current iteration, bounded by GracefulStop
//   - An optional rate limit caps iterations started per second across all VUs
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		StartVUs:  1,
//		Stages:    []runner.Stage{{Target: 50, Duration: 2 * time.Minute}},
//		Iteration: runner.IterationFunc(func(ctx context.Context) error {
//			return journey.Run(ctx)
//		}),
//	})
//	result := r.Run(ctx)
//
// # Iteration Interface
//
// The [Iteration] interface defines what every VU executes:
//
//	type Iteration interface {
//		Do(ctx context.Context) error
//	}
//
// Cancelling the context passed to [Runner.Run] stops every VU at once and
// interrupts in-flight iterations. Interrupted iterations are counted apart
// from completed ones.
//
// # Middleware
//
//   - [WithLogging]: Log failed iterations
package runner
