package runner

import "context"

// FailureLogger logs failed iterations.
type FailureLogger interface {
	LogFailure(err error)
}

// loggingIteration wraps an Iteration with failure logging.
type loggingIteration struct {
	inner  Iteration
	logger FailureLogger
}

// WithLogging wraps an Iteration to log failures. Iterations cut off by
// cancellation are not logged.
func WithLogging(it Iteration, logger FailureLogger) Iteration {
	if logger == nil {
		return it
	}
	return &loggingIteration{
		inner:  it,
		logger: logger,
	}
}

func (l *loggingIteration) Do(ctx context.Context) error {
	err := l.inner.Do(ctx)
	if err != nil && ctx.Err() == nil {
		l.logger.LogFailure(err)
	}
	return err
}
