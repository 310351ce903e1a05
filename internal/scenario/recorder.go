package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/qa21t02/dbjourney/internal/metrics"
)

// Recorder receives the outcome of every check. Each check calls either
// Increment followed by Record(true), or Record(false) alone.
type Recorder interface {
	// Increment adds one to the errors counter.
	Increment()
	// Record adds a sample to the error_rate metric.
	Record(failed bool)
	// RecordCheck counts the outcome of the named check.
	RecordCheck(name string, passed bool)
}

// requestRecorder is implemented by recorders that also track HTTP timings.
type requestRecorder interface {
	RecordRequest(latency time.Duration, err error, meta *metrics.RequestMetadata)
}

// outcomeRecorder is implemented by recorders that update errors and
// error_rate together, so readers never see one without the other.
type outcomeRecorder interface {
	RecordOutcome(failed bool)
}

type nopRecorder struct{}

func (nopRecorder) Increment() {}

func (nopRecorder) Record(bool) {}

func (nopRecorder) RecordCheck(string, bool) {}

// CheckFailure describes one failed check.
type CheckFailure struct {
	Step   string
	Check  string
	Status int
	Reason string
}

// CheckFailures is returned by Run when at least one check failed. It only
// informs logging; the outcomes were already recorded.
type CheckFailures struct {
	Login    string
	Checks   int
	Failures []CheckFailure
}

func (e *CheckFailures) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, fmt.Sprintf("%s (%s)", f.Check, f.Reason))
	}
	return fmt.Sprintf("%d of %d checks failed: %s", len(e.Failures), e.Checks, strings.Join(names, ", "))
}
