package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/qa21t02/dbjourney/internal/metrics"
)

// ProgressReporter displays real-time progress updates. Every tick also
// snapshots the collector so the HTML report can chart the run.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, progressLine(p.collector.Snapshot()))
		case <-p.done:
			return
		}
	}
}

func progressLine(stats metrics.Stats) string {
	line := fmt.Sprintf("\rVUs: %d | Iterations: %d | Checks: %.1f%% | errors: %d | error_rate: %.1f%% | RPS: %.1f",
		stats.VUs, stats.Iterations, stats.CheckRate*100, stats.ErrorCount, stats.ErrorRate*100, stats.RequestsPerSec)
	if name, ep, ok := slowestStep(stats); ok {
		line += fmt.Sprintf(" | Slowest: %s (P95 %.1fms)", name, ep.P95LatencyMs)
	}
	return line
}

func slowestStep(stats metrics.Stats) (string, metrics.EndpointStats, bool) {
	var (
		best  string
		found bool
	)
	for _, name := range stepNames(stats) {
		ep := stats.Endpoints[name]
		if !found || ep.P95LatencyMs > stats.Endpoints[best].P95LatencyMs {
			best = name
			found = true
		}
	}
	if !found {
		return "", metrics.EndpointStats{}, false
	}
	return best, stats.Endpoints[best], true
}
