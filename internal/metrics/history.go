package metrics

import "time"

// DataPoint is one sample of the run's progress, taken on each reporter tick.
type DataPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Elapsed      float64   `json:"elapsed_s"`
	Iterations   int64     `json:"iterations"`
	Requests     int64     `json:"requests"`
	Errors       int64     `json:"errors"`
	ErrorRate    float64   `json:"error_rate"`
	ChecksRate   float64   `json:"checks_rate"`
	VUs          int64     `json:"vus"`
	CurrentRPS   float64   `json:"current_rps"`
	P50LatencyMs float64   `json:"p50_latency_ms"`
	P95LatencyMs float64   `json:"p95_latency_ms"`
	P99LatencyMs float64   `json:"p99_latency_ms"`
}

// Snapshot computes the current Stats and appends a DataPoint to the
// history. CurrentRPS is the request rate since the previous snapshot.
func (c *Collector) Snapshot() Stats {
	elapsed := c.Elapsed()
	stats := c.Stats(elapsed)

	point := DataPoint{
		Timestamp:    time.Now(),
		Elapsed:      elapsed.Seconds(),
		Iterations:   stats.Iterations,
		Requests:     stats.Total,
		Errors:       stats.ErrorCount,
		ErrorRate:    stats.ErrorRate,
		ChecksRate:   stats.CheckRate,
		VUs:          stats.VUs,
		CurrentRPS:   stats.RequestsPerSec,
		P50LatencyMs: stats.P50LatencyMs,
		P95LatencyMs: stats.P95LatencyMs,
		P99LatencyMs: stats.P99LatencyMs,
	}

	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	if n := len(c.history); n > 0 {
		prev := c.history[n-1]
		if dt := point.Elapsed - prev.Elapsed; dt > 0 {
			point.CurrentRPS = float64(point.Requests-prev.Requests) / dt
		}
	}
	c.history = append(c.history, point)
	return stats
}

// History returns a copy of the recorded snapshots in order.
func (c *Collector) History() []DataPoint {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	return append([]DataPoint(nil), c.history...)
}
