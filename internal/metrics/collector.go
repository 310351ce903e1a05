package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector aggregates everything a run measures: the errors counter, the
// error_rate samples, per-check outcomes, request latencies, iterations and
// active virtual users. All methods are safe for concurrent use.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByType map[string]int64
	statuses     map[string]map[string]int
	endpoints    map[string]*endpointStats

	errorCount int64
	rateTrue   int64
	rateTotal  int64
	checks     map[string]*CheckStats
	checkOrder []string

	iterations       int64
	failedIterations int64

	vus    atomic.Int64
	maxVUs atomic.Int64

	start time.Time

	historyMu sync.Mutex
	history   []DataPoint
}

// RequestMetadata describes the request being recorded.
type RequestMetadata struct {
	Endpoint   string // journey step the request belongs to
	Method     string
	StatusCode int
}

// CheckStats counts the outcomes of one named check.
type CheckStats struct {
	Name   string `json:"name"`
	Passes int64  `json:"passes"`
	Fails  int64  `json:"fails"`
}

// EndpointStats aggregates the requests of one journey step.
type EndpointStats struct {
	Total          int64                     `json:"total"`
	Failures       int64                     `json:"failures"`
	RequestsPerSec float64                   `json:"requests_per_sec"`
	MeanLatencyMs  float64                   `json:"mean_latency_ms"`
	P50LatencyMs   float64                   `json:"p50_latency_ms"`
	P95LatencyMs   float64                   `json:"p95_latency_ms"`
	P99LatencyMs   float64                   `json:"p99_latency_ms"`
	StatusBuckets  map[string]map[string]int `json:"status_buckets,omitempty"`
}

type endpointStats struct {
	hist       *hdrhistogram.Histogram
	total      int64
	failures   int64
	sumLatency time.Duration
	statuses   map[string]int
}

// Stats represents aggregated metrics.
type Stats struct {
	// HTTP requests.
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	// Journey metrics.
	ErrorCount       int64        `json:"errors"`
	ErrorRate        float64      `json:"error_rate"`
	ErrorRateSamples int64        `json:"error_rate_samples"`
	ChecksPassed     int64        `json:"checks_passed"`
	ChecksFailed     int64        `json:"checks_failed"`
	CheckRate        float64      `json:"checks_rate"`
	Checks           []CheckStats `json:"checks,omitempty"`

	Iterations       int64   `json:"iterations"`
	FailedIterations int64   `json:"failed_iterations"`
	IterationsPerSec float64 `json:"iterations_per_sec"`
	VUs              int64   `json:"vus"`
	MaxVUs           int64   `json:"vus_max"`

	Endpoints       map[string]EndpointStats  `json:"endpoints,omitempty"`
	StatusBuckets   map[string]map[string]int `json:"status_buckets,omitempty"`
	TransportErrors map[string]int            `json:"transport_errors,omitempty"`
}

func NewCollector() *Collector {
	return &Collector{
		hist:         newHistogram(),
		errorsByType: make(map[string]int64),
		statuses:     make(map[string]map[string]int),
		endpoints:    make(map[string]*endpointStats),
		checks:       make(map[string]*CheckStats),
		start:        time.Now(),
	}
}

// Track latencies from 1µs up to 60s with 3 significant figures.
func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 60_000_000, 3)
}

// Start resets the clock used for rates.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Elapsed returns the time since Start.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// Increment adds one to the errors counter.
func (c *Collector) Increment() {
	c.mu.Lock()
	c.errorCount++
	c.mu.Unlock()
}

// Record adds one sample to the error_rate metric.
func (c *Collector) Record(failed bool) {
	c.mu.Lock()
	c.recordRate(failed)
	c.mu.Unlock()
}

// RecordOutcome records one check outcome: an error_rate sample, and for a
// failure the matching errors increment, under a single lock.
func (c *Collector) RecordOutcome(failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if failed {
		c.errorCount++
	}
	c.recordRate(failed)
}

func (c *Collector) recordRate(failed bool) {
	c.rateTotal++
	if failed {
		c.rateTrue++
	}
}

// RecordCheck counts one outcome of the named check.
func (c *Collector) RecordCheck(name string, passed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stat, ok := c.checks[name]
	if !ok {
		stat = &CheckStats{Name: name}
		c.checks[name] = stat
		c.checkOrder = append(c.checkOrder, name)
	}
	if passed {
		stat.Passes++
	} else {
		stat.Fails++
	}
}

// RecordIteration counts one completed session.
func (c *Collector) RecordIteration(failed bool) {
	c.mu.Lock()
	c.iterations++
	if failed {
		c.failedIterations++
	}
	c.mu.Unlock()
}

// SetVUs publishes the number of active virtual users.
func (c *Collector) SetVUs(n int) {
	v := int64(n)
	c.vus.Store(v)
	for {
		cur := c.maxVUs.Load()
		if v <= cur || c.maxVUs.CompareAndSwap(cur, v) {
			return
		}
	}
}

// RecordRequest records a single request's latency and outcome. A request
// fails on a transport error or a status of 400 and above.
func (c *Collector) RecordRequest(latency time.Duration, err error, meta *RequestMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	recordLatency(c.hist, latency)
	c.sumLatency += latency
	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	endpoint := ""
	status := 0
	if meta != nil {
		endpoint = meta.Endpoint
		status = meta.StatusCode
	}

	failed := err != nil || status >= 400
	if failed {
		c.failures++
	} else {
		c.successes++
	}

	code := ""
	switch {
	case err != nil:
		code = "ERR"
		c.errorsByType[TransportErrorLabel(err)]++
	case status >= 400:
		code = strconv.Itoa(status)
	}
	if code != "" {
		key := endpoint
		if key == "" {
			key = "http"
		}
		if c.statuses[key] == nil {
			c.statuses[key] = make(map[string]int)
		}
		c.statuses[key][code]++
	}

	if endpoint == "" {
		return
	}
	ep, ok := c.endpoints[endpoint]
	if !ok {
		ep = &endpointStats{hist: newHistogram(), statuses: make(map[string]int)}
		c.endpoints[endpoint] = ep
	}
	recordLatency(ep.hist, latency)
	ep.total++
	ep.sumLatency += latency
	if failed {
		ep.failures++
	}
	if code != "" {
		ep.statuses[code]++
	}
}

func recordLatency(h *hdrhistogram.Histogram, latency time.Duration) {
	if latency <= 0 {
		return
	}
	us := latency.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	_ = h.RecordValue(us)
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:            total,
		Successes:        c.successes,
		Failures:         c.failures,
		MinLatency:       c.minLatency,
		MaxLatency:       c.maxLatency,
		ErrorCount:       c.errorCount,
		ErrorRateSamples: c.rateTotal,
		Iterations:       c.iterations,
		FailedIterations: c.failedIterations,
		VUs:              c.vus.Load(),
		MaxVUs:           c.maxVUs.Load(),
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Latency = quantile(c.hist, 50)
		stats.P90Latency = quantile(c.hist, 90)
		stats.P95Latency = quantile(c.hist, 95)
		stats.P99Latency = quantile(c.hist, 99)
	}

	stats.MinLatencyMs = toMs(stats.MinLatency)
	stats.MaxLatencyMs = toMs(stats.MaxLatency)
	stats.MeanLatencyMs = toMs(stats.MeanLatency)
	stats.P50LatencyMs = toMs(stats.P50Latency)
	stats.P90LatencyMs = toMs(stats.P90Latency)
	stats.P95LatencyMs = toMs(stats.P95Latency)
	stats.P99LatencyMs = toMs(stats.P99Latency)

	stats.Duration = elapsed
	stats.DurationMs = toMs(elapsed)
	if elapsed > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
		stats.IterationsPerSec = float64(c.iterations) / elapsed.Seconds()
	}

	if c.rateTotal > 0 {
		stats.ErrorRate = float64(c.rateTrue) / float64(c.rateTotal)
	}

	if len(c.checkOrder) > 0 {
		stats.Checks = make([]CheckStats, 0, len(c.checkOrder))
		for _, name := range c.checkOrder {
			stat := *c.checks[name]
			stats.Checks = append(stats.Checks, stat)
			stats.ChecksPassed += stat.Passes
			stats.ChecksFailed += stat.Fails
		}
		if n := stats.ChecksPassed + stats.ChecksFailed; n > 0 {
			stats.CheckRate = float64(stats.ChecksPassed) / float64(n)
		}
	}

	if len(c.endpoints) > 0 {
		stats.Endpoints = make(map[string]EndpointStats, len(c.endpoints))
		for name, ep := range c.endpoints {
			es := EndpointStats{
				Total:    ep.total,
				Failures: ep.failures,
			}
			if ep.total > 0 {
				es.MeanLatencyMs = toMs(time.Duration(int64(ep.sumLatency) / ep.total))
			}
			if ep.hist.TotalCount() > 0 {
				es.P50LatencyMs = toMs(quantile(ep.hist, 50))
				es.P95LatencyMs = toMs(quantile(ep.hist, 95))
				es.P99LatencyMs = toMs(quantile(ep.hist, 99))
			}
			if elapsed > 0 {
				es.RequestsPerSec = float64(ep.total) / elapsed.Seconds()
			}
			if len(ep.statuses) > 0 {
				codes := make(map[string]int, len(ep.statuses))
				for code, n := range ep.statuses {
					codes[code] = n
				}
				es.StatusBuckets = map[string]map[string]int{name: codes}
			}
			stats.Endpoints[name] = es
		}
	}

	if len(c.statuses) > 0 {
		stats.StatusBuckets = make(map[string]map[string]int, len(c.statuses))
		for key, codes := range c.statuses {
			copied := make(map[string]int, len(codes))
			for code, n := range codes {
				copied[code] = n
			}
			stats.StatusBuckets[key] = copied
		}
	}

	if len(c.errorsByType) > 0 {
		stats.TransportErrors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.TransportErrors[k] = int(v)
		}
	}

	return stats
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
