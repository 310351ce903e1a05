package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/qa21t02/dbjourney/internal/metrics"
	"github.com/qa21t02/dbjourney/internal/threshold"
)

// RunInfo describes the run a report belongs to.
type RunInfo struct {
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	Profile    string    `json:"profile"`
	Strictness string    `json:"strictness"`
	StartedAt  time.Time `json:"-"`
}

// NewRunID returns a sortable, unique identifier for a run.
func NewRunID() string {
	return ulid.Make().String()
}

// ThresholdSummary aggregates threshold outcomes for the JSON and HTML reports.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

// ThresholdResultJSON is the serialized form of one threshold.Result.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

type jsonReport struct {
	RunInfo
	StartedAt  string            `json:"started_at,omitempty"`
	Metrics    metrics.Stats     `json:"metrics"`
	Thresholds *ThresholdSummary `json:"thresholds,omitempty"`
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, info RunInfo, stats metrics.Stats, results []threshold.Result) {
	fmt.Fprintln(w, "\n--- Journey Results ---")
	if info.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", info.RunID)
	}
	fmt.Fprintf(w, "Target:            %s\n", info.Target)
	fmt.Fprintf(w, "Profile:           %s\n", info.Profile)
	fmt.Fprintf(w, "Strictness:        %s\n", info.Strictness)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)

	fmt.Fprintln(w, "\nJourney:")
	fmt.Fprintf(w, "  Iterations:      %d (%.2f/s), %d with failed checks\n", stats.Iterations, stats.IterationsPerSec, stats.FailedIterations)
	fmt.Fprintf(w, "  VUs (max):       %d\n", stats.MaxVUs)
	fmt.Fprintf(w, "  errors:          %d\n", stats.ErrorCount)
	fmt.Fprintf(w, "  error_rate:      %.2f%% (%d samples)\n", stats.ErrorRate*100, stats.ErrorRateSamples)
	fmt.Fprintf(w, "  checks:          %.2f%% ✓ %d ✗ %d\n", stats.CheckRate*100, stats.ChecksPassed, stats.ChecksFailed)

	if len(stats.Checks) > 0 {
		fmt.Fprintln(w, "\nChecks:")
		for _, check := range stats.Checks {
			mark := "✓"
			if check.Fails > 0 {
				mark = "✗"
			}
			fmt.Fprintf(w, "  %s %s", mark, check.Name)
			if check.Fails > 0 {
				fmt.Fprintf(w, " (%d passed, %d failed)", check.Passes, check.Fails)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "\nHTTP Requests:")
	fmt.Fprintf(w, "  Total:           %d\n", stats.Total)
	fmt.Fprintf(w, "  Successful:      %d\n", stats.Successes)
	fmt.Fprintf(w, "  Failed:          %d\n", stats.Failures)
	fmt.Fprintf(w, "  Requests/sec:    %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P95:             %s\n", stats.P95Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nStatus Buckets:")
		writeStatusBuckets(w, stats.StatusBuckets, "  ")
	}

	if len(stats.TransportErrors) > 0 {
		fmt.Fprintln(w, "\nTransport Errors:")
		labels := make([]string, 0, len(stats.TransportErrors))
		for label := range stats.TransportErrors {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(w, "  %s: %d\n", label, stats.TransportErrors[label])
		}
	}

	if len(stats.Endpoints) > 0 {
		fmt.Fprintln(w, "\nStep Breakdown:")
		for _, name := range stepNames(stats) {
			endpoint := stats.Endpoints[name]
			fmt.Fprintf(
				w,
				"  - %s: total=%d, failures=%d, rps=%.2f, mean=%.1fms, p95=%.1fms\n",
				name,
				endpoint.Total,
				endpoint.Failures,
				endpoint.RequestsPerSec,
				endpoint.MeanLatencyMs,
				endpoint.P95LatencyMs,
			)
		}
	}

	if len(results) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, r := range results {
			fmt.Fprintf(w, "  %s\n", r.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, info RunInfo, stats metrics.Stats, results []threshold.Result) error {
	report := jsonReport{
		RunInfo:    info,
		Metrics:    stats,
		Thresholds: summarizeThresholds(results),
	}
	if !info.StartedAt.IsZero() {
		report.StartedAt = info.StartedAt.UTC().Format(time.RFC3339)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// stepNames orders steps by request count, then by name.
func stepNames(stats metrics.Stats) []string {
	names := make([]string, 0, len(stats.Endpoints))
	for name := range stats.Endpoints {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := stats.Endpoints[names[i]], stats.Endpoints[names[j]]
		if a.Total == b.Total {
			return names[i] < names[j]
		}
		return a.Total > b.Total
	})
	return names
}

func writeStatusBuckets(w io.Writer, buckets map[string]map[string]int, indent string) {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s %s: %d\n", indent, row.Step, row.Code, row.Count)
	}
}
