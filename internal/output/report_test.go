package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/qa21t02/dbjourney/internal/metrics"
	"github.com/qa21t02/dbjourney/internal/threshold"
)

func sampleInfo() RunInfo {
	return RunInfo{
		RunID:      "01HZZZZZZZZZZZZZZZZZZZZZZZ",
		Target:     "http://localhost:7000",
		Profile:    "Single (1 VU for 30s)",
		Strictness: "strict",
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func sampleStats() metrics.Stats {
	return metrics.Stats{
		Total:            21,
		Successes:        20,
		Failures:         1,
		RequestsPerSec:   0.7,
		Duration:         30 * time.Second,
		ErrorCount:       1,
		ErrorRate:        0.05,
		ErrorRateSamples: 20,
		ChecksPassed:     19,
		ChecksFailed:     1,
		CheckRate:        0.95,
		Checks: []metrics.CheckStats{
			{Name: "registration status is 200", Passes: 1},
			{Name: "create-table-sql status is 200", Fails: 1},
		},
		Iterations:       1,
		FailedIterations: 1,
		MaxVUs:           1,
		Endpoints: map[string]metrics.EndpointStats{
			"registration":     {Total: 2, MeanLatencyMs: 12, P95LatencyMs: 20},
			"create-table-sql": {Total: 1, Failures: 1, P95LatencyMs: 40},
		},
		StatusBuckets:   map[string]map[string]int{"create-table-sql": {"500": 1}},
		TransportErrors: map[string]int{"Network error": 2},
	}
}

func TestPrintReportShowsJourneyMetrics(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleInfo(), sampleStats(), nil)

	out := buf.String()
	for _, want := range []string{
		"Run ID:            01HZZZZZZZZZZZZZZZZZZZZZZZ",
		"Target:            http://localhost:7000",
		"Strictness:        strict",
		"errors:          1",
		"error_rate:      5.00% (20 samples)",
		"checks:          95.00% ✓ 19 ✗ 1",
		"✓ registration status is 200",
		"✗ create-table-sql status is 200 (0 passed, 1 failed)",
		"create-table-sql 500: 1",
		"Network error: 2",
		"- registration: total=2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Thresholds:") {
		t.Error("thresholds section should be omitted without thresholds")
	}
}

func TestPrintReportStepOrder(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleInfo(), sampleStats(), nil)
	out := buf.String()
	if strings.Index(out, "- registration:") > strings.Index(out, "- create-table-sql:") {
		t.Error("steps should be ordered by request count")
	}
}

func TestPrintReportThresholds(t *testing.T) {
	th, err := threshold.Parse("errors:count == 0")
	if err != nil {
		t.Fatal(err)
	}
	results := threshold.NewEvaluator([]threshold.Threshold{th}).Evaluate(sampleStats())

	var buf bytes.Buffer
	PrintReport(&buf, sampleInfo(), sampleStats(), results)
	if !strings.Contains(buf.String(), "✗ errors:count == 0") {
		t.Errorf("expected failed threshold line, got\n%s", buf.String())
	}
}

func TestPrintJSONReport(t *testing.T) {
	th, _ := threshold.Parse("checks:rate > 0.9")
	results := threshold.NewEvaluator([]threshold.Threshold{th}).Evaluate(sampleStats())

	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleInfo(), sampleStats(), results); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["run_id"] != "01HZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if decoded["started_at"] != "2026-01-02T03:04:05Z" {
		t.Errorf("started_at = %v", decoded["started_at"])
	}
	if _, ok := decoded["StartedAt"]; ok {
		t.Error("raw StartedAt should not be serialized")
	}
	m, ok := decoded["metrics"].(map[string]interface{})
	if !ok {
		t.Fatalf("metrics missing: %v", decoded)
	}
	if m["errors"] != float64(1) || m["error_rate"] != 0.05 {
		t.Errorf("unexpected journey metrics: errors=%v error_rate=%v", m["errors"], m["error_rate"])
	}
	summary, ok := decoded["thresholds"].(map[string]interface{})
	if !ok || summary["passed"] != float64(1) {
		t.Errorf("unexpected thresholds summary: %v", decoded["thresholds"])
	}
}

func TestPrintJSONReportOmitsEmptyThresholds(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, RunInfo{}, metrics.Stats{}, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), `"thresholds"`) || strings.Contains(buf.String(), `"started_at"`) {
		t.Errorf("empty fields should be omitted:\n%s", buf.String())
	}
}

func TestNewRunIDIsULID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Fatal("run IDs should be unique")
	}
	if _, err := ulid.Parse(a); err != nil {
		t.Fatalf("run ID %q is not a ULID: %v", a, err)
	}
}
