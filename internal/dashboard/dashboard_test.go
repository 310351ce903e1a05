package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/gizak/termui/v3/widgets"

	"github.com/qa21t02/dbjourney/internal/metrics"
)

func TestVUPercent(t *testing.T) {
	tests := []struct {
		name   string
		active int64
		max    int
		want   int
	}{
		{"no max", 5, 0, 0},
		{"half", 25, 50, 50},
		{"rounds down", 1, 3, 33},
		{"clamped", 60, 50, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vuPercent(tt.active, tt.max); got != tt.want {
				t.Errorf("vuPercent(%d, %d) = %d, want %d", tt.active, tt.max, got, tt.want)
			}
		})
	}
}

func TestFormatStatusListRows(t *testing.T) {
	rows := formatStatusListRows(map[string]map[string]int{
		"create-table-sql": {
			"500": 3,
		},
		"registration": {
			"ERR": 1,
		},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 status rows, got %d", len(rows))
	}
	if !strings.Contains(rows[0], "create-table-sql 500") {
		t.Fatalf("expected the largest bucket first, got %s", rows[0])
	}

	empty := formatStatusListRows(nil)
	if len(empty) != 1 || !strings.Contains(empty[0], "No failures") {
		t.Fatalf("unexpected empty rows: %v", empty)
	}
}

func TestSummarizeStatusBuckets(t *testing.T) {
	summary := summarizeStatusBuckets(map[string]map[string]int{
		"go-to-profile": {
			"404": 2,
			"500": 1,
		},
	}, 1)
	if summary != "404 x2" {
		t.Fatalf("expected only the top bucket, got %q", summary)
	}
	if summarizeStatusBuckets(nil, 2) != "" {
		t.Fatal("expected empty summary without buckets")
	}
}

func TestFormatCheckRowsFailingFirst(t *testing.T) {
	rows := formatCheckRows([]metrics.CheckStats{
		{Name: "registration status is 200", Passes: 3},
		{Name: "create-table-sql status is 200", Passes: 1, Fails: 2},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !strings.Contains(rows[0], "✗ create-table-sql status is 200") || !strings.Contains(rows[0], "2/3") {
		t.Errorf("expected failing check first, got %q", rows[0])
	}
	if !strings.Contains(rows[1], "✓ registration status is 200") {
		t.Errorf("expected passing check second, got %q", rows[1])
	}
}

func TestUpdateStepList(t *testing.T) {
	d := &Dashboard{
		stepList: widgets.NewList(),
	}

	stats := metrics.Stats{
		Total: 100,
		Endpoints: map[string]metrics.EndpointStats{
			"registration": {
				Total:          80,
				RequestsPerSec: 10.5,
				P95LatencyMs:   120.5,
				Failures:       2,
				StatusBuckets: map[string]map[string]int{
					"registration": {"500": 2},
				},
			},
			"go-to-profile": {
				Total:          20,
				RequestsPerSec: 5.0,
				P95LatencyMs:   50.0,
			},
		},
	}

	d.updateStepList(stats)

	if len(d.stepList.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(d.stepList.Rows))
	}
	if !strings.Contains(d.stepList.Rows[0], "registration") {
		t.Error("Expected registration to be first")
	}
	if !strings.Contains(d.stepList.Rows[0], "500 x2") {
		t.Error("Expected status summary in row 1")
	}
	if strings.Contains(d.stepList.Rows[1], " x") {
		t.Error("Expected no status summary for a clean step")
	}

	d.updateStepList(metrics.Stats{})
	if !strings.Contains(d.stepList.Rows[0], "No step data") {
		t.Errorf("unexpected empty rows: %v", d.stepList.Rows)
	}
}

func TestUpdateRefreshesWidgets(t *testing.T) {
	d := &Dashboard{runConfig: RunConfig{Target: "http://localhost:7000", MaxVUs: 50}}
	d.initWidgets()

	d.update(metrics.Stats{
		VUs:          25,
		Iterations:   7,
		ErrorCount:   2,
		ErrorRate:    0.1,
		CheckRate:    0.9,
		P95LatencyMs: 42,
		Duration:     3 * time.Second,
		Checks:       []metrics.CheckStats{{Name: "home contains Bases", Passes: 7}},
	})

	if d.vuGauge.Percent != 50 || d.vuGauge.Label != "25 / 50 VUs" {
		t.Errorf("unexpected gauge: %d %q", d.vuGauge.Percent, d.vuGauge.Label)
	}
	if !strings.Contains(d.summaryPara.Text, "Iterations: 7 | Checks: 90.0%") {
		t.Errorf("unexpected summary: %q", d.summaryPara.Text)
	}
	if !strings.Contains(d.metricsPara.Text, "errors:            2") || !strings.Contains(d.metricsPara.Text, "10.00%") {
		t.Errorf("unexpected metrics: %q", d.metricsPara.Text)
	}
	if len(d.latencyHistory) != 1 || d.latencyHistory[0] != 42 {
		t.Errorf("unexpected latency history: %v", d.latencyHistory)
	}
	if !strings.Contains(d.checkList.Rows[0], "home contains Bases") {
		t.Errorf("unexpected checks: %v", d.checkList.Rows)
	}
}

func TestFormatRunParams(t *testing.T) {
	tests := []struct {
		name     string
		config   RunConfig
		contains []string
		excludes []string
	}{
		{
			name: "multiple profile",
			config: RunConfig{
				Profile:    "Multiple",
				Strictness: "strict",
				MaxVUs:     50,
				Duration:   2 * time.Minute,
			},
			contains: []string{"Profile: Multiple", "Strictness: strict", "Max VUs: 50", "Duration: 2m0s", "Rate: unlimited"},
			excludes: []string{"Config:", "Think:"},
		},
		{
			name:     "rate limited",
			config:   RunConfig{Rate: 2.5},
			contains: []string{"Rate: 2.5/s"},
		},
		{
			name: "with think time and timeout",
			config: RunConfig{
				ThinkTime: time.Second,
				Timeout:   10 * time.Second,
			},
			contains: []string{"Think: 1s", "Timeout: 10s"},
		},
		{
			name:     "with config file",
			config:   RunConfig{ConfigFile: "journey.yml"},
			contains: []string{"Config: journey.yml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dashboard{runConfig: tt.config}
			result := d.formatRunParams()

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("expected result to contain %q, got %q", s, result)
				}
			}

			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("expected result NOT to contain %q, got %q", s, result)
				}
			}
		})
	}
}
