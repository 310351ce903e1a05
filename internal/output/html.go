package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/qa21t02/dbjourney/internal/metrics"
	"github.com/qa21t02/dbjourney/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Info             RunInfo
	Stats            metrics.Stats
	History          []metrics.DataPoint
	ThresholdSummary *ThresholdSummary
	HistoryJSON      string
	StepNames        []string
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatDuration": func(d time.Duration) string {
		return d.String()
	},
	"formatFloat": func(f float64) string {
		return fmt.Sprintf("%.2f", f)
	},
	"formatRate": func(f float64) string {
		return fmt.Sprintf("%.2f", f*100)
	},
	"formatPercent": func(part, total int64) string {
		if total == 0 {
			return "0.0"
		}
		return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
	},
}).Parse(htmlTemplate))

// GenerateHTMLReport generates a standalone HTML report with embedded charts.
func GenerateHTMLReport(w io.Writer, info RunInfo, stats metrics.Stats, history []metrics.DataPoint, thresholdResults []threshold.Result) error {
	// Convert history to JSON for embedding in HTML
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Info:             info,
		Stats:            stats,
		History:          history,
		ThresholdSummary: summarizeThresholds(thresholdResults),
		HistoryJSON:      string(historyJSON),
		StepNames:        stepNames(stats),
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>dbjourney Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #eef1f5; color: #1f2933; line-height: 1.5; padding: 24px; }
        .container { max-width: 1320px; margin: 0 auto; background: #fff; border-radius: 6px; box-shadow: 0 1px 6px rgba(0,0,0,0.12); overflow: hidden; }
        header { background: #1e3a5f; color: #fff; padding: 24px 36px; }
        header h1 { font-size: 1.8rem; margin-bottom: 8px; }
        header .meta { opacity: 0.85; font-size: 0.9rem; }
        .content { padding: 32px 36px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 16px; margin-bottom: 32px; }
        .card { background: #f7f9fb; border-radius: 6px; padding: 16px 20px; border-left: 4px solid #3b6ea5; }
        .card h3 { font-size: 0.8rem; color: #616e7c; text-transform: uppercase; letter-spacing: 0.5px; margin-bottom: 6px; }
        .card .value { font-size: 1.9rem; font-weight: 700; }
        .card .subvalue { font-size: 0.85rem; color: #616e7c; margin-top: 4px; }
        .card.success { border-left-color: #2f9e6b; }
        .card.warning { border-left-color: #d9822b; }
        .card.error { border-left-color: #d64545; }
        .section { margin-bottom: 32px; }
        .section h2 { font-size: 1.35rem; margin-bottom: 16px; padding-bottom: 8px; border-bottom: 2px solid #e4e7eb; }
        .chart-container { border: 1px solid #e4e7eb; border-radius: 6px; padding: 16px; margin-bottom: 24px; }
        .chart-container h3 { font-size: 1rem; margin-bottom: 12px; color: #3e4c59; }
        .chart { width: 100%; height: 300px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px 12px; border-bottom: 1px solid #e4e7eb; }
        th { background: #f7f9fb; font-size: 0.8rem; text-transform: uppercase; color: #3e4c59; }
        tr:hover { background: #f7f9fb; }
        .badge { display: inline-block; padding: 2px 10px; border-radius: 10px; font-size: 0.8rem; font-weight: 600; }
        .badge-success { background: #d7f3e3; color: #1c6e47; }
        .badge-error { background: #fbe0e0; color: #9b2c2c; }
        .latency-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(140px, 1fr)); gap: 12px; }
        .latency-item { background: #f7f9fb; padding: 12px; border-radius: 6px; text-align: center; }
        .latency-item .label { font-size: 0.8rem; color: #616e7c; }
        .latency-item .value { font-size: 1.25rem; font-weight: 700; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>dbjourney Report</h1>
            {{if .Info.Target}}
            <div class="meta" style="margin-top: 5px;">Target: <a href="{{.Info.Target}}" style="color: white; text-decoration: underline;">{{.Info.Target}}</a></div>
            {{end}}
            <div class="meta">{{if .Info.RunID}}Run {{.Info.RunID}} | {{end}}Profile: {{.Info.Profile}} | Strictness: {{.Info.Strictness}}</div>
            <div class="meta">Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Stats.Duration}}</div>
        </header>

        <div class="content">
            <!-- Summary Cards -->
            <div class="grid">
                <div class="card">
                    <h3>Iterations</h3>
                    <div class="value">{{.Stats.Iterations}}</div>
                    <div class="subvalue">{{formatFloat .Stats.IterationsPerSec}}/s, max {{.Stats.MaxVUs}} VUs</div>
                </div>
                <div class="card {{if .Stats.ChecksFailed}}warning{{else}}success{{end}}">
                    <h3>Checks</h3>
                    <div class="value">{{formatRate .Stats.CheckRate}}%</div>
                    <div class="subvalue">✓ {{.Stats.ChecksPassed}} ✗ {{.Stats.ChecksFailed}}</div>
                </div>
                <div class="card {{if .Stats.ErrorCount}}error{{else}}success{{end}}">
                    <h3>errors</h3>
                    <div class="value">{{.Stats.ErrorCount}}</div>
                    <div class="subvalue">error_rate {{formatRate .Stats.ErrorRate}}% of {{.Stats.ErrorRateSamples}}</div>
                </div>
                <div class="card">
                    <h3>HTTP Requests</h3>
                    <div class="value">{{.Stats.Total}}</div>
                    <div class="subvalue">{{formatFloat .Stats.RequestsPerSec}}/s, {{formatPercent .Stats.Failures .Stats.Total}}% failed</div>
                </div>
            </div>

            <!-- Charts Section -->
            {{if .History}}
            <div class="section">
                <h2>Performance Over Time</h2>

                <div class="chart-container">
                    <h3>Virtual Users and Requests Per Second</h3>
                    <div id="load-chart" class="chart"></div>
                </div>

                <div class="chart-container">
                    <h3>Latency Percentiles (ms)</h3>
                    <div id="latency-chart" class="chart"></div>
                </div>
            </div>
            {{end}}

            <!-- Checks -->
            {{if .Stats.Checks}}
            <div class="section">
                <h2>Checks</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Check</th>
                            <th>Passed</th>
                            <th>Failed</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Stats.Checks}}
                        <tr>
                            <td>{{.Name}}</td>
                            <td>{{.Passes}}</td>
                            <td>{{.Fails}}</td>
                            <td>
                                {{if .Fails}}
                                <span class="badge badge-error">✗</span>
                                {{else}}
                                <span class="badge badge-success">✓</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            <!-- Latency Statistics -->
            <div class="section">
                <h2>Latency Statistics</h2>
                <div class="latency-grid">
                    <div class="latency-item">
                        <div class="label">Min</div>
                        <div class="value">{{formatDuration .Stats.MinLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Max</div>
                        <div class="value">{{formatDuration .Stats.MaxLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Mean</div>
                        <div class="value">{{formatDuration .Stats.MeanLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P50</div>
                        <div class="value">{{formatDuration .Stats.P50Latency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P90</div>
                        <div class="value">{{formatDuration .Stats.P90Latency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P95</div>
                        <div class="value">{{formatDuration .Stats.P95Latency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P99</div>
                        <div class="value">{{formatDuration .Stats.P99Latency}}</div>
                    </div>
                </div>
            </div>

            <!-- Thresholds -->
            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Metric</th>
                            <th>Expected</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">✓ PASS</span>
                                {{else}}
                                <span class="badge badge-error">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            <!-- Step Breakdown -->
            {{if .StepNames}}
            <div class="section">
                <h2>Step Breakdown</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Step</th>
                            <th>Requests</th>
                            <th>Failed</th>
                            <th>RPS</th>
                            <th>Mean (ms)</th>
                            <th>P95 (ms)</th>
                            <th>P99 (ms)</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .StepNames}}
                        {{$ep := index $.Stats.Endpoints .}}
                        <tr>
                            <td><strong>{{.}}</strong></td>
                            <td>{{$ep.Total}}</td>
                            <td>{{$ep.Failures}}</td>
                            <td>{{formatFloat $ep.RequestsPerSec}}</td>
                            <td>{{formatFloat $ep.MeanLatencyMs}}</td>
                            <td>{{formatFloat $ep.P95LatencyMs}}</td>
                            <td>{{formatFloat $ep.P99LatencyMs}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .History}}
    <script>
        const historyJSON = {{.HistoryJSON}};
        const history = JSON.parse(historyJSON);

        if (history && history.length > 0) {
            const timestamps = history.map(d => d.elapsed_s);

            new uPlot({
                title: "Load",
                width: document.getElementById('load-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Time (s)" },
                    {
                        label: "VUs",
                        stroke: "#764ba2",
                        width: 2
                    },
                    {
                        label: "RPS",
                        stroke: "#3b6ea5",
                        fill: "rgba(59, 110, 165, 0.1)",
                        width: 2
                    }
                ],
                axes: [
                    { label: "Time (seconds)" },
                    { label: "VUs / Requests per second" }
                ]
            }, [timestamps, history.map(d => d.vus), history.map(d => d.current_rps)], document.getElementById('load-chart'));

            new uPlot({
                title: "Latency Percentiles",
                width: document.getElementById('latency-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Time (s)" },
                    { label: "P50", stroke: "#10b981", width: 2 },
                    { label: "P95", stroke: "#f59e0b", width: 2 },
                    { label: "P99", stroke: "#ef4444", width: 2 }
                ],
                axes: [
                    { label: "Time (seconds)" },
                    { label: "Latency (ms)" }
                ]
            }, [
                timestamps,
                history.map(d => d.p50_latency_ms),
                history.map(d => d.p95_latency_ms),
                history.map(d => d.p99_latency_ms)
            ], document.getElementById('latency-chart'));
        }
    </script>
    {{end}}
</body>
</html>
`
