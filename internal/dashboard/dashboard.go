package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/qa21t02/dbjourney/internal/metrics"
)

// RunConfig holds the run parameters shown in the summary panel.
type RunConfig struct {
	Target     string        // Base URL of the application under test
	Profile    string        // Ramp profile name
	Strictness string        // strict or loose
	MaxVUs     int           // Highest stage target
	Duration   time.Duration // Planned length of the ramp profile
	Timeout    time.Duration // Request timeout
	Rate       float64       // Max iterations per second (0 = unlimited)
	ThinkTime  time.Duration // Pause at the end of each session
	ConfigFile string        // Path to config file if used
}

// Dashboard renders a live terminal UI for journey metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	vuGauge        *widgets.Gauge
	statusList     *widgets.List
	stepList       *widgets.List
	checkList      *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	runConfig      RunConfig
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "P95 latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP95: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.vuGauge = widgets.NewGauge()
	d.vuGauge.Title = "Virtual Users"
	d.vuGauge.Percent = 0
	d.vuGauge.BarColor = ui.ColorBlue
	d.vuGauge.BorderStyle.Fg = ui.ColorCyan
	d.vuGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = widgets.NewList()
	d.statusList.Title = "Failed Requests"
	d.statusList.Rows = []string{"No failures"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.stepList = widgets.NewList()
	d.stepList.Title = "Steps"
	d.stepList.Rows = []string{"Awaiting data"}
	d.stepList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.stepList.BorderStyle.Fg = ui.ColorCyan

	d.checkList = widgets.NewList()
	d.checkList.Title = "Checks"
	d.checkList.Rows = []string{"Awaiting data"}
	d.checkList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(0.5, d.vuGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.22,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.44,
			ui.NewCol(0.4, d.stepList),
			ui.NewCol(0.35, d.checkList),
			ui.NewCol(0.25, d.statusList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update(d.collector.Snapshot())
			d.render()
		}
	}
}

// update refreshes all widget data from a stats snapshot.
func (d *Dashboard) update(stats metrics.Stats) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if stats.P95LatencyMs > 0 {
		d.latencyHistory = append(d.latencyHistory, stats.P95LatencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | P95: %.2fms | Min: %.2fms | Max: %.2fms",
			stats.P95LatencyMs,
			stats.MinLatencyMs,
			stats.MaxLatencyMs,
		)
	}

	d.vuGauge.Percent = vuPercent(stats.VUs, d.runConfig.MaxVUs)
	d.vuGauge.Label = fmt.Sprintf("%d / %d VUs", stats.VUs, d.runConfig.MaxVUs)

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Iterations: %d | Checks: %.1f%%",
		d.runConfig.Target,
		d.formatRunParams(),
		stats.Duration.Round(time.Second),
		stats.Iterations,
		stats.CheckRate*100,
	)

	d.metricsPara.Text = formatMetrics(stats)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP95:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P95LatencyMs,
		stats.P99LatencyMs,
	)

	d.statusList.Rows = formatStatusListRows(stats.StatusBuckets)
	d.checkList.Rows = formatCheckRows(stats.Checks)
	d.updateStepList(stats)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func vuPercent(active int64, maxVUs int) int {
	if maxVUs <= 0 {
		return 0
	}
	pct := int(active * 100 / int64(maxVUs))
	if pct > 100 {
		pct = 100
	}
	return pct
}

func formatMetrics(stats metrics.Stats) string {
	return fmt.Sprintf(
		"errors:            %d\nerror_rate:        %.2f%% of %d\nchecks:            ✓ %d ✗ %d\nIterations:        %d (%.2f/s)\nHTTP Requests:     %d (%.2f/s)\nFailed Requests:   %d",
		stats.ErrorCount,
		stats.ErrorRate*100,
		stats.ErrorRateSamples,
		stats.ChecksPassed,
		stats.ChecksFailed,
		stats.Iterations,
		stats.IterationsPerSec,
		stats.Total,
		stats.RequestsPerSec,
		stats.Failures,
	)
}

// updateStepList lists steps busiest first.
func (d *Dashboard) updateStepList(stats metrics.Stats) {
	if len(stats.Endpoints) == 0 {
		d.stepList.Rows = []string{"[No step data](fg:green)"}
		return
	}
	names := make([]string, 0, len(stats.Endpoints))
	for name := range stats.Endpoints {
		names = append(names, name)
	}
	sortSteps(names, stats.Endpoints)

	formatted := make([]string, 0, len(names))
	for _, name := range names {
		stat := stats.Endpoints[name]
		line := fmt.Sprintf("[%s](fg:cyan) | RPS %5.1f | P95 %6.1fms | Err %d",
			name,
			stat.RequestsPerSec,
			stat.P95LatencyMs,
			stat.Failures,
		)
		if summary := summarizeStatusBuckets(stat.StatusBuckets, 2); summary != "" {
			line += " | " + summary
		}
		formatted = append(formatted, line)
	}
	d.stepList.Rows = formatted
}

func sortSteps(names []string, endpoints map[string]metrics.EndpointStats) {
	sort.Slice(names, func(i, j int) bool {
		a, b := endpoints[names[i]], endpoints[names[j]]
		if a.Total == b.Total {
			return names[i] < names[j]
		}
		return a.Total > b.Total
	})
}

// formatCheckRows lists failing checks first so they stay visible.
func formatCheckRows(checks []metrics.CheckStats) []string {
	if len(checks) == 0 {
		return []string{"Awaiting data"}
	}
	failing := make([]string, 0)
	passing := make([]string, 0, len(checks))
	for _, check := range checks {
		if check.Fails > 0 {
			failing = append(failing, fmt.Sprintf("[✗ %s](fg:red) %d/%d", check.Name, check.Fails, check.Passes+check.Fails))
			continue
		}
		passing = append(passing, fmt.Sprintf("[✓ %s](fg:green)", check.Name))
	}
	return append(failing, passing...)
}

func formatStatusListRows(buckets map[string]map[string]int) []string {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		row := rows[i]
		formatted = append(formatted, fmt.Sprintf("[%s %s](fg:red) %d", row.Step, row.Code, row.Count))
	}
	return formatted
}

func summarizeStatusBuckets(buckets map[string]map[string]int, limit int) string {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		return ""
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s x%d", row.Code, row.Count))
	}
	return strings.Join(parts, ", ")
}

// formatRunParams formats the run configuration for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Profile != "" {
		parts = append(parts, fmt.Sprintf("Profile: %s", d.runConfig.Profile))
	}

	if d.runConfig.Strictness != "" {
		parts = append(parts, fmt.Sprintf("Strictness: %s", d.runConfig.Strictness))
	}

	if d.runConfig.MaxVUs > 0 {
		parts = append(parts, fmt.Sprintf("Max VUs: %d", d.runConfig.MaxVUs))
	}

	if d.runConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.runConfig.Duration))
	}

	if d.runConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %g/s", d.runConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.runConfig.ThinkTime > 0 {
		parts = append(parts, fmt.Sprintf("Think: %s", d.runConfig.ThinkTime))
	}

	if d.runConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.runConfig.Timeout))
	}

	// Config file (only show if used)
	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
