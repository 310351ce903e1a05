package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qa21t02/dbjourney/internal/config"
	"github.com/qa21t02/dbjourney/internal/dashboard"
	"github.com/qa21t02/dbjourney/internal/httpclient"
	"github.com/qa21t02/dbjourney/internal/markers"
	"github.com/qa21t02/dbjourney/internal/metrics"
	"github.com/qa21t02/dbjourney/internal/output"
	"github.com/qa21t02/dbjourney/internal/runner"
	"github.com/qa21t02/dbjourney/internal/scenario"
	"github.com/qa21t02/dbjourney/internal/threshold"
	"github.com/qa21t02/dbjourney/internal/tracing"
)

const (
	progressInterval = time.Second
	tracingFlushTime = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, warning := range cfg.Warnings() {
		fmt.Fprintf(stderr, "WARNING: %s\n", warning)
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}
	evaluator := threshold.NewEvaluator(thresholds)

	logger := newLogger(cfg, stderr)
	defer func() { _ = logger.Sync() }()

	catalogue, err := loadCatalogue(cfg)
	if err != nil {
		return err
	}
	if unknown := catalogue.UnknownNames(); len(unknown) > 0 {
		logger.Warn("markers file names checks the journey never performs",
			zap.String("file", cfg.MarkersFile),
			zap.Strings("checks", unknown))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), tracingFlushTime)
		defer flushCancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()
	journey, err := scenario.New(scenario.Options{
		Target:      cfg.Target,
		Client:      httpclient.SessionFactory(httpclient.NewClient(cfg.Timeout)),
		Catalogue:   catalogue,
		Recorder:    collector,
		ThinkTime:   cfg.ThinkTime,
		Password:    cfg.Password,
		LoginSuffix: cfg.LoginSuffix,
		PointName:   cfg.PointName,
		Tracer:      provider.Tracer(),
		Propagate:   provider.ShouldPropagate(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	var iteration runner.Iteration = &sessionIteration{journey: journey, collector: collector}
	iteration = runner.WithLogging(iteration, &zapFailureLogger{logger: logger})

	r := runner.New(runner.Options{
		Stages:           toRunnerStages(cfg.Stages),
		StartVUs:         1,
		GracefulStop:     cfg.GracefulStop,
		MaxIterationRate: cfg.Rate,
		Iteration:        iteration,
		OnVUs:            collector.SetVUs,
	})

	info := output.RunInfo{
		RunID:      output.NewRunID(),
		Target:     cfg.Target,
		Profile:    profileName(cfg),
		Strictness: string(cfg.Strictness),
		StartedAt:  time.Now(),
	}
	logger.Info("starting run",
		zap.String("run_id", info.RunID),
		zap.String("target", info.Target),
		zap.String("profile", info.Profile),
		zap.Duration("planned", r.Duration()))

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.RunConfig{
			Target:     cfg.Target,
			Profile:    info.Profile,
			Strictness: info.Strictness,
			MaxVUs:     config.MaxTarget(cfg.Stages),
			Duration:   r.Duration(),
			Timeout:    cfg.Timeout,
			Rate:       cfg.Rate,
			ThinkTime:  cfg.ThinkTime,
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	// The progress reporter also samples history for the HTML report, so a
	// JSON run that wants HTML still gets a silent one.
	var progress *output.ProgressReporter
	if !cfg.Dashboard && (!cfg.JSONOutput || cfg.HTMLOutput != "") {
		var w io.Writer = stdout
		if cfg.JSONOutput {
			w = io.Discard
		}
		progress = output.NewProgressReporter(collector, progressInterval, w)
		progress.Start()
	}

	// Reset the collector clock so rates cover only the run itself.
	collector.Start()
	result := r.Run(ctx)

	if dash != nil {
		dash.Stop()
	}
	if progress != nil {
		progress.Stop()
		if !cfg.JSONOutput {
			fmt.Fprintln(stdout)
		}
	}

	stats := collector.Snapshot()
	logger.Info("run finished",
		zap.String("run_id", info.RunID),
		zap.Int64("iterations", result.Iterations),
		zap.Int64("interrupted", result.Interrupted),
		zap.Duration("duration", result.Duration))

	results := evaluator.Evaluate(stats)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, info, stats, results); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, info, stats, results)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, info, stats, collector.History(), results); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(stdout, "\nHTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	failed := 0
	for _, res := range results {
		if !res.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	return nil
}

// sessionIteration runs one journey and counts it unless the run stopped it
// midway.
type sessionIteration struct {
	journey   *scenario.Runner
	collector *metrics.Collector
}

func (s *sessionIteration) Do(ctx context.Context) error {
	err := s.journey.Run(ctx)
	if ctx.Err() != nil {
		return err
	}
	s.collector.RecordIteration(err != nil)
	return err
}

type zapFailureLogger struct {
	logger *zap.Logger
}

func (l *zapFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	var failures *scenario.CheckFailures
	if errors.As(err, &failures) {
		l.logger.Info("session failed",
			zap.String("login", failures.Login),
			zap.Int("failed_checks", len(failures.Failures)),
			zap.Int("checks", failures.Checks))
		return
	}
	l.logger.Info("session failed", zap.Error(err))
}

func loadCatalogue(cfg *config.Config) (*markers.Catalogue, error) {
	catalogue, err := markers.ForStrictness(string(cfg.Strictness))
	if err != nil {
		return nil, err
	}
	if cfg.MarkersFile == "" {
		return catalogue, nil
	}
	return markers.LoadFile(cfg.MarkersFile, catalogue)
}

func toRunnerStages(stages []config.Stage) []runner.Stage {
	if len(stages) == 0 {
		return nil
	}
	result := make([]runner.Stage, len(stages))
	for i, s := range stages {
		result[i] = runner.Stage{Target: s.Target, Duration: s.Duration}
	}
	return result
}

func profileName(cfg *config.Config) string {
	name := cfg.Type
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s (max %d VUs over %s)", name, config.MaxTarget(cfg.Stages), config.TotalDuration(cfg.Stages))
}

func writeHTMLReport(path string, info output.RunInfo, stats metrics.Stats, history []metrics.DataPoint, results []threshold.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("html report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, info, stats, history, results); err != nil {
		f.Close()
		return fmt.Errorf("html report: %w", err)
	}
	return f.Close()
}
