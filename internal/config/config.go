package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	DefaultTarget      = "http://localhost:7000"
	DefaultPassword    = "Testing9874!"
	DefaultLoginSuffix = "@testv.com"
	DefaultPointName   = "somePointName"
	DefaultThinkTime   = time.Second
	DefaultTimeout     = 60 * time.Second
)

// Strictness selects how detailed the body assertions of the journey are.
type Strictness string

const (
	StrictnessStrict Strictness = "strict"
	StrictnessLoose  Strictness = "loose"
)

type Config struct {
	Target       string        `mapstructure:"target"`
	Type         string        `mapstructure:"type"`
	Stages       []Stage       `mapstructure:"stages"`
	Strictness   Strictness    `mapstructure:"strictness"`
	MarkersFile  string        `mapstructure:"markers"`
	Password     string        `mapstructure:"password"`
	LoginSuffix  string        `mapstructure:"login_suffix"`
	PointName    string        `mapstructure:"point_name"`
	ThinkTime    time.Duration `mapstructure:"think_time"`
	Timeout      time.Duration `mapstructure:"timeout"`
	GracefulStop time.Duration `mapstructure:"graceful_stop"`
	Rate         float64       `mapstructure:"rate"`
	JSONOutput   bool          `mapstructure:"json_output"`
	HTMLOutput   string        `mapstructure:"html_output"`
	Dashboard    bool          `mapstructure:"dashboard"`
	LogErrors    bool          `mapstructure:"log_errors"`
	Verbose      bool          `mapstructure:"verbose"`
	Thresholds   []string      `mapstructure:"thresholds"`
	Tracing      TracingConfig `mapstructure:"tracing"`
	ConfigFile   string        `mapstructure:"-"`
}

// Stage is one step of a ramp profile: reach Target virtual users over Duration.
type Stage struct {
	Target   int           `mapstructure:"target"`
	Duration time.Duration `mapstructure:"duration"`
}

// TracingConfig configures optional OpenTelemetry export of step spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether any tracing setting was provided.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// ProfileStages returns the built-in ramp profile for a run type. "Multiple"
// ramps to 50 virtual users over two minutes; anything else runs one virtual
// user for thirty seconds.
func ProfileStages(runType string) []Stage {
	if runType == "Multiple" {
		return []Stage{{Target: 50, Duration: 2 * time.Minute}}
	}
	return []Stage{{Target: 1, Duration: 30 * time.Second}}
}

// TotalDuration sums the stage durations.
func TotalDuration(stages []Stage) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += s.Duration
	}
	return total
}

// MaxTarget returns the largest stage target.
func MaxTarget(stages []Stage) int {
	max := 0
	for _, s := range stages {
		if s.Target > max {
			max = s.Target
		}
	}
	return max
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Warnings lists settings that are valid but worth a second look.
func (c Config) Warnings() []string {
	var warnings []string
	if max := MaxTarget(c.Stages); max > 500 {
		warnings = append(warnings, fmt.Sprintf("ramp profile reaches %d virtual users; ensure you have authorization to test the target system", max))
	}
	return warnings
}

func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.Target)
	if target == "" {
		issues = append(issues, "target is required")
	} else if u, err := url.Parse(target); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, fmt.Sprintf("target %q must be an absolute http(s) URL", target))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target scheme %q is not supported", u.Scheme))
	}

	issues = append(issues, validateStages(c.Stages)...)

	switch c.Strictness {
	case "", StrictnessStrict, StrictnessLoose:
	default:
		issues = append(issues, fmt.Sprintf("strictness %q is not supported (use strict or loose)", c.Strictness))
	}

	if c.ThinkTime < 0 {
		issues = append(issues, "think_time must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.GracefulStop < 0 {
		issues = append(issues, "graceful_stop must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if strings.TrimSpace(c.Password) == "" {
		issues = append(issues, "password cannot be empty")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing: sample_rate must be between 0.0 and 1.0")
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol %q is not supported (use grpc or http)", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateStages(stages []Stage) []string {
	if len(stages) == 0 {
		return []string{"at least one stage is required"}
	}
	var issues []string
	for idx, s := range stages {
		if s.Target < 0 {
			issues = append(issues, fmt.Sprintf("stages[%d]: target must be >= 0", idx))
		}
		if s.Duration <= 0 {
			issues = append(issues, fmt.Sprintf("stages[%d]: duration must be > 0", idx))
		}
	}
	if MaxTarget(stages) == 0 {
		issues = append(issues, "stages: at least one stage must target more than 0 virtual users")
	}
	return issues
}
