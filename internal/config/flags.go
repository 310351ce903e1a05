package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dbjourney",
		Short:         "Drive the database-administration user journey under load",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("target", "", "Base URL of the application under test (env HOSTNAME, default "+DefaultTarget+")")
	flags.String("type", "", "Ramp profile: 'Multiple' ramps to 50 VUs over 2m, anything else runs 1 VU for 30s (env TYPE)")
	flags.String("strictness", "", "Assertion set: 'strict' or 'loose' (env STRICTNESS)")
	flags.String("markers", "", "YAML file overriding the built-in content markers")

	// Journey data flags
	flags.String("password", DefaultPassword, "Password used for every registered user")
	flags.String("login-suffix", DefaultLoginSuffix, "Suffix appended to the generated login")
	flags.String("point-name", DefaultPointName, "Name of the backup point created by each session")

	// Load control flags
	flags.Duration("think-time", DefaultThinkTime, "Pause at the end of each session")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.Duration("graceful-stop", 0, "Time a stopping VU may spend finishing its session (0 = until the session ends)")
	flags.Float64("rate", 0, "Maximum sessions started per second across all VUs (0 means unlimited)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("log-errors", false, "Log each failed check to stderr")
	flags.BoolP("verbose", "v", false, "Log run lifecycle events")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Pass/fail thresholds (repeatable, e.g. 'error_rate:rate < 0.05')")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for step spans (env OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of sessions to trace (0.0-1.0)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the environment and the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.Target = strings.TrimSpace(val)
	}
	if fs.Changed("type") {
		val, err := fs.GetString("type")
		if err != nil {
			return err
		}
		cfg.Type = strings.TrimSpace(val)
		cfg.Stages = nil
	}
	if fs.Changed("strictness") {
		val, err := fs.GetString("strictness")
		if err != nil {
			return err
		}
		cfg.Strictness = Strictness(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("markers") {
		val, err := fs.GetString("markers")
		if err != nil {
			return err
		}
		cfg.MarkersFile = strings.TrimSpace(val)
	}
	if fs.Changed("password") {
		val, err := fs.GetString("password")
		if err != nil {
			return err
		}
		cfg.Password = val
	}
	if fs.Changed("login-suffix") {
		val, err := fs.GetString("login-suffix")
		if err != nil {
			return err
		}
		cfg.LoginSuffix = val
	}
	if fs.Changed("point-name") {
		val, err := fs.GetString("point-name")
		if err != nil {
			return err
		}
		cfg.PointName = val
	}
	if fs.Changed("think-time") {
		val, err := fs.GetDuration("think-time")
		if err != nil {
			return err
		}
		cfg.ThinkTime = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("graceful-stop") {
		val, err := fs.GetDuration("graceful-stop")
		if err != nil {
			return err
		}
		cfg.GracefulStop = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetFloat64("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
