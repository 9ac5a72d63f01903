package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/statebox"
	"github.com/roach88/statebox/internal/canonical"
	"github.com/roach88/statebox/internal/script"
	"github.com/roach88/statebox/internal/telemetry"
	"github.com/roach88/statebox/internal/tracelog"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	MetricsFile string

	// IDs overrides dispatch ID generation when recording (for testing).
	// If nil, recorded runs use UUIDv7Generator.
	IDs statebox.IDGenerator
}

// RunOutput is the data reported by the run command.
type RunOutput struct {
	Scenario string         `json:"scenario"`
	Result   *script.Result `json:"result"`
	Recorded int            `json:"recorded,omitempty"`
	Database string         `json:"database,omitempty"`
	Metrics  string         `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario file and print every dispatch and the final state.

With --db, each dispatch record is also written to a SQLite trace log
(created if it doesn't exist) that the trace command can query.

With --metrics-file, dispatch counters are written in the Prometheus text
exposition format once the run finishes. Every dispatch is also reported
as a span to the global OpenTelemetry tracer provider.

Examples:
  statebox run ./scenarios/counter.yaml
  statebox run ./scenarios/counter.yaml --db ./statebox.db --verbose
  statebox run ./scenarios/counter.yaml --metrics-file ./statebox.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	var defaultDB string
	if opts.RootOptions != nil {
		defaultDB = opts.RootOptions.DefaultDatabase
	}
	cmd.Flags().StringVar(&opts.Database, "db", defaultDB, "record dispatches to this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("scenario not found: %s", path), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario not found: %s", path))
	}

	scenario, err := script.LoadScenario(path)
	if err != nil {
		code := ErrCodeParse
		if errors.Is(err, script.ErrInvalidScenario) {
			code = ErrCodeInvalid
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load scenario", err)
	}

	runOpts := script.RunOptions{Logger: logger}
	observers := []statebox.Observer{telemetry.NewTracing(nil)}

	var registry *prometheus.Registry
	if opts.MetricsFile != "" {
		registry = prometheus.NewRegistry()
		observers = append(observers, telemetry.NewMetrics(registry))
	}

	var recorder *tracelog.Recorder
	if opts.Database != "" {
		logger.Info("opening trace log", "path", opts.Database)
		log, err := tracelog.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := log.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		recorder = tracelog.NewRecorder(log, logger)
		observers = append(observers, recorder)
		runOpts.IDs = opts.IDs
		if runOpts.IDs == nil {
			runOpts.IDs = statebox.UUIDv7Generator{}
		}
	}

	runOpts.Observer = statebox.NewMultiObserver(observers...)

	result, err := script.RunWithOptions(scenario, runOpts)
	if err != nil {
		_ = formatter.Error(ErrCodeRun, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to run scenario", err)
	}

	out := RunOutput{Scenario: scenario.Name, Result: result}
	if registry != nil {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, registry); err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		out.Metrics = opts.MetricsFile
	}
	if recorder != nil {
		out.Database = opts.Database
		out.Recorded = len(result.Trace) - recorder.Errors()
		if n := recorder.Errors(); n > 0 {
			logger.Warn("some dispatches were not recorded", "count", n)
		}
	}

	if opts.Format == "json" {
		if result.Pass {
			if err := formatter.Success(out); err != nil {
				return err
			}
		} else if err := formatter.Failure(ErrCodeFailed, "scenario failed", out); err != nil {
			return err
		}
	} else if err := outputRunText(cmd, out); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func outputRunText(cmd *cobra.Command, out RunOutput) error {
	w := cmd.OutOrStdout()
	result := out.Result

	fmt.Fprintf(w, "Scenario: %s\n\n", out.Scenario)
	fmt.Fprintln(w, "Trace:")
	for _, e := range result.Trace {
		fmt.Fprintf(w, "  [%d] %s%s %s (notified %d)", e.Seq, strings.Repeat("  ", e.Depth), e.Action, e.Outcome, e.Notified)
		if e.Error != "" {
			fmt.Fprintf(w, " error: %s", e.Error)
		}
		fmt.Fprintln(w)
	}

	state, err := canonical.Marshal(result.State)
	if err != nil {
		return fmt.Errorf("failed to render state: %w", err)
	}
	fmt.Fprintf(w, "\nState: %s\n", state)
	if result.Pending > 0 {
		fmt.Fprintf(w, "Pending: %d\n", result.Pending)
	}
	if out.Database != "" {
		fmt.Fprintf(w, "Recorded %d dispatch(es) to %s\n", out.Recorded, out.Database)
	}
	if out.Metrics != "" {
		fmt.Fprintf(w, "Metrics written to %s\n", out.Metrics)
	}

	fmt.Fprintln(w)
	if result.Pass {
		fmt.Fprintln(w, "✓ Scenario passed")
		return nil
	}
	fmt.Fprintln(w, "✗ Scenario failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
