// Package cli implements the statebox command line: running, testing and
// validating scenario files and inspecting recorded dispatch logs.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// DefaultDatabase is the --db default for run and trace (STATEBOX_DB).
	DefaultDatabase string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the statebox CLI.
// Flag defaults come from the environment; see EnvConfig.
func NewRootCommand() *cobra.Command {
	cfg, envErr := ParseEnv()
	opts := &RootOptions{DefaultDatabase: cfg.Database}

	cmd := &cobra.Command{
		Use:   "statebox",
		Short: "statebox - scripted reactive state sessions",
		Long: `Run scenario files against a statebox store.

A scenario declares an initial state, named actions, subscribers that
react to dispatches, the dispatches to perform and assertions on the
resulting trace and state.

Environment:
  STATEBOX_FORMAT   default for --format
  STATEBOX_VERBOSE  default for --verbose
  STATEBOX_DB       default for --db`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", envErr)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", cfg.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger builds the slog logger commands hand to the store. Debug records
// (one per dispatch) are only shown with --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
