package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox"
	"github.com/roach88/statebox/internal/tracelog"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	ID       string // show one dispatch and its direct children
	Action   string
	Outcome  string
	TopLevel bool
	Limit    int
}

// TraceResult holds the trace output.
type TraceResult struct {
	Entries []tracelog.Entry `json:"entries"`
	Stats   TraceStats       `json:"stats"`
}

// TraceStats counts the listed entries by outcome.
type TraceStats struct {
	Total      int `json:"total"`
	Committed  int `json:"committed"`
	Completed  int `json:"completed"`
	RolledBack int `json:"rolled_back"`
	Aborted    int `json:"aborted"`
	Failed     int `json:"failed"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query recorded dispatches",
		Long: `List dispatches recorded by "statebox run --db".

Entries are listed in dispatch order and indented by nesting depth.
With --id, shows that dispatch followed by the dispatches made from
its notification pass.

Examples:
  statebox trace --db ./statebox.db
  statebox trace --db ./statebox.db --action Increment --outcome rolled_back
  statebox trace --db ./statebox.db --id 0192f1c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	if rootOpts.DefaultDatabase == "" {
		cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
		_ = cmd.MarkFlagRequired("db")
	} else {
		cmd.Flags().StringVar(&opts.Database, "db", rootOpts.DefaultDatabase, "path to SQLite database")
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "show one dispatch and its children")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to an action name")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter to an outcome (completed|rolled_back|aborted|failed)")
	cmd.Flags().BoolVar(&opts.TopLevel, "top-level", false, "only dispatches not made from a subscriber")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = no limit)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if !validOutcome(opts.Outcome) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid outcome %q", opts.Outcome))
	}
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	log, err := tracelog.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer log.Close()

	var entries []tracelog.Entry
	if opts.ID != "" {
		root, err := log.Get(ctx, opts.ID)
		if errors.Is(err, tracelog.ErrNotFound) {
			_ = formatter.Error(ErrCodeNoEntries, fmt.Sprintf("dispatch not found: %s", opts.ID), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("dispatch not found: %s", opts.ID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read dispatch", err)
		}
		children, err := log.List(ctx, tracelog.Filter{ParentID: opts.ID, Limit: opts.Limit})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list dispatches", err)
		}
		entries = append([]tracelog.Entry{root}, children...)
	} else {
		f := tracelog.Filter{
			Action:  opts.Action,
			Outcome: statebox.Outcome(opts.Outcome),
			Limit:   opts.Limit,
		}
		if opts.TopLevel {
			f.ParentID = "-"
		}
		entries, err = log.List(ctx, f)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list dispatches", err)
		}
	}

	result := TraceResult{Entries: entries, Stats: computeStats(entries)}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(cmd, result, opts.Verbose)
	return nil
}

func validOutcome(o string) bool {
	switch statebox.Outcome(o) {
	case "", statebox.OutcomeCompleted, statebox.OutcomeRolledBack, statebox.OutcomeAborted, statebox.OutcomeFailed:
		return true
	}
	return false
}

func computeStats(entries []tracelog.Entry) TraceStats {
	stats := TraceStats{Total: len(entries)}
	for _, e := range entries {
		if e.Committed {
			stats.Committed++
		}
		switch e.Outcome {
		case statebox.OutcomeCompleted:
			stats.Completed++
		case statebox.OutcomeRolledBack:
			stats.RolledBack++
		case statebox.OutcomeAborted:
			stats.Aborted++
		case statebox.OutcomeFailed:
			stats.Failed++
		}
	}
	return stats
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) {
	w := cmd.OutOrStdout()

	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No dispatches found.")
		return
	}

	fmt.Fprintln(w, "Dispatches:")
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  [%d] %s%s %s", e.Seq, strings.Repeat("  ", e.Depth), e.Action, e.Outcome)
		if verbose {
			fmt.Fprintf(w, " id=%s payload=%s notified=%d", e.ID, e.Payload, e.Notified)
		}
		if e.Error != "" {
			fmt.Fprintf(w, " error: %s", e.Error)
		}
		fmt.Fprintln(w)
	}

	s := result.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d (committed %d, completed %d, rolled back %d, aborted %d, failed %d)\n",
		s.Total, s.Committed, s.Completed, s.RolledBack, s.Aborted, s.Failed)
}
