package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/schema"
	"github.com/roach88/statebox/internal/script"
)

// FileValidation is the validation outcome for one scenario file.
type FileValidation struct {
	Path     string `json:"path"`
	Scenario string `json:"scenario,omitempty"`
	Valid    bool   `json:"valid"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Check scenario files without running them",
		Long: `Parse and validate scenario files without running them.

Checks for unknown YAML fields, undefined action names, malformed
operations and assertions, and compiles the CUE schema if one is given.

Examples:
  statebox validate ./scenarios/counter.yaml
  statebox validate ./scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	invalid := 0
	for _, path := range paths {
		fv := validateFile(path)
		formatter.VerboseLog("validated %s: valid=%t", path, fv.Valid)
		if !fv.Valid {
			result.Valid = false
			invalid++
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		if result.Valid {
			if err := formatter.Success(result); err != nil {
				return err
			}
		} else if err := formatter.Failure(ErrCodeInvalid, fmt.Sprintf("%d of %d file(s) invalid", invalid, len(paths)), result); err != nil {
			return err
		}
	} else {
		outputValidateText(cmd, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d file(s) invalid", invalid, len(paths)))
	}
	return nil
}

func validateFile(path string) FileValidation {
	fv := FileValidation{Path: path}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fv.Code = ErrCodeNotFound
		fv.Error = fmt.Sprintf("file not found: %s", path)
		return fv
	}

	s, err := script.LoadScenario(path)
	if err != nil {
		fv.Code = ErrCodeParse
		if errors.Is(err, script.ErrInvalidScenario) {
			fv.Code = ErrCodeInvalid
		}
		fv.Error = err.Error()
		return fv
	}
	fv.Scenario = s.Name

	if s.Schema != "" {
		if _, err := schema.Compile(s.Schema); err != nil {
			fv.Code = ErrCodeSchema
			fv.Error = err.Error()
			return fv
		}
	}

	fv.Valid = true
	return fv
}

func outputValidateText(cmd *cobra.Command, result ValidationResult) {
	w := cmd.OutOrStdout()
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Scenario)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fv.Path)
		fmt.Fprintf(w, "  Error [%s]: %s\n", fv.Code, fv.Error)
	}
}
