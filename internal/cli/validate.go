package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/progsnap2/progsnap2-go/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Findings []string `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Validate a batch file without writing",
		Long: `Validate the events of a batch file against the dataset schema.

Reports the findings the batch command would report as warnings. Nothing is
written and the database is not opened.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	bf, err := loadBatchFile(formatter, path)
	if err != nil {
		return err
	}

	_, sch, err := loadConfig(opts, formatter)
	if err != nil {
		return err
	}

	validator := schema.NewValidator(sch)
	var findings []string
	for i, e := range bf.Events {
		for _, finding := range validator.Validate(e) {
			findings = append(findings, fmt.Sprintf("event[%d]: %s", i, finding.Error()))
		}
	}

	if len(findings) > 0 {
		return outputValidationFindings(formatter, findings)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	return formatter.Success(fmt.Sprintf("✓ All %d event(s) valid", len(bf.Events)))
}

func outputValidationFindings(formatter *OutputFormatter, findings []string) error {
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeInvalid, "validation failed", ValidationResult{Valid: false, Findings: findings}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Validation failed with %d finding(s):\n", len(findings))
		formatter.printLines("  ", findings)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %d finding(s)", len(findings)))
}
