package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose         bool
	Format          string // "json" | "text"
	Config          string // path to the dataset YAML config
	MetricsTextfile string // write prometheus metrics here after the command
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the progsnap2 CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "progsnap2",
		Short: "Write ProgSnap2 programming process datasets",
		Long: `Write ProgSnap2 programming process datasets.

Events are validated against the ProgSnap2 schema and written to the
MainTable of a SQLite database. The code they reference is stored once per
distinct content in the CodeState representation chosen by the config
(Table, Directory or Git).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.MetricsTextfile == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(opts.MetricsTextfile, prometheus.DefaultGatherer); err != nil {
				return WrapExitError(ExitCommandError, "failed to write metrics", err)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "progsnap2.yaml", "dataset config file")
	cmd.PersistentFlags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file on success")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCodeStateCommand(opts))

	return cmd
}

// configureLogging installs the default slog handler on stderr. Debug
// records are shown with --verbose.
func configureLogging(opts *RootOptions) {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
