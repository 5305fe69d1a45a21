package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/progsnap2/progsnap2-go/internal/writer"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Force bool
}

// InitResult is the JSON payload of the init command.
type InitResult struct {
	Database string `json:"database"`
	Created  bool   `json:"created"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create MainTable and Metadata",
		Long: `Create the MainTable and Metadata tables of the dataset database.

Does nothing when both tables already exist. With --force, missing tables are
created and every Metadata value is rewritten from the schema defaults and
the config; existing events are kept.

Example:
  progsnap2 init --config ./dataset/progsnap2.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "rewrite Metadata even if the tables exist")

	return cmd
}

func runInit(ctx context.Context, opts *InitOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if ctx == nil {
		ctx = context.Background()
	}

	ds, err := openDataset(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer ds.Close()

	var created bool
	err = ds.factory.WithWriter(ctx, func(bw *writer.BatchWriter) error {
		var err error
		created, err = bw.InitializeDatabase(ctx, opts.Force)
		return err
	})
	if err != nil {
		return fail(formatter, ErrCodeDatabase, WrapExitError(ExitCommandError, "failed to initialize database", err))
	}

	result := InitResult{Database: ds.cfg.DatabasePath(), Created: created}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	if created {
		return formatter.Success(fmt.Sprintf("✓ Initialized %s", result.Database))
	}
	return formatter.Success(fmt.Sprintf("Already initialized: %s (use --force to rewrite Metadata)", result.Database))
}
