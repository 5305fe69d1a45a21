package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/progsnap2/progsnap2-go/internal/codestate"
	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// CodeStateAddOptions holds flags for the codestate add command.
type CodeStateAddOptions struct {
	*RootOptions
	Grouping string
	Project  string
}

// CodeStateAddResult is the JSON payload of the codestate add command.
type CodeStateAddResult struct {
	CodeStateID string `json:"codestate_id"`
	Sections    int    `json:"sections"`
}

// NewCodeStateCommand creates the codestate command group.
func NewCodeStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codestate",
		Short: "Manage stored codestates",
	}
	cmd.AddCommand(newCodeStateAddCommand(rootOpts))
	return cmd
}

func newCodeStateAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CodeStateAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Store files as one codestate and print its id",
		Long: `Store the given files as one codestate and print its id.

A single file is stored as the unnamed section. Several files become named
sections keyed by their path as given. Storing the same content twice
returns the same id.

Example:
  progsnap2 codestate add --grouping s1 --project hw1 main.py util.py`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCodeStateAdd(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Grouping, "grouping", "", "grouping id (usually the SubjectID)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "ProjectID (defaults to the config's default_project_id)")

	return cmd
}

func runCodeStateAdd(ctx context.Context, opts *CodeStateAddOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if ctx == nil {
		ctx = context.Background()
	}

	entry, err := readEntry(files)
	if err != nil {
		return fail(formatter, ErrCodeInput, WrapExitError(ExitCommandError, "failed to read files", err))
	}

	ds, err := openDataset(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer ds.Close()

	cs, err := codestate.New(ds.cfg, ds.store.DB())
	if err != nil {
		return fail(formatter, ErrCodeConfig, WrapExitError(ExitCommandError, "failed to open codestate store", err))
	}

	project := opts.Project
	if project == "" && cs.RequiresProjectID() {
		project = cs.DefaultProjectID()
		formatter.VerboseLog("No --project given; using default project %s", project)
	}
	entry = entry.WithContext(ir.Context{GroupingID: opts.Grouping, ProjectID: project})

	id, err := cs.AddAndGetID(ctx, entry)
	if err != nil {
		return fail(formatter, ErrCodeWriteFailed, WrapExitError(ExitFailure, "failed to store codestate", err))
	}

	if opts.Format == "json" {
		return formatter.Success(CodeStateAddResult{CodeStateID: id, Sections: len(entry.Sections)})
	}
	return formatter.Success(id)
}

// readEntry builds an Entry from files. One file is the unnamed section;
// several are named by their slash-separated paths.
func readEntry(files []string) (ir.Entry, error) {
	if len(files) == 1 {
		code, err := os.ReadFile(files[0])
		if err != nil {
			return ir.Entry{}, err
		}
		return ir.EntryFromCode(string(code)), nil
	}

	var entry ir.Entry
	for _, f := range files {
		code, err := os.ReadFile(f)
		if err != nil {
			return ir.Entry{}, err
		}
		entry.Sections = append(entry.Sections, ir.Section{
			Name: filepath.ToSlash(filepath.Clean(f)),
			Code: string(code),
		})
	}
	if err := entry.Validate(); err != nil {
		return ir.Entry{}, fmt.Errorf("files: %w", err)
	}
	return entry, nil
}
