package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/writer"
)

// BatchFile is the JSON input of the batch and validate commands.
type BatchFile struct {
	Events     []ir.Event          `json:"events"`
	CodeStates map[string]ir.Entry `json:"codestates"`
}

// readBatchFile decodes path, rejecting unknown top-level fields.
func readBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var bf BatchFile
	if err := dec.Decode(&bf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &bf, nil
}

// loadBatchFile reads path and reports failures through f.
func loadBatchFile(f *OutputFormatter, path string) (*BatchFile, error) {
	bf, err := readBatchFile(path)
	if err == nil {
		f.VerboseLog("Read %d event(s) and %d codestate(s) from %s", len(bf.Events), len(bf.CodeStates), path)
		return bf, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fail(f, ErrCodeNotFound, WrapExitError(ExitCommandError, "batch file not found", err))
	}
	return nil, fail(f, ErrCodeInput, WrapExitError(ExitCommandError, "invalid batch file", err))
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.json>",
		Short: "Write a batch of events and codestates",
		Long: `Write a batch of events and the codestates they reference in one transaction.

The file holds an "events" array and a "codestates" object keyed by temp id.
Events reference codestates through CodeStateID:

  {
    "events": [{"EventType": "Submit", "CodeStateID": "tmp-1", ...}],
    "codestates": {
      "tmp-1": {"sections": [{"Code": "print(1)", "CodeStateSection": "main.py"}]}
    }
  }

Either every event is written or none is.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runBatch(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if ctx == nil {
		ctx = context.Background()
	}

	bf, err := loadBatchFile(formatter, path)
	if err != nil {
		return err
	}

	ds, err := openDataset(opts, formatter)
	if err != nil {
		return err
	}
	defer ds.Close()

	var res *writer.LogResult
	err = ds.factory.WithWriter(ctx, func(bw *writer.BatchWriter) error {
		var err error
		res, err = bw.AddEventsWithCodeStates(ctx, bf.Events, bf.CodeStates)
		return err
	})
	if err != nil {
		return fail(formatter, writeErrCode(err), WrapExitError(ExitCommandError, "failed to write batch", err))
	}

	return formatter.Result(fmt.Sprintf("Wrote %d event(s)", len(bf.Events)), res)
}
