package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/writer"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Columns     []string // k=v pairs
	ColumnsJSON string
	CodeFile    string
	Subject     string
	Tool        string

	// IDGenerator overrides EventID and temp id generation (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator writer.IDGenerator
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <event-type>",
		Short: "Write one event",
		Long: `Write one event of the given type.

Column values are parsed as JSON scalars when possible (42, 1.5, true, null)
and taken as text otherwise. --columns supplies a JSON object and is applied
before --column pairs. --code-file stores the file's content as the event's
CodeState.

Example:
  progsnap2 log Submit --subject s1 --tool "editor 1.0" --code-file main.py
  progsnap2 log Run.Program --subject s1 --tool ide --column CodeStateID=abc --column ExecutionResult=Success`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Columns, "column", nil, "column value as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.ColumnsJSON, "columns", "", "column values as a JSON object")
	cmd.Flags().StringVar(&opts.CodeFile, "code-file", "", "file whose content becomes the event's CodeState")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "SubjectID")
	cmd.Flags().StringVar(&opts.Tool, "tool", "", "ToolInstances")

	return cmd
}

func runLog(ctx context.Context, opts *LogOptions, eventType string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if ctx == nil {
		ctx = context.Background()
	}

	columns, err := parseColumns(opts)
	if err != nil {
		return fail(formatter, ErrCodeInput, WrapExitError(ExitCommandError, "invalid columns", err))
	}

	state := ir.Event{}
	if opts.Subject != "" {
		state[ir.ColSubjectID] = ir.String(opts.Subject)
	}
	if opts.Tool != "" {
		state[ir.ColToolInstances] = ir.String(opts.Tool)
	}

	ds, err := openDataset(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer ds.Close()

	var eventOpts []writer.EventOption
	if opts.IDGenerator != nil {
		eventOpts = append(eventOpts, writer.WithIDGenerator(opts.IDGenerator))
	}

	var res *writer.LogResult
	err = ds.factory.WithWriter(ctx, func(bw *writer.BatchWriter) error {
		var err error
		res, err = writer.NewEventWriter(bw, state, eventOpts...).WriteEvent(ctx, eventType, columns)
		return err
	})
	if err != nil {
		return fail(formatter, writeErrCode(err), WrapExitError(ExitCommandError, "failed to write event", err))
	}

	return formatter.Result(fmt.Sprintf("Logged %s event", eventType), res)
}

// parseColumns merges --columns, --column and --code-file, in that order.
func parseColumns(opts *LogOptions) (ir.Event, error) {
	columns := ir.Event{}
	if opts.ColumnsJSON != "" {
		if err := json.Unmarshal([]byte(opts.ColumnsJSON), &columns); err != nil {
			return nil, fmt.Errorf("--columns: %w", err)
		}
	}

	for _, pair := range opts.Columns {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--column %q: want key=value", pair)
		}
		columns[key] = ir.ParseValue(value)
	}

	if opts.CodeFile != "" {
		code, err := os.ReadFile(opts.CodeFile)
		if err != nil {
			return nil, fmt.Errorf("--code-file: %w", err)
		}
		columns[ir.ColCodeState] = ir.String(code)
	}
	return columns, nil
}
