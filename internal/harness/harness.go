package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/progsnap2/progsnap2-go/internal/codestate"
	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/schema"
	"github.com/progsnap2/progsnap2-go/internal/store"
	"github.com/progsnap2/progsnap2-go/internal/testutil"
	"github.com/progsnap2/progsnap2-go/internal/writer"
)

// Harness is the scenario execution engine.
// It runs steps against one dataset with deterministic ids and clock.
type Harness struct {
	cfg     *config.DataConfig
	store   *store.Store
	factory *writer.Factory
	clock   *testutil.DeterministicClock
	ids     *testutil.SequenceGenerator
	logger  *slog.Logger
}

// Run executes a scenario in root, which should be an empty directory, and
// returns the result.
//
// Execution flow:
// 1. Open the dataset database under root and initialize it
// 2. Execute steps, checking each expect clause
// 3. Read MainTable back
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario, root string) (*Result, error) {
	cfg := scenario.Config
	cfg.RootPath = root
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario config: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	sch, err := schema.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	h := &Harness{
		cfg:    &cfg,
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		ids:    testutil.NewSequenceGenerator("id"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	opts := []writer.Option{writer.WithLogger(h.logger)}
	if cfg.Representation == config.RepresentationGit {
		git := codestate.NewGit(cfg.CodeStatesDir(), cfg.DefaultProjectID,
			codestate.WithClock(h.clock.Now),
			codestate.WithAuthor("harness", "harness@progsnap2.test"),
		)
		opts = append(opts, writer.WithCodeStateStore(git))
	}
	h.factory = writer.NewFactory(st, &cfg, sch, opts...)

	err = h.factory.WithWriter(ctx, func(bw *writer.BatchWriter) error {
		_, err := bw.InitializeDatabase(ctx, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dataset: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		sr, err := h.executeStep(ctx, step)
		if err != nil {
			sr.Err = err.Error()
		}
		result.Steps = append(result.Steps, sr)

		for _, msg := range checkExpect(step.Expect, sr) {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, sr.Kind, msg))
		}

		h.logger.Info("step completed", "step", i, "kind", sr.Kind, "error", sr.Err)
	}

	events, err := st.ReadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	result.Events = events

	actx := &AssertionContext{
		Store:  st,
		Config: &cfg,
		Ctx:    ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep runs one step with a fresh writer.
func (h *Harness) executeStep(ctx context.Context, step Step) (StepResult, error) {
	sr := StepResult{Kind: step.Kind()}

	err := h.factory.WithWriter(ctx, func(bw *writer.BatchWriter) error {
		var err error
		if step.Log != nil {
			sr.Result, err = h.executeLog(ctx, bw, step.Log)
		} else {
			sr.Result, err = h.executeBatch(ctx, bw, step.Batch)
		}
		return err
	})
	return sr, err
}

func (h *Harness) executeBatch(ctx context.Context, bw *writer.BatchWriter, step *BatchStep) (*writer.LogResult, error) {
	events := make([]ir.Event, len(step.Events))
	for i, raw := range step.Events {
		e, err := convertColumns(raw)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		events[i] = e
	}

	codestates := make(map[string]ir.Entry, len(step.CodeStates))
	for tmp, cs := range step.CodeStates {
		codestates[tmp] = cs.Entry()
	}

	return bw.AddEventsWithCodeStates(ctx, events, codestates)
}

func (h *Harness) executeLog(ctx context.Context, bw *writer.BatchWriter, step *LogStep) (*writer.LogResult, error) {
	state, err := convertColumns(step.State)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	columns, err := convertColumns(step.Columns)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	w := writer.NewEventWriter(bw, state, writer.WithIDGenerator(h.ids))
	return w.WriteEvent(ctx, step.EventType, columns)
}

// checkExpect compares a step's outcome with its expect clause. Without a
// clause, the step must not return an error.
func checkExpect(expect *ExpectClause, sr StepResult) []string {
	var msgs []string

	if expect == nil || expect.Error == "" {
		if sr.Err != "" {
			msgs = append(msgs, fmt.Sprintf("unexpected error: %s", sr.Err))
		}
		if expect == nil {
			return msgs
		}
	} else if !strings.Contains(sr.Err, expect.Error) {
		msgs = append(msgs, fmt.Sprintf("expected error containing %q, got %q", expect.Error, sr.Err))
	}

	res := sr.Result
	if res == nil {
		return msgs
	}

	if expect.Success != nil && res.Success != *expect.Success {
		msgs = append(msgs, fmt.Sprintf("expected success=%t, got %t (errors: %v)", *expect.Success, res.Success, res.Errors))
	}
	if expect.WarningCount != nil && len(res.Warnings) != *expect.WarningCount {
		msgs = append(msgs, fmt.Sprintf("expected %d warning(s), got %d: %v", *expect.WarningCount, len(res.Warnings), res.Warnings))
	}
	for _, want := range expect.Warnings {
		if !containsSubstring(res.Warnings, want) {
			msgs = append(msgs, fmt.Sprintf("no warning contains %q: %v", want, res.Warnings))
		}
	}
	for _, want := range expect.Errors {
		if !containsSubstring(res.Errors, want) {
			msgs = append(msgs, fmt.Sprintf("no error contains %q: %v", want, res.Errors))
		}
	}
	return msgs
}

func containsSubstring(messages []string, want string) bool {
	for _, m := range messages {
		if strings.Contains(m, want) {
			return true
		}
	}
	return false
}

// convertColumns converts a YAML-parsed column map to an ir.Event.
func convertColumns(raw map[string]any) (ir.Event, error) {
	e := make(ir.Event, len(raw))
	for key, val := range raw {
		v, err := convertToValue(val)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		e[key] = v
	}
	return e, nil
}

// convertToValue converts a YAML-parsed scalar to an ir.Value.
// YAML null becomes ir.Null; collections are rejected.
func convertToValue(val any) (ir.Value, error) {
	switch v := val.(type) {
	case nil:
		return ir.Null{}, nil
	case string:
		return ir.String(v), nil
	case int:
		return ir.Int(int64(v)), nil
	case int64:
		return ir.Int(v), nil
	case uint64:
		return ir.Int(int64(v)), nil
	case float64:
		return ir.Real(v), nil
	case bool:
		return ir.Bool(v), nil
	case time.Time:
		return ir.Timestamp(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
