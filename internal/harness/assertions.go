package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Events   []ir.Event // Final MainTable for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nMainTable:\n")
		for i, event := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, formatEvent(event))
		}
	}

	return buf.String()
}

// AssertionContext provides what assertions need beyond the Result.
type AssertionContext struct {
	Store  *store.Store
	Config *config.DataConfig
	Ctx    context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventCount:
			err = assertEventCount(result.Events, a)
		case AssertEvent:
			err = assertEvent(result.Events, a)
		case AssertCodeStateRows:
			err = assertCodeStateRows(actx, a)
		case AssertFileExists:
			err = assertFileExists(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertEventCount checks the number of MainTable rows.
func assertEventCount(events []ir.Event, a Assertion) error {
	if len(events) != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d event(s)", a.Count),
			Actual:   fmt.Sprintf("%d event(s)", len(events)),
			Events:   events,
		}
	}
	return nil
}

// assertEvent checks the row at a.Index against a.Expect using subset
// semantics. An expected null means the column is absent or NULL.
func assertEvent(events []ir.Event, a Assertion) error {
	if a.Index < 0 || a.Index >= len(events) {
		return &AssertionError{
			Type:     AssertEvent,
			Expected: fmt.Sprintf("event at index %d", a.Index),
			Actual:   fmt.Sprintf("%d event(s)", len(events)),
			Events:   events,
		}
	}
	actual := events[a.Index]

	for _, key := range sortedKeys(a.Expect) {
		want, err := convertToValue(a.Expect[key])
		if err != nil {
			return fmt.Errorf("expect %q: %w", key, err)
		}
		got, ok := actual[key]
		if !ok {
			got = ir.Null{}
		}
		if !valuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertEvent,
				Expected: fmt.Sprintf("event[%d].%s = %q (%s)", a.Index, key, ir.Format(want), want.Kind()),
				Actual:   fmt.Sprintf("event[%d].%s = %q (%s)", a.Index, key, ir.Format(got), got.Kind()),
				Events:   events,
			}
		}
	}
	return nil
}

// assertCodeStateRows checks the number of rows in the CodeStates table.
func assertCodeStateRows(actx *AssertionContext, a Assertion) error {
	var ids []string
	if a.ID != "" {
		ids = append(ids, a.ID)
	}
	n, err := actx.Store.CountCodeStateRows(actx.Ctx, ids...)
	if err != nil {
		return err
	}
	if n != a.Count {
		what := "CodeStates"
		if a.ID != "" {
			what += " for " + a.ID
		}
		return &AssertionError{
			Type:     AssertCodeStateRows,
			Expected: fmt.Sprintf("%d row(s) in %s", a.Count, what),
			Actual:   fmt.Sprintf("%d row(s)", n),
		}
	}
	return nil
}

// assertFileExists checks that a path exists under the dataset root.
func assertFileExists(actx *AssertionContext, a Assertion) error {
	path := filepath.Join(actx.Config.RootPath, filepath.FromSlash(a.Path))
	if _, err := os.Stat(path); err != nil {
		return &AssertionError{
			Type:     AssertFileExists,
			Expected: fmt.Sprintf("%s to exist", a.Path),
			Actual:   err.Error(),
		}
	}
	return nil
}

// valuesEqual compares an expected value from YAML with a stored one.
// YAML has no separate integer and real syntax for whole numbers, so Int
// and Real compare numerically.
func valuesEqual(want, got ir.Value) bool {
	if ir.IsNull(want) || ir.IsNull(got) {
		return ir.IsNull(want) && ir.IsNull(got)
	}
	switch w := want.(type) {
	case ir.Int:
		switch g := got.(type) {
		case ir.Int:
			return w == g
		case ir.Real:
			return float64(w) == float64(g)
		}
		return false
	case ir.Real:
		switch g := got.(type) {
		case ir.Int:
			return float64(w) == float64(g)
		case ir.Real:
			return w == g
		}
		return false
	case ir.Timestamp:
		g, ok := got.(ir.Timestamp)
		return ok && time.Time(w).Equal(time.Time(g))
	case ir.String:
		// YAML timestamps decode as strings.
		if g, ok := got.(ir.Timestamp); ok {
			t, err := time.Parse(time.RFC3339Nano, string(w))
			return err == nil && t.Equal(time.Time(g))
		}
		return want == got
	default:
		return want == got
	}
}

// formatEvent renders an event as sorted key=value pairs.
func formatEvent(e ir.Event) string {
	parts := make([]string, 0, len(e))
	for _, k := range e.SortedKeys() {
		parts = append(parts, k+"="+ir.Format(e[k]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
