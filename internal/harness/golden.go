package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as stable text: one block per step, then the
// final MainTable.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)

	for i, sr := range result.Steps {
		fmt.Fprintf(&b, "step[%d] %s:", i, sr.Kind)
		if sr.Err != "" {
			fmt.Fprintf(&b, " error=%q\n", sr.Err)
			continue
		}
		if sr.Result == nil {
			b.WriteString(" no result\n")
			continue
		}
		fmt.Fprintf(&b, " success=%t\n", sr.Result.Success)
		for _, w := range sr.Result.Warnings {
			fmt.Fprintf(&b, "  warning: %s\n", w)
		}
		for _, e := range sr.Result.Errors {
			fmt.Fprintf(&b, "  error: %s\n", e)
		}
	}

	b.WriteString("events:\n")
	for i, e := range result.Events {
		fmt.Fprintf(&b, "  [%d] %s\n", i, formatEvent(e))
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario in a temp directory, fails the test if
// the scenario does not pass, and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		return err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n%s", scenario.Name, strings.Join(result.Errors, "\n"))
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))

	return nil
}
