package store

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// quoteIdent quotes a SQL identifier. Column names come from schema files,
// so they are always quoted rather than trusted.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// scanEvent reads the current row into an Event. NULL cells are omitted.
func scanEvent(rows *sql.Rows, cols []string) (ir.Event, error) {
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	e := make(ir.Event, len(cols))
	for i, col := range cols {
		v, err := ir.FromDriver(raw[i])
		if err != nil {
			return nil, fmt.Errorf("scan event column %s: %w", col, err)
		}
		if !ir.IsNull(v) {
			e[col] = v
		}
	}
	return e, nil
}
