package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/schema"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createInitializedStore creates a store with MainTable and Metadata built
// from the default schema.
func createInitializedStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if _, err := s.Initialize(context.Background(), defaultSchema(t), nil, false); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return s
}

func defaultSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.Default()
	if err != nil {
		t.Fatalf("schema.Default() failed: %v", err)
	}
	return sch
}

// createTestEvent creates an event with every globally required column.
func createTestEvent(eventID, subjectID string) ir.Event {
	return ir.Event{
		ir.ColEventType:     ir.String("Submit"),
		ir.ColEventID:       ir.String(eventID),
		ir.ColSubjectID:     ir.String(subjectID),
		ir.ColToolInstances: ir.String("test-tool 1.0"),
		ir.ColCodeStateID:   ir.String("cs-" + eventID),
	}
}

// sectionsOf builds named sections f0, f1, ... holding the given code.
func sectionsOf(codes ...string) []ir.Section {
	out := make([]ir.Section, len(codes))
	for i, c := range codes {
		out[i] = ir.Section{Name: fmt.Sprintf("f%d", i), Code: c}
	}
	return out
}
