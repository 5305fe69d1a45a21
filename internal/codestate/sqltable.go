package codestate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/store"
)

// SQLTable stores CodeStates as rows of the CodeStates table.
type SQLTable struct {
	db               store.TxBeginner
	defaultProjectID string
}

var _ Store = (*SQLTable)(nil)

// NewSQLTable returns a table store writing through db, usually the
// *sql.Conn the batch writer holds for the duration of a write.
func NewSQLTable(db store.TxBeginner, defaultProjectID string) *SQLTable {
	return &SQLTable{db: db, defaultProjectID: defaultProjectID}
}

// AddAndGetID stores e under its content hash.
func (t *SQLTable) AddAndGetID(ctx context.Context, e ir.Entry) (string, error) {
	if e.Blank {
		return "", nil
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	id, err := ir.ContentID(e)
	if err != nil {
		return "", err
	}
	if err := t.AddWithID(ctx, e, id); err != nil {
		return "", err
	}
	return id, nil
}

// AddWithID inserts one row per section in a single transaction unless a
// row with id already exists. Existing content is not compared.
func (t *SQLTable) AddWithID(ctx context.Context, e ir.Entry, id string) error {
	if e.Blank {
		return nil
	}
	if err := e.Validate(); err != nil {
		return err
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add codestate: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	exists, err := store.CodeStateExists(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("add codestate: %w", err)
	}
	if exists {
		slog.Debug("codestate exists, skipping", "id", id)
		return nil
	}

	if err := store.InsertCodeState(ctx, tx, id, e.Sections); err != nil {
		return fmt.Errorf("add codestate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add codestate: commit: %w", err)
	}
	return nil
}

func (t *SQLTable) RequiresProjectID() bool { return false }

func (t *SQLTable) DefaultProjectID() string { return t.defaultProjectID }
