package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// TablesExist reports whether every named table exists.
func (s *Store) TablesExist(ctx context.Context, names ...string) (bool, error) {
	return TablesExist(ctx, s.db, names...)
}

// TablesExist is Store.TablesExist over a caller-held connection.
func TablesExist(ctx context.Context, q Querier, names ...string) (bool, error) {
	for _, name := range names {
		var found string
		err := q.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			name,
		).Scan(&found)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("check table %s: %w", name, err)
		}
	}
	return true, nil
}

// CountEvents returns the number of MainTable rows.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(MainTable)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// ReadEvents returns every MainTable row in insertion order.
// Returns an empty slice (not nil) when the table is empty.
func (s *Store) ReadEvents(ctx context.Context) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(MainTable)+" ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query events: columns: %w", err)
	}

	events := []ir.Event{}
	for rows.Next() {
		e, err := scanEvent(rows, cols)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadMetadata returns the Metadata table as a map.
func (s *Store) ReadMetadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT Property, Value FROM Metadata")
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var property string
		var value sql.NullString
		if err := rows.Scan(&property, &value); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		out[property] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata: %w", err)
	}
	return out, nil
}

// ReadCodeState returns the CodeState stored under id, sections ordered by
// name with the unnamed section first. ok is false when no row exists.
func (s *Store) ReadCodeState(ctx context.Context, id string) (entry ir.Entry, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CodeStateSection, Code FROM CodeStates
		WHERE CodeStateID = ?
		ORDER BY CodeStateSection COLLATE BINARY ASC
	`, id)
	if err != nil {
		return ir.Entry{}, false, fmt.Errorf("query codestate %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name sql.NullString
		var code string
		if err := rows.Scan(&name, &code); err != nil {
			return ir.Entry{}, false, fmt.Errorf("scan codestate %s: %w", id, err)
		}
		entry.Sections = append(entry.Sections, ir.Section{Name: name.String, Code: code})
	}
	if err := rows.Err(); err != nil {
		return ir.Entry{}, false, fmt.Errorf("iterate codestate %s: %w", id, err)
	}
	return entry, len(entry.Sections) > 0, nil
}

// CountCodeStateRows returns the number of CodeStates rows, optionally
// limited to the given ids.
func (s *Store) CountCodeStateRows(ctx context.Context, ids ...string) (int, error) {
	query := "SELECT COUNT(*) FROM CodeStates"
	args := make([]any, len(ids))
	if len(ids) > 0 {
		query += " WHERE CodeStateID IN (" + placeholders(len(ids)) + ")"
		for i, id := range ids {
			args[i] = id
		}
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count codestates: %w", err)
	}
	return n, nil
}
