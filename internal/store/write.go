package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/schema"
)

// MainTableDDL returns the CREATE TABLE statement for the schema's MainTable.
// Required columns are NOT NULL; every other column is nullable.
func MainTableDDL(sch *schema.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(MainTable))
	for i, col := range sch.Columns() {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %s %s", quoteIdent(col.Name), col.Datatype.SQLType())
		if col.Requirement == schema.Required {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// LinkTableDDL returns the CREATE TABLE statement for a link table. ID
// columns are NOT NULL; additional columns are NOT NULL only when Required.
func LinkTableDDL(lt schema.LinkTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(lt.Name))
	defs := linkColumnDefs(lt)
	for i, def := range defs {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %s %s", quoteIdent(def.name), def.sqlType)
		if def.notNull {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

type columnDef struct {
	name    string
	sqlType string
	notNull bool
}

func linkColumnDefs(lt schema.LinkTable) []columnDef {
	defs := make([]columnDef, 0, len(lt.IDColumns)+len(lt.AdditionalColumns))
	for _, id := range lt.IDColumns {
		defs = append(defs, columnDef{name: id, sqlType: schema.DatatypeID.SQLType(), notNull: true})
	}
	for _, c := range lt.AdditionalColumns {
		defs = append(defs, columnDef{name: c.Name, sqlType: c.Datatype.SQLType(), notNull: c.Requirement == schema.Required})
	}
	return defs
}

// createLinkTable creates lt, or adds the columns an existing table lacks.
// Added columns are always nullable; SQLite cannot add a NOT NULL column to
// a table that may hold rows.
func createLinkTable(ctx context.Context, q Querier, lt schema.LinkTable) error {
	have, err := tableColumns(ctx, q, lt.Name)
	if err != nil {
		return err
	}
	if len(have) == 0 {
		if _, err := q.ExecContext(ctx, LinkTableDDL(lt)); err != nil {
			return fmt.Errorf("create link table %s: %w", lt.Name, err)
		}
		return nil
	}
	for _, def := range linkColumnDefs(lt) {
		if have[def.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(lt.Name), quoteIdent(def.name), def.sqlType)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", lt.Name, def.name, err)
		}
	}
	return nil
}

// tableColumns returns the column names of a table, or nothing when the
// table does not exist.
func tableColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	return cols, nil
}

// Initialize creates MainTable, Metadata and the schema's link tables and
// fills Metadata with the schema's property defaults overridden by metadata.
//
// When both tables already exist and force is false, Initialize does
// nothing and returns false. With force, missing tables are created, link
// tables gain the columns they lack and every Metadata value is rewritten;
// existing rows are kept.
func (s *Store) Initialize(ctx context.Context, sch *schema.Schema, metadata map[string]string, force bool) (bool, error) {
	return Initialize(ctx, s.db, sch, metadata, force)
}

// Initialize is Store.Initialize over a caller-held connection.
func Initialize(ctx context.Context, db DB, sch *schema.Schema, metadata map[string]string, force bool) (bool, error) {
	if !force {
		exists, err := TablesExist(ctx, db, MainTable, MetadataTable)
		if err != nil {
			return false, fmt.Errorf("initialize: %w", err)
		}
		if exists {
			return false, nil
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("initialize: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, MainTableDDL(sch)); err != nil {
		return false, fmt.Errorf("initialize: create main table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS Metadata (
			Property VARCHAR(255) NOT NULL PRIMARY KEY,
			Value TEXT
		)
	`); err != nil {
		return false, fmt.Errorf("initialize: create metadata table: %w", err)
	}
	for _, lt := range sch.LinkTables() {
		if err := createLinkTable(ctx, tx, lt); err != nil {
			return false, fmt.Errorf("initialize: %w", err)
		}
	}

	values := make(map[string]string)
	var order []string
	for _, p := range sch.Metadata() {
		values[p.Name] = p.Default
		order = append(order, p.Name)
	}
	for _, k := range sortedKeys(metadata) {
		if _, known := values[k]; !known {
			order = append(order, k)
		}
		values[k] = metadata[k]
	}

	for _, property := range order {
		if err := upsertMetadata(ctx, tx, property, values[property]); err != nil {
			return false, fmt.Errorf("initialize: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("initialize: commit: %w", err)
	}
	return true, nil
}

func upsertMetadata(ctx context.Context, q Querier, property, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO Metadata (Property, Value)
		VALUES (?, ?)
		ON CONFLICT(Property) DO UPDATE SET Value = excluded.Value
	`, property, value)
	if err != nil {
		return fmt.Errorf("write metadata %q: %w", property, err)
	}
	return nil
}

// InsertEvent inserts one MainTable row. Null cells are omitted so column
// defaults and NOT NULL constraints apply. Columns the table does not have
// fail the insert.
func InsertEvent(ctx context.Context, q Querier, e ir.Event) error {
	cols := e.Provided()
	if len(cols) == 0 {
		return fmt.Errorf("insert event: no values")
	}

	quoted := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		args[i] = ir.DriverValue(e[col])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(MainTable),
		strings.Join(quoted, ", "),
		placeholders(len(cols)),
	)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CodeStateExists reports whether any row carries the CodeState id.
func CodeStateExists(ctx context.Context, q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM CodeStates WHERE CodeStateID = ? LIMIT 1
	`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check codestate %s: %w", id, err)
	}
	return true, nil
}

// InsertCodeState writes one row per section. The unnamed section is stored
// with a NULL CodeStateSection.
func InsertCodeState(ctx context.Context, q Querier, id string, sections []ir.Section) error {
	for _, sec := range sections {
		_, err := q.ExecContext(ctx, `
			INSERT INTO CodeStates (CodeStateID, CodeStateSection, Code)
			VALUES (?, ?, ?)
		`,
			id,
			sql.NullString{String: sec.Name, Valid: sec.Name != ""},
			sec.Code,
		)
		if err != nil {
			return fmt.Errorf("insert codestate %s: %w", id, err)
		}
	}
	return nil
}
