package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

func TestDefaultSchemaLoads(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "1.0", s.Version())

	col, ok := s.Column("CodeStateID")
	require.True(t, ok)
	assert.Equal(t, DatatypeID, col.Datatype)
	assert.Equal(t, Required, col.Requirement)

	et, ok := s.EventType("Session.Start")
	require.True(t, ok)
	assert.Equal(t, []string{"SessionID"}, et.RequiredColumns)
	assert.Empty(t, et.OptionalColumns)

	edit, ok := s.EnumType("EditType")
	require.True(t, ok)
	assert.Contains(t, edit.Names(), "Insert")

	_, ok = s.Column("NoSuchColumn")
	assert.False(t, ok)
}

func TestDefaultSchemaIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestDefaultSchemaMetadata(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	defaults := map[string]string{}
	for _, p := range s.Metadata() {
		defaults[p.Name] = p.Default
	}
	assert.Equal(t, "1.0", defaults["Version"])
	assert.Equal(t, "Table", defaults["CodeStateRepresentation"])
	assert.Equal(t, "false", defaults["IsEventOrderingConsistent"])
}

func TestColumnsAreACopy(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	cols := s.Columns()
	cols[0].Name = "Mutated"
	first := s.Columns()[0]
	assert.Equal(t, "EventType", first.Name)
}

const customSchema = `
version: "custom-1"
metadata: []
enum_types: [{name: "Mood", values: [{name: "Happy"}, {name: "Sad"}]}]
main_table: {
	columns: [
		{name: "EventType", datatype: "String", requirement: "Required"},
		{name: "EventID", datatype: "ID", requirement: "Required"},
		{name: "Mood", datatype: "Enum", enum_type: "Mood", requirement: "EventSpecific"},
	]
	event_types: [{name: "Feel", required_columns: ["Mood"]}]
}
`

func TestLoadFileCustomSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.cue")
	require.NoError(t, os.WriteFile(path, []byte(customSchema), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-1", s.Version())
	assert.Equal(t, []string{"Feel"}, s.EventTypeNames())

	col, ok := s.Column("Mood")
	require.True(t, ok)
	assert.NoError(t, col.Validate(ir.String("Happy")))
	assert.Error(t, col.Validate(ir.String("Bored")))
}

func TestLoadEventTypeMayRequireOptionalColumn(t *testing.T) {
	s, err := Load("test.cue", []byte(`version: "x", metadata: [], enum_types: []
main_table: {columns: [{name: "A", datatype: "ID", requirement: "Optional"}], event_types: [{name: "E", required_columns: ["A"]}]}`))
	require.NoError(t, err)

	et, ok := s.EventType("E")
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, et.RequiredColumns)
	assert.True(t, et.Allows("A"))
}

func TestLoadLinkTables(t *testing.T) {
	s, err := Load("test.cue", []byte(`version: "x", metadata: [], enum_types: [{name: "Level", values: [{name: "Novice"}]}]
main_table: {columns: [{name: "SubjectID", datatype: "ID", requirement: "Required"}], event_types: []}
link_tables: [{name: "LinkSubject", id_column_names: ["SubjectID"], additional_columns: [{name: "Level", datatype: "Enum", enum_type: "Level", requirement: "Optional"}]}]`))
	require.NoError(t, err)

	lts := s.LinkTables()
	require.Len(t, lts, 1)
	assert.Equal(t, "LinkSubject", lts[0].Name)
	assert.Equal(t, []string{"SubjectID"}, lts[0].IDColumns)
	require.Len(t, lts[0].AdditionalColumns, 1)
	assert.NoError(t, lts[0].AdditionalColumns[0].Validate(ir.String("Novice")))
	assert.Error(t, lts[0].AdditionalColumns[0].Validate(ir.String("Expert")))

	def, err := Default()
	require.NoError(t, err)
	assert.Empty(t, def.LinkTables())
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown datatype",
			src: `version: "x", metadata: [], enum_types: []
main_table: {columns: [{name: "A", datatype: "Blob", requirement: "Required"}], event_types: []}`,
		},
		{
			name: "unknown field",
			src: `version: "x", metadata: [], enum_types: [], extra: 1
main_table: {columns: [], event_types: []}`,
		},
		{
			name: "enum column without enum type",
			src: `version: "x", metadata: [], enum_types: []
main_table: {columns: [{name: "A", datatype: "Enum", requirement: "Optional"}], event_types: []}`,
		},
		{
			name: "event type references unknown column",
			src: `version: "x", metadata: [], enum_types: []
main_table: {columns: [], event_types: [{name: "E", required_columns: ["Missing"]}]}`,
			want: `unknown column "Missing"`,
		},
		{
			name: "link table ID column missing from main table",
			src: `version: "x", metadata: [], enum_types: []
main_table: {columns: [], event_types: []}
link_tables: [{name: "LinkSubject", id_column_names: ["SubjectID"]}]`,
			want: `ID column "SubjectID" is not a MainTable column`,
		},
		{
			name: "link table named like a store table",
			src: `version: "x", metadata: [], enum_types: []
main_table: {columns: [{name: "A", datatype: "ID", requirement: "Required"}], event_types: []}
link_tables: [{name: "CodeStates", id_column_names: ["A"]}]`,
			want: `table name "CodeStates" is reserved`,
		},
		{
			name: "link table without ID columns",
			src: `version: "x", metadata: [], enum_types: []
main_table: {columns: [], event_types: []}
link_tables: [{name: "LinkNothing", id_column_names: []}]`,
		},
		{
			name: "enum column references unknown enum",
			src: `version: "x", metadata: [], enum_types: []
main_table: {columns: [{name: "A", datatype: "Enum", enum_type: "Nope", requirement: "Optional"}], event_types: []}`,
			want: `unknown enum type "Nope"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("test.cue", []byte(tt.src))
			require.Error(t, err)
			if tt.want != "" {
				assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestDatatypeValidate(t *testing.T) {
	tests := []struct {
		name    string
		dt      Datatype
		v       ir.Value
		wantErr bool
	}{
		{"null always ok", DatatypeInteger, ir.Null{}, false},
		{"id string", DatatypeID, ir.String("abc"), false},
		{"id wrong kind", DatatypeID, ir.Int(3), true},
		{"id too long", DatatypeID, ir.String(strings.Repeat("a", 256)), true},
		{"id at limit", DatatypeID, ir.String(strings.Repeat("a", 255)), false},
		{"path at limit", DatatypeRelativePath, ir.String(strings.Repeat("p", 2048)), false},
		{"path too long", DatatypeRelativePath, ir.String(strings.Repeat("p", 2049)), true},
		{"string unbounded", DatatypeString, ir.String(strings.Repeat("s", 10000)), false},
		{"integer", DatatypeInteger, ir.Int(1), false},
		{"integer from real", DatatypeInteger, ir.Real(1.5), true},
		{"real accepts int", DatatypeReal, ir.Int(2), false},
		{"real", DatatypeReal, ir.Real(0.5), false},
		{"boolean", DatatypeBoolean, ir.Bool(true), false},
		{"boolean from string", DatatypeBoolean, ir.String("true"), true},
		{"timestamp value", DatatypeTimestamp, ir.Timestamp(time.Now()), false},
		{"timestamp string with zone", DatatypeTimestamp, ir.String("2024-01-02T03:04:05Z"), false},
		{"timestamp string with offset", DatatypeTimestamp, ir.String("2024-01-02T03:04:05.5+02:00"), false},
		{"timestamp string without zone", DatatypeTimestamp, ir.String("2024-01-02T03:04:05"), true},
		{"timestamp garbage", DatatypeTimestamp, ir.String("yesterday"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dt.Validate(tt.v)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatatypeLengthUsesNFC(t *testing.T) {
	// "e" + combining acute composes to one character under NFC.
	decomposed := strings.Repeat("e\u0301", 255)
	assert.NoError(t, DatatypeID.Validate(ir.String(decomposed)))
}

func TestDatatypeCoerce(t *testing.T) {
	ts := DatatypeTimestamp.Coerce(ir.String("2024-01-02T03:04:05Z"))
	require.IsType(t, ir.Timestamp{}, ts)
	assert.Equal(t, 2024, ts.(ir.Timestamp).Time().Year())

	assert.Equal(t, ir.String("not a time"), DatatypeTimestamp.Coerce(ir.String("not a time")))
	assert.Equal(t, ir.Real(3), DatatypeReal.Coerce(ir.Int(3)))
	assert.Equal(t, ir.Int(3), DatatypeInteger.Coerce(ir.Int(3)))
	assert.Equal(t, ir.Null{}, DatatypeReal.Coerce(ir.Null{}))
}

func TestDatatypeParseCell(t *testing.T) {
	assert.Equal(t, ir.Int(42), DatatypeInteger.ParseCell("42"))
	assert.Equal(t, ir.String("4x"), DatatypeInteger.ParseCell("4x"))
	assert.Equal(t, ir.Real(0.25), DatatypeReal.ParseCell("0.25"))
	assert.Equal(t, ir.Bool(true), DatatypeBoolean.ParseCell("true"))
	assert.Equal(t, ir.String("42"), DatatypeID.ParseCell("42"))
	assert.IsType(t, ir.Timestamp{}, DatatypeTimestamp.ParseCell("2024-01-02T03:04:05Z"))
}

func TestDatatypeSQLType(t *testing.T) {
	assert.Equal(t, "VARCHAR(255)", DatatypeID.SQLType())
	assert.Equal(t, "VARCHAR(2048)", DatatypeURL.SQLType())
	assert.Equal(t, "TEXT", DatatypeString.SQLType())
	assert.Equal(t, "INTEGER", DatatypeInteger.SQLType())
	assert.Equal(t, "DATETIME", DatatypeTimestamp.SQLType())
}
