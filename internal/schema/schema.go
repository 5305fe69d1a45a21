// Package schema holds the ProgSnap2 table schema: MainTable columns, event
// types, enumerations and Metadata properties.
//
// Schemas are CUE documents. The default ProgSnap2 schema is embedded and
// returned by Default; custom schemas are loaded with LoadFile and checked
// against the same structural definitions. A loaded Schema is immutable and
// is passed by reference to every component that needs it.
package schema

import (
	"fmt"
	"slices"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// Requirement says when a MainTable column must be present.
type Requirement string

const (
	Required      Requirement = "Required"
	Optional      Requirement = "Optional"
	EventSpecific Requirement = "EventSpecific"
)

// Column describes one MainTable column.
type Column struct {
	Name        string      `json:"name"`
	Datatype    Datatype    `json:"datatype"`
	Requirement Requirement `json:"requirement"`
	Description string      `json:"description"`
	EnumType    string      `json:"enum_type"`

	enumValues []string
}

// Validate checks v against the column datatype and, for Enum columns,
// membership in the column's enumeration.
func (c *Column) Validate(v ir.Value) error {
	if err := c.Datatype.Validate(v); err != nil {
		return err
	}
	if c.Datatype != DatatypeEnum || ir.IsNull(v) {
		return nil
	}
	s := string(v.(ir.String))
	if !slices.Contains(c.enumValues, s) {
		return fmt.Errorf("%q is not a %s value", s, c.EnumType)
	}
	return nil
}

// EventType lists the EventSpecific columns an event type requires or allows.
type EventType struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	RequiredColumns []string `json:"required_columns"`
	OptionalColumns []string `json:"optional_columns"`
}

// Allows reports whether column is required or optional for this event type.
func (e *EventType) Allows(column string) bool {
	return slices.Contains(e.RequiredColumns, column) || slices.Contains(e.OptionalColumns, column)
}

// EnumValue is one member of an enumeration.
type EnumValue struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EnumType is a named enumeration.
type EnumType struct {
	Name   string      `json:"name"`
	Values []EnumValue `json:"values"`
}

// Names returns the member names in declaration order.
func (e *EnumType) Names() []string {
	names := make([]string, len(e.Values))
	for i, v := range e.Values {
		names[i] = v.Name
	}
	return names
}

// Property is a Metadata table property with its default value.
type Property struct {
	Name        string   `json:"name"`
	Datatype    Datatype `json:"datatype"`
	Description string   `json:"description"`
	Default     string   `json:"default"`
	EnumType    string   `json:"enum_type"`
}

// LinkTable describes a table keyed by MainTable ID columns, such as a
// table of per-subject attributes. Each ID column is stored as an ID and is
// never null.
type LinkTable struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	IDColumns         []string `json:"id_column_names"`
	AdditionalColumns []Column `json:"additional_columns"`
}

// Schema is a loaded, cross-checked ProgSnap2 schema.
type Schema struct {
	version    string
	columns    []Column
	colIndex   map[string]int
	eventTypes map[string]*EventType
	enumTypes  map[string]*EnumType
	metadata   []Property
	linkTables []LinkTable
}

// Version returns the schema version string.
func (s *Schema) Version() string { return s.version }

// Columns returns the MainTable columns in declaration order.
func (s *Schema) Columns() []Column { return slices.Clone(s.columns) }

// Column looks up a MainTable column by name.
func (s *Schema) Column(name string) (*Column, bool) {
	i, ok := s.colIndex[name]
	if !ok {
		return nil, false
	}
	return &s.columns[i], true
}

// EventType looks up an event type by name.
func (s *Schema) EventType(name string) (*EventType, bool) {
	et, ok := s.eventTypes[name]
	return et, ok
}

// EventTypeNames returns every event type name, sorted.
func (s *Schema) EventTypeNames() []string {
	names := make([]string, 0, len(s.eventTypes))
	for name := range s.eventTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// EnumType looks up an enumeration by name.
func (s *Schema) EnumType(name string) (*EnumType, bool) {
	et, ok := s.enumTypes[name]
	return et, ok
}

// Metadata returns the Metadata properties in declaration order.
func (s *Schema) Metadata() []Property { return slices.Clone(s.metadata) }

// LinkTables returns the link tables in declaration order.
func (s *Schema) LinkTables() []LinkTable { return slices.Clone(s.linkTables) }
