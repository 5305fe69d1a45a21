package schema

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed definitions.cue
var definitionsCUE []byte

//go:embed progsnap2.cue
var defaultCUE []byte

// document mirrors the #Schema definition for decoding.
type document struct {
	Version   string     `json:"version"`
	Metadata  []Property `json:"metadata"`
	EnumTypes []EnumType `json:"enum_types"`
	MainTable struct {
		Description string      `json:"description"`
		Columns     []Column    `json:"columns"`
		EventTypes  []EventType `json:"event_types"`
	} `json:"main_table"`
	LinkTables []LinkTable `json:"link_tables"`
}

// LoadError reports an invalid schema document.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
	defaultErr    error
)

// Default returns the embedded ProgSnap2 v1.0 schema. It is compiled once.
func Default() (*Schema, error) {
	defaultOnce.Do(func() {
		defaultSchema, defaultErr = Load("progsnap2.cue", defaultCUE)
	})
	return defaultSchema, defaultErr
}

// LoadFile reads and loads a CUE schema document from disk.
func LoadFile(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Load(path, src)
}

// Load compiles src, unifies it with the #Schema definition and decodes it.
// Cross references (event type columns, enum types) are checked after
// decoding.
func Load(filename string, src []byte) (*Schema, error) {
	ctx := cuecontext.New()

	defs := ctx.CompileBytes(definitionsCUE, cue.Filename("definitions.cue"))
	if err := defs.Err(); err != nil {
		return nil, fmt.Errorf("compile schema definitions: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = defs.LookupPath(cue.ParsePath("#Schema")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var doc document
	if err := v.Decode(&doc); err != nil {
		return nil, formatCUEError(err)
	}
	return build(&doc)
}

func build(doc *document) (*Schema, error) {
	s := &Schema{
		version:    doc.Version,
		columns:    doc.MainTable.Columns,
		colIndex:   make(map[string]int, len(doc.MainTable.Columns)),
		eventTypes: make(map[string]*EventType, len(doc.MainTable.EventTypes)),
		enumTypes:  make(map[string]*EnumType, len(doc.EnumTypes)),
		metadata:   doc.Metadata,
		linkTables: doc.LinkTables,
	}

	for i := range doc.EnumTypes {
		et := &doc.EnumTypes[i]
		if _, dup := s.enumTypes[et.Name]; dup {
			return nil, &LoadError{Field: "enum_types", Message: fmt.Sprintf("duplicate enum type %q", et.Name)}
		}
		s.enumTypes[et.Name] = et
	}

	for i := range s.columns {
		c := &s.columns[i]
		if _, dup := s.colIndex[c.Name]; dup {
			return nil, &LoadError{Field: "main_table.columns", Message: fmt.Sprintf("duplicate column %q", c.Name)}
		}
		s.colIndex[c.Name] = i
		if c.Datatype == DatatypeEnum {
			et, ok := s.enumTypes[c.EnumType]
			if !ok {
				return nil, &LoadError{
					Field:   "main_table.columns." + c.Name,
					Message: fmt.Sprintf("unknown enum type %q", c.EnumType),
				}
			}
			c.enumValues = et.Names()
		}
	}

	for i := range doc.MainTable.EventTypes {
		et := &doc.MainTable.EventTypes[i]
		if _, dup := s.eventTypes[et.Name]; dup {
			return nil, &LoadError{Field: "main_table.event_types", Message: fmt.Sprintf("duplicate event type %q", et.Name)}
		}
		for _, col := range append(append([]string(nil), et.RequiredColumns...), et.OptionalColumns...) {
			if _, ok := s.Column(col); !ok {
				return nil, &LoadError{
					Field:   "main_table.event_types." + et.Name,
					Message: fmt.Sprintf("unknown column %q", col),
				}
			}
		}
		s.eventTypes[et.Name] = et
	}

	if err := s.checkLinkTables(); err != nil {
		return nil, err
	}

	for _, p := range s.metadata {
		if p.Datatype == DatatypeEnum {
			if _, ok := s.enumTypes[p.EnumType]; !ok {
				return nil, &LoadError{
					Field:   "metadata." + p.Name,
					Message: fmt.Sprintf("unknown enum type %q", p.EnumType),
				}
			}
		}
	}
	return s, nil
}

// reservedTables are created by the store and cannot be link tables.
var reservedTables = []string{"MainTable", "Metadata", "CodeStates"}

func (s *Schema) checkLinkTables() error {
	seen := make(map[string]bool, len(s.linkTables))
	for i := range s.linkTables {
		lt := &s.linkTables[i]
		field := "link_tables." + lt.Name
		if slices.Contains(reservedTables, lt.Name) {
			return &LoadError{Field: "link_tables", Message: fmt.Sprintf("table name %q is reserved", lt.Name)}
		}
		if seen[lt.Name] {
			return &LoadError{Field: "link_tables", Message: fmt.Sprintf("duplicate table %q", lt.Name)}
		}
		seen[lt.Name] = true

		names := make(map[string]bool)
		for _, id := range lt.IDColumns {
			if _, ok := s.Column(id); !ok {
				return &LoadError{Field: field, Message: fmt.Sprintf("ID column %q is not a MainTable column", id)}
			}
			if names[id] {
				return &LoadError{Field: field, Message: fmt.Sprintf("duplicate column %q", id)}
			}
			names[id] = true
		}
		for j := range lt.AdditionalColumns {
			c := &lt.AdditionalColumns[j]
			if names[c.Name] {
				return &LoadError{Field: field, Message: fmt.Sprintf("duplicate column %q", c.Name)}
			}
			names[c.Name] = true
			if c.Datatype == DatatypeEnum {
				et, ok := s.enumTypes[c.EnumType]
				if !ok {
					return &LoadError{Field: field + "." + c.Name, Message: fmt.Sprintf("unknown enum type %q", c.EnumType)}
				}
				c.enumValues = et.Names()
			}
		}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
