package schema

import (
	"fmt"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// ErrorKind classifies a validation finding.
type ErrorKind string

const (
	MissingRequiredColumn   ErrorKind = "MissingRequiredColumn"
	UnexpectedColumn        ErrorKind = "UnexpectedColumn"
	InvalidEventType        ErrorKind = "InvalidEventType"
	InvalidValueForDatatype ErrorKind = "InvalidValueForDatatype"
)

// ValidationError is one finding about one event.
type ValidationError struct {
	Column string    `json:"column"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	switch e.Kind {
	case MissingRequiredColumn:
		return fmt.Sprintf("missing required column %s", e.Column)
	case UnexpectedColumn:
		return fmt.Sprintf("unexpected column %s", e.Column)
	case InvalidEventType:
		return fmt.Sprintf("invalid event type %s", e.Detail)
	default:
		return fmt.Sprintf("invalid value for column %s: %s", e.Column, e.Detail)
	}
}

// Validator checks MainTable rows against a Schema.
type Validator struct {
	schema *Schema
}

// NewValidator returns a Validator for s.
func NewValidator(s *Schema) *Validator {
	return &Validator{schema: s}
}

// Validate returns every finding for e; it does not stop at the first.
// Null values count as absent. Findings are ordered: datatype problems, then
// missing columns, then unexpected columns, each in a deterministic order.
func (v *Validator) Validate(e ir.Event) []ValidationError {
	var errs []ValidationError

	provided := e.Provided()
	for _, name := range provided {
		col, ok := v.schema.Column(name)
		if !ok {
			continue
		}
		if err := col.Validate(e[name]); err != nil {
			errs = append(errs, ValidationError{Column: name, Kind: InvalidValueForDatatype, Detail: err.Error()})
		}
	}

	var et *EventType
	if name, ok := e.StringValue(ir.ColEventType); ok {
		if et, ok = v.schema.EventType(name); !ok {
			errs = append(errs, ValidationError{Column: ir.ColEventType, Kind: InvalidEventType, Detail: name})
		}
	}

	for _, col := range v.schema.columns {
		if col.Requirement == Required && !e.Has(col.Name) {
			errs = append(errs, ValidationError{Column: col.Name, Kind: MissingRequiredColumn})
		}
	}
	if et != nil {
		for _, name := range et.RequiredColumns {
			if !e.Has(name) {
				errs = append(errs, ValidationError{Column: name, Kind: MissingRequiredColumn})
			}
		}
	}

	for _, name := range provided {
		col, ok := v.schema.Column(name)
		switch {
		case !ok:
			errs = append(errs, ValidationError{Column: name, Kind: UnexpectedColumn})
		case col.Requirement == EventSpecific && et != nil && !et.Allows(name):
			errs = append(errs, ValidationError{Column: name, Kind: UnexpectedColumn, Detail: et.Name})
		}
	}
	return errs
}

// Coerce returns a copy of e with every known column coerced to its
// datatype's canonical variant.
func (v *Validator) Coerce(e ir.Event) ir.Event {
	out := e.Clone()
	for name, val := range out {
		if col, ok := v.schema.Column(name); ok {
			out[name] = col.Datatype.Coerce(val)
		}
	}
	return out
}
