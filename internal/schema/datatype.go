package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// Datatype is a ProgSnap2 column datatype.
type Datatype string

const (
	DatatypeID             Datatype = "ID"
	DatatypeURL            Datatype = "URL"
	DatatypeRelativePath   Datatype = "RelativePath"
	DatatypeSourceLocation Datatype = "SourceLocation"
	DatatypeString         Datatype = "String"
	DatatypeInteger        Datatype = "Integer"
	DatatypeReal           Datatype = "Real"
	DatatypeBoolean        Datatype = "Boolean"
	DatatypeTimestamp      Datatype = "Timestamp"
	DatatypeEnum           Datatype = "Enum"
)

// MaxLength returns the maximum length in characters for string-like
// datatypes, or 0 when unbounded.
func (d Datatype) MaxLength() int {
	switch d {
	case DatatypeID, DatatypeEnum:
		return 255
	case DatatypeURL, DatatypeRelativePath, DatatypeSourceLocation:
		return 2048
	default:
		return 0
	}
}

func (d Datatype) isText() bool {
	switch d {
	case DatatypeID, DatatypeEnum, DatatypeURL, DatatypeRelativePath,
		DatatypeSourceLocation, DatatypeString:
		return true
	}
	return false
}

// SQLType returns the column type used in MainTable DDL.
func (d Datatype) SQLType() string {
	switch d {
	case DatatypeID, DatatypeEnum:
		return "VARCHAR(255)"
	case DatatypeURL, DatatypeRelativePath, DatatypeSourceLocation:
		return "VARCHAR(2048)"
	case DatatypeInteger:
		return "INTEGER"
	case DatatypeReal:
		return "REAL"
	case DatatypeBoolean:
		return "BOOLEAN"
	case DatatypeTimestamp:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// Validate checks v against the datatype. Null is always accepted;
// requiredness is the Validator's concern.
//
// Text length is counted in characters over the NFC form, so a composed and
// a decomposed spelling of the same identifier have the same length.
func (d Datatype) Validate(v ir.Value) error {
	if ir.IsNull(v) {
		return nil
	}
	switch {
	case d.isText():
		s, ok := v.(ir.String)
		if !ok {
			return fmt.Errorf("expected %s text, got %s", d, v.Kind())
		}
		if limit := d.MaxLength(); limit > 0 {
			if n := utf8.RuneCountInString(norm.NFC.String(string(s))); n > limit {
				return fmt.Errorf("%s longer than %d characters (%d)", d, limit, n)
			}
		}
		return nil

	case d == DatatypeInteger:
		if _, ok := v.(ir.Int); !ok {
			return fmt.Errorf("expected integer, got %s", v.Kind())
		}
		return nil

	case d == DatatypeReal:
		switch v.(type) {
		case ir.Real, ir.Int:
			return nil
		}
		return fmt.Errorf("expected real, got %s", v.Kind())

	case d == DatatypeBoolean:
		if _, ok := v.(ir.Bool); !ok {
			return fmt.Errorf("expected boolean, got %s", v.Kind())
		}
		return nil

	case d == DatatypeTimestamp:
		switch val := v.(type) {
		case ir.Timestamp:
			return nil
		case ir.String:
			if _, err := parseTimestamp(string(val)); err != nil {
				return err
			}
			return nil
		}
		return fmt.Errorf("expected timestamp, got %s", v.Kind())

	default:
		return fmt.Errorf("unknown datatype %q", string(d))
	}
}

// Coerce converts v to the datatype's canonical variant when the conversion
// is lossless: RFC 3339 strings become Timestamps and Ints become Reals.
// Anything else is returned unchanged.
func (d Datatype) Coerce(v ir.Value) ir.Value {
	switch d {
	case DatatypeTimestamp:
		if s, ok := v.(ir.String); ok {
			if t, err := parseTimestamp(string(s)); err == nil {
				return ir.Timestamp(t)
			}
		}
	case DatatypeReal:
		if i, ok := v.(ir.Int); ok {
			return ir.Real(float64(i))
		}
	}
	return v
}

// ParseCell interprets raw command-line text as a value of this datatype.
// Text that does not parse is kept as a String so validation can report it.
func (d Datatype) ParseCell(raw string) ir.Value {
	switch d {
	case DatatypeInteger:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return ir.Int(i)
		}
	case DatatypeReal:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return ir.Real(f)
		}
	case DatatypeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return ir.Bool(b)
		}
	case DatatypeTimestamp:
		if t, err := parseTimestamp(raw); err == nil {
			return ir.Timestamp(t)
		}
	}
	return ir.String(raw)
}

// parseTimestamp accepts RFC 3339 only: ProgSnap2 timestamps must carry a
// zone offset.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q must be RFC 3339 with a zone offset", s)
	}
	return t, nil
}
