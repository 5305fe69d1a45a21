package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindReal
	KindBool
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a sealed interface representing one MainTable cell.
// Only Null, String, Int, Real, Bool and Timestamp implement it.
type Value interface {
	Kind() Kind
	value() // Sealed - only these types implement it
}

// Null represents an absent cell. Columns holding Null count as not provided.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// String represents a text cell.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Int represents an integer cell.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Real represents a floating point cell.
type Real float64

func (Real) Kind() Kind { return KindReal }
func (Real) value()     {}

// Bool represents a boolean cell.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Timestamp represents a point in time. ProgSnap2 timestamps always carry
// a zone offset.
type Timestamp time.Time

func (Timestamp) Kind() Kind { return KindTimestamp }
func (Timestamp) value()     {}

// Time returns the wrapped time.Time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// DriverValue converts v into a value accepted by database/sql drivers.
func DriverValue(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Real:
		return float64(val)
	case Bool:
		return bool(val)
	case Timestamp:
		return time.Time(val)
	default:
		return nil
	}
}

// FromDriver converts a value scanned from database/sql back into a Value.
func FromDriver(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case string:
		return String(val), nil
	case []byte:
		return String(val), nil
	case int64:
		return Int(val), nil
	case int:
		return Int(val), nil
	case float64:
		return Real(val), nil
	case bool:
		return Bool(val), nil
	case time.Time:
		return Timestamp(val), nil
	default:
		return nil, fmt.Errorf("unsupported driver value type: %T", v)
	}
}

// Format renders v as text, the way it appears in CLI output and error
// messages. Timestamps use RFC 3339 with nanoseconds.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Real:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Timestamp:
		return time.Time(val).Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MarshalValue marshals a Value to JSON bytes.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Real:
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Timestamp:
		return json.Marshal(time.Time(val).Format(time.RFC3339Nano))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes a JSON scalar into a Value.
// Integral numbers become Int, other numbers Real. Arrays and objects are
// rejected: MainTable cells are scalars.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON value: %s", string(data))
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[', '{':
		return nil, fmt.Errorf("nested JSON is not a valid cell value: %s", string(data))

	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, err
		}
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", n, err)
		}
		return Real(f), nil
	}
}

// ParseValue interprets a command-line string. It never fails: anything that
// is not a JSON scalar is taken as a String.
func ParseValue(s string) Value {
	if s == "" {
		return String("")
	}
	v, err := UnmarshalValue([]byte(s))
	if err != nil {
		return String(s)
	}
	return v
}
