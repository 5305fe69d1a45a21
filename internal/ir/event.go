package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Core MainTable column names the writer depends on.
const (
	ColEventType     = "EventType"
	ColEventID       = "EventID"
	ColSubjectID     = "SubjectID"
	ColToolInstances = "ToolInstances"
	ColCodeStateID   = "CodeStateID"
	ColProjectID     = "ProjectID"
	ColSessionID     = "SessionID"
)

// ColCodeState is the pseudo column carrying raw code. It never reaches the
// MainTable: the event writer turns it into a CodeState and a CodeStateID.
const ColCodeState = "CodeState"

// Event is one MainTable row: column name → cell value.
// Use SortedKeys() for deterministic iteration.
type Event map[string]Value

// SortedKeys returns column names in byte order.
func (e Event) SortedKeys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a shallow copy. Values are immutable, so this is a full copy.
func (e Event) Clone() Event {
	if e == nil {
		return Event{}
	}
	out := make(Event, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Has reports whether column is present with a non-null value.
func (e Event) Has(column string) bool {
	v, ok := e[column]
	return ok && !IsNull(v)
}

// StringValue returns the column's value when it holds a String.
func (e Event) StringValue(column string) (string, bool) {
	v, ok := e[column]
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// Provided returns the names of non-null columns in sorted order.
func (e Event) Provided() []string {
	var cols []string
	for _, k := range e.SortedKeys() {
		if !IsNull(e[k]) {
			cols = append(cols, k)
		}
	}
	return cols
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(e[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = make(Event, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("event column %q: %w", k, err)
		}
		(*e)[k] = val
	}
	return nil
}
