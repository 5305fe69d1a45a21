package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

var (
	// ErrAmbiguousCodeState is returned when an event supplies both raw
	// CodeState content and a CodeStateID.
	ErrAmbiguousCodeState = errors.New("event has both CodeState and CodeStateID")

	// ErrInvalidCodeState is returned when the CodeState pseudo column is
	// neither text nor null.
	ErrInvalidCodeState = errors.New("CodeState must be text or null")

	// ErrUnknownStateField is returned by UpdateState for columns the
	// writer was not created with.
	ErrUnknownStateField = errors.New("unknown event state field")
)

// Batcher is the part of BatchWriter an EventWriter delegates to.
type Batcher interface {
	AddEventsWithCodeStates(ctx context.Context, events []ir.Event, codestates map[string]ir.Entry) (*LogResult, error)
}

// EventOption configures an EventWriter.
type EventOption func(*EventWriter)

// WithIDGenerator sets the generator for EventIDs and CodeState temp ids.
// Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EventOption {
	return func(w *EventWriter) {
		w.ids = g
	}
}

// EventWriter writes single events, filling columns from per-session state.
type EventWriter struct {
	batch Batcher
	state ir.Event
	ids   IDGenerator
}

// NewEventWriter returns an EventWriter whose events carry the columns of
// state unless a write overrides them.
func NewEventWriter(batch Batcher, state ir.Event, opts ...EventOption) *EventWriter {
	w := &EventWriter{
		batch: batch,
		state: state.Clone(),
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns a copy of the current state.
func (w *EventWriter) State() ir.Event {
	return w.state.Clone()
}

// UpdateState changes state values. Every key must already be part of the
// state; otherwise nothing changes.
func (w *EventWriter) UpdateState(update ir.Event) error {
	for _, k := range update.SortedKeys() {
		if _, ok := w.state[k]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStateField, k)
		}
	}
	for k, v := range update {
		w.state[k] = v
	}
	return nil
}

// WriteEvent writes one event of eventType.
//
// columns may carry the CodeState pseudo column: text becomes a
// single-section CodeState, null a blank one. It is stored under a fresh
// temp id that the event references through CodeStateID.
func (w *EventWriter) WriteEvent(ctx context.Context, eventType string, columns ir.Event) (*LogResult, error) {
	event := columns.Clone()

	var overrides []string
	for _, k := range w.state.SortedKeys() {
		if _, ok := event[k]; ok {
			overrides = append(overrides, "column map overrides event state for field: "+k)
			continue
		}
		event[k] = w.state[k]
	}

	event[ir.ColEventType] = ir.String(eventType)
	if !event.Has(ir.ColEventID) {
		event[ir.ColEventID] = ir.String(w.ids.Generate())
	}

	codestates := map[string]ir.Entry{}
	if raw, ok := event[ir.ColCodeState]; ok {
		if event.Has(ir.ColCodeStateID) {
			return nil, ErrAmbiguousCodeState
		}

		var entry ir.Entry
		switch v := raw.(type) {
		case ir.String:
			entry = ir.EntryFromCode(string(v))
		case ir.Null, nil:
			entry = ir.BlankEntry()
		default:
			return nil, fmt.Errorf("%w, got %s", ErrInvalidCodeState, raw.Kind())
		}

		tmp := w.ids.Generate()
		delete(event, ir.ColCodeState)
		event[ir.ColCodeStateID] = ir.String(tmp)
		codestates[tmp] = entry
	}

	res, err := w.batch.AddEventsWithCodeStates(ctx, []ir.Event{event}, codestates)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, overrides...)
	return res, nil
}
