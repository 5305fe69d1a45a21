package writer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/schema"
	"github.com/progsnap2/progsnap2-go/internal/store"
)

// harness is an initialized dataset in a temp directory.
type harness struct {
	cfg     *config.DataConfig
	store   *store.Store
	factory *Factory
}

func newHarness(t *testing.T, mutate func(*config.DataConfig)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.RootPath = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	st, err := store.Open(cfg.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sch, err := schema.Default()
	require.NoError(t, err)

	h := &harness{
		cfg:     &cfg,
		store:   st,
		factory: NewFactory(st, &cfg, sch, WithLogger(discardLogger())),
	}
	err = h.factory.WithWriter(context.Background(), func(bw *BatchWriter) error {
		_, err := bw.InitializeDatabase(context.Background(), false)
		return err
	})
	require.NoError(t, err)
	return h
}

// write runs one batch and releases the connection so the store can be
// read afterwards.
func (h *harness) write(t *testing.T, events []ir.Event, codestates map[string]ir.Entry) *LogResult {
	t.Helper()
	var res *LogResult
	err := h.factory.WithWriter(context.Background(), func(bw *BatchWriter) error {
		var err error
		res, err = bw.AddEventsWithCodeStates(context.Background(), events, codestates)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func (h *harness) events(t *testing.T) []ir.Event {
	t.Helper()
	events, err := h.store.ReadEvents(context.Background())
	require.NoError(t, err)
	return events
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// submit returns a valid Submit event referencing codestate.
func submit(eventID, subject, codestate string) ir.Event {
	return ir.Event{
		ir.ColEventType:     ir.String("Submit"),
		ir.ColEventID:       ir.String(eventID),
		ir.ColSubjectID:     ir.String(subject),
		ir.ColToolInstances: ir.String("editor 1.0"),
		ir.ColCodeStateID:   ir.String(codestate),
	}
}
