package codestate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// CSVTable stores CodeStates as rows appended to a CSV file with the same
// columns as the CodeStates table.
//
// The file is replayed once at construction to learn which ids exist, so
// startup cost grows with the file. Ids are kept in memory afterwards.
type CSVTable struct {
	path             string
	sections         bool
	defaultProjectID string

	mu  sync.Mutex
	ids map[string]struct{}
}

var _ Store = (*CSVTable)(nil)

// NewCSVTable opens the CSV file at path, replaying any existing rows. When
// sections is false the file has no CodeStateSection column and only
// single, unnamed-section CodeStates can be stored.
func NewCSVTable(path string, sections bool, defaultProjectID string) (*CSVTable, error) {
	t := &CSVTable{
		path:             path,
		sections:         sections,
		defaultProjectID: defaultProjectID,
		ids:              make(map[string]struct{}),
	}
	if err := t.replay(); err != nil {
		return nil, fmt.Errorf("open codestate csv: %w", err)
	}
	return t, nil
}

// Header returns the column names written to the file.
func (t *CSVTable) Header() []string {
	if t.sections {
		return []string{"CodeStateID", "Code", "CodeStateSection"}
	}
	return []string{"CodeStateID", "Code"}
}

func (t *CSVTable) replay() error {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, t.Header()) {
		return fmt.Errorf("header %v does not match %v", header, t.Header())
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		t.ids[rec[0]] = struct{}{}
	}
	slog.Debug("codestate csv replayed", "path", t.path, "ids", len(t.ids))
	return nil
}

// AddAndGetID stores e under its content hash.
func (t *CSVTable) AddAndGetID(ctx context.Context, e ir.Entry) (string, error) {
	if e.Blank {
		return "", nil
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	id, err := ir.ContentID(e)
	if err != nil {
		return "", err
	}
	if err := t.AddWithID(ctx, e, id); err != nil {
		return "", err
	}
	return id, nil
}

// AddWithID appends one row per section unless id was already written.
func (t *CSVTable) AddWithID(ctx context.Context, e ir.Entry, id string) error {
	if e.Blank {
		return nil
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if !t.sections && (len(e.Sections) > 1 || e.HasNamedSections()) {
		return fmt.Errorf("%w: %d sections", ErrSectionsUnsupported, len(e.Sections))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ids[id]; ok {
		return nil
	}
	if err := t.appendRows(id, e.Sections); err != nil {
		return fmt.Errorf("append codestate %s: %w", id, err)
	}
	t.ids[id] = struct{}{}
	return nil
}

func (t *CSVTable) appendRows(id string, sections []ir.Section) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(t.Header()); err != nil {
			return err
		}
	}
	for _, s := range sections {
		row := []string{id, s.Code}
		if t.sections {
			row = append(row, s.Name)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func (t *CSVTable) RequiresProjectID() bool { return false }

func (t *CSVTable) DefaultProjectID() string { return t.defaultProjectID }
