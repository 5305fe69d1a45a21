package codestate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// Directory stores each CodeState as a folder of files at
// root/<grouping>/<id>/.
//
// A folder that exists is treated as fully written. A crash in the middle of
// a write leaves a partial folder that later writes of the same id skip.
type Directory struct {
	root             string
	defaultProjectID string
}

var _ Store = (*Directory)(nil)

// NewDirectory returns a Directory store rooted at root.
func NewDirectory(root, defaultProjectID string) *Directory {
	return &Directory{root: root, defaultProjectID: defaultProjectID}
}

// Path returns the folder of CodeState id under grouping.
func (d *Directory) Path(grouping, id string) string {
	return filepath.Join(d.root, grouping, id)
}

// AddAndGetID stores e under its content hash.
func (d *Directory) AddAndGetID(ctx context.Context, e ir.Entry) (string, error) {
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
	if err := d.AddWithID(ctx, e, id); err != nil {
		return "", err
	}
	return id, nil
}

// AddWithID writes e under id unless the folder already exists.
func (d *Directory) AddWithID(ctx context.Context, e ir.Entry, id string) error {
	if e.Blank {
		return nil
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSectionName)
	}
	if err := checkPathElement("id", id); err != nil {
		return err
	}
	if err := checkPathElement("grouping", e.GroupingID()); err != nil {
		return err
	}
	if err := checkSectionPaths(e); err != nil {
		return err
	}

	dir := d.Path(e.GroupingID(), id)
	if _, err := os.Stat(dir); err == nil {
		slog.Debug("codestate directory exists, skipping", "path", dir)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat codestate %s: %w", id, err)
	}

	if err := writeSections(dir, e.Sections); err != nil {
		return fmt.Errorf("write codestate %s: %w", id, err)
	}
	slog.Debug("codestate directory written", "path", dir, "sections", len(e.Sections))
	return nil
}

// RequiresProjectID is false: folders are keyed by content, not project.
func (d *Directory) RequiresProjectID() bool { return false }

func (d *Directory) DefaultProjectID() string { return d.defaultProjectID }

// writeSections creates dir and writes one file per section, creating
// subfolders for section names that contain slashes.
func writeSections(dir string, sections []ir.Section) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range sections {
		path := filepath.Join(dir, filepath.FromSlash(sectionFile(s)))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(s.Code), 0o644); err != nil {
			return err
		}
	}
	return nil
}
