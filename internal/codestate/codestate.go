// Package codestate persists CodeStates and assigns their durable ids.
//
// Four interchangeable backends implement Store:
//   - Directory: one folder per CodeState under root/<grouping>/<hash>/
//   - SQLTable: rows in the CodeStates table, one per section
//   - CSVTable: the same rows appended to CodeStates.csv
//   - Git: one repository per root/<grouping>/<ProjectID>/, id = HEAD commit
//
// Directory and the table backends address CodeStates by content hash
// (ir.ContentID), so writing equal content twice stores it once. Git ids are
// commit hashes and depend on the repository's history.
//
// No backend locks across processes. Two writers targeting the same Directory
// or Git path race at the filesystem level; SQLTable relies on SQLite's
// single-writer transactions.
package codestate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// DefaultSectionFile names the file holding the unnamed section.
const DefaultSectionFile = "default.txt"

var (
	// ErrUnsupportedOperation is returned by AddWithID on backends whose
	// ids cannot be chosen by the caller.
	ErrUnsupportedOperation = errors.New("unsupported codestate operation")

	// ErrMissingProjectID is returned by the Git backend for entries
	// without a ProjectID.
	ErrMissingProjectID = errors.New("codestate has no project id")

	// ErrSectionsUnsupported is returned by the CSV backend when sections
	// are disabled and an entry has a named or second section.
	ErrSectionsUnsupported = errors.New("codestate sections are disabled")

	// ErrInvalidSectionName is returned when a section name, grouping or
	// project would escape the CodeState's directory.
	ErrInvalidSectionName = errors.New("invalid codestate path element")
)

// Store persists CodeStates.
type Store interface {
	// AddAndGetID persists e if it is not already present and returns its
	// durable id. Blank entries return "" without writing.
	AddAndGetID(ctx context.Context, e ir.Entry) (string, error)

	// AddWithID persists e under a caller-chosen id. Backends that cannot
	// honour caller ids return ErrUnsupportedOperation.
	AddWithID(ctx context.Context, e ir.Entry, id string) error

	// RequiresProjectID reports whether entries must carry a ProjectID.
	RequiresProjectID() bool

	// DefaultProjectID is the ProjectID substituted when none is known.
	DefaultProjectID() string
}

// sectionFile returns the file name a section is written to.
func sectionFile(s ir.Section) string {
	if s.Name == "" {
		return DefaultSectionFile
	}
	return s.Name
}

// checkPathElement accepts "" or a single local path element.
func checkPathElement(kind, v string) error {
	if v == "" {
		return nil
	}
	if !filepath.IsLocal(v) || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("%w: %s %q", ErrInvalidSectionName, kind, v)
	}
	return nil
}

// checkSectionPaths ensures every section file stays under its directory.
// Section names may contain forward slashes for subfolders.
func checkSectionPaths(e ir.Entry) error {
	for _, s := range e.Sections {
		name := sectionFile(s)
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("%w: section %q", ErrInvalidSectionName, s.Name)
		}
		if strings.EqualFold(strings.SplitN(filepath.ToSlash(name), "/", 2)[0], ".git") {
			return fmt.Errorf("%w: section %q", ErrInvalidSectionName, s.Name)
		}
	}
	return nil
}
