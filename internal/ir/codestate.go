package ir

import (
	"errors"
	"fmt"
)

// ErrDuplicateSection is returned when two sections of one Entry share a name.
var ErrDuplicateSection = errors.New("duplicate codestate section")

// Section is one file's content at a point in time.
type Section struct {
	Code string `json:"Code"`
	// Name is the logical file name or path. Empty means the one unnamed
	// section.
	Name string `json:"CodeStateSection,omitempty"`
}

// Context is the placement filesystem and VCS backed stores need.
// The Table stores ignore it.
type Context struct {
	GroupingID string `json:"grouping_id,omitempty"` // typically the SubjectID
	ProjectID  string `json:"ProjectID,omitempty"`
}

// Entry is the state of a whole project (all files) at one instant.
type Entry struct {
	Sections []Section `json:"sections"`

	// Blank marks "no code recorded". A blank entry maps to the identifier ""
	// and is never hashed or stored.
	Blank bool `json:"is_blank,omitempty"`

	// Context is explicit placement. Nil means the batch writer infers it from
	// the events referencing this entry.
	Context *Context `json:"context,omitempty"`
}

// EntryFromCode builds a single, unnamed-section Entry.
func EntryFromCode(code string) Entry {
	return Entry{Sections: []Section{{Code: code}}}
}

// BlankEntry returns an Entry recording that no code exists.
func BlankEntry() Entry {
	return Entry{Blank: true}
}

// WithContext returns a copy of e carrying the given placement.
func (e Entry) WithContext(c Context) Entry {
	out := e
	out.Sections = append([]Section(nil), e.Sections...)
	out.Context = &c
	return out
}

// GroupingID returns the grouping placement, or "" without context.
func (e Entry) GroupingID() string {
	if e.Context == nil {
		return ""
	}
	return e.Context.GroupingID
}

// ProjectID returns the project placement, or "" without context.
func (e Entry) ProjectID() string {
	if e.Context == nil {
		return ""
	}
	return e.Context.ProjectID
}

// HasNamedSections reports whether any section carries a name.
func (e Entry) HasNamedSections() bool {
	for _, s := range e.Sections {
		if s.Name != "" {
			return true
		}
	}
	return false
}

// Validate checks the section-name uniqueness invariant.
func (e Entry) Validate() error {
	seen := make(map[string]bool, len(e.Sections))
	for _, s := range e.Sections {
		if seen[s.Name] {
			if s.Name == "" {
				return fmt.Errorf("%w: more than one unnamed section", ErrDuplicateSection)
			}
			return fmt.Errorf("%w: %q", ErrDuplicateSection, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
