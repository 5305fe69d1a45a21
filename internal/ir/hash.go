package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
)

// ErrBlankEntry is returned when a blank Entry is hashed. Blank entries
// resolve to "" without hashing; asking for their hash is a programming error.
var ErrBlankEntry = errors.New("blank codestate entry has no content id")

// ContentID computes the content-addressed identifier of an Entry.
//
// Format: SHA256(join(parts, 0x00)) as lowercase hex, where parts holds, for
// each section sorted by name, either Code (unnamed section) or Name+Code.
// Sorting makes the id independent of the order sections were submitted in,
// so identical file sets deduplicate.
func ContentID(e Entry) (string, error) {
	if e.Blank {
		return "", ErrBlankEntry
	}

	sections := slices.Clone(e.Sections)
	slices.SortStableFunc(sections, func(a, b Section) int {
		return strings.Compare(a.Name, b.Name)
	})

	h := sha256.New()
	for i, s := range sections {
		if i > 0 {
			h.Write([]byte{0x00})
		}
		if s.Name != "" {
			h.Write([]byte(s.Name))
		}
		h.Write([]byte(s.Code))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustContentID is like ContentID but panics on error.
// Use only in tests or when the entry is known not to be blank.
func MustContentID(e Entry) string {
	id, err := ContentID(e)
	if err != nil {
		panic(err)
	}
	return id
}
