package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"single unnamed", EntryFromCode("x"), false},
		{"distinct names", Entry{Sections: []Section{{Name: "a"}, {Name: "b"}}}, false},
		{"named and unnamed", Entry{Sections: []Section{{Name: "a"}, {}}}, false},
		{"duplicate names", Entry{Sections: []Section{{Name: "a", Code: "1"}, {Name: "a", Code: "2"}}}, true},
		{"two unnamed", Entry{Sections: []Section{{Code: "1"}, {Code: "2"}}}, true},
		{"empty", Entry{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDuplicateSection)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEntryWithContextCopies(t *testing.T) {
	e := EntryFromCode("x")
	placed := e.WithContext(Context{GroupingID: "s1", ProjectID: "p1"})

	assert.Nil(t, e.Context, "original entry must stay unplaced")
	require.NotNil(t, placed.Context)
	assert.Equal(t, "s1", placed.GroupingID())
	assert.Equal(t, "p1", placed.ProjectID())

	placed.Sections[0].Code = "changed"
	assert.Equal(t, "x", e.Sections[0].Code, "sections must not be shared")
}

func TestEntryAccessorsWithoutContext(t *testing.T) {
	e := EntryFromCode("x")

	assert.Equal(t, "", e.GroupingID())
	assert.Equal(t, "", e.ProjectID())
	assert.False(t, e.HasNamedSections())
	assert.True(t, Entry{Sections: []Section{{Name: "a.py"}}}.HasNamedSections())
}
