package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentIDKnownValue(t *testing.T) {
	id, err := ContentID(EntryFromCode("print(1)"))
	require.NoError(t, err)

	assert.Equal(t, "d287bb7f9d15abdc5b6e98536263815744b6ef21c8f3c839fc434ca70d8efe99", id)
	assert.Len(t, id, 64, "SHA-256 hex is 64 characters")
}

func TestContentIDNamedSections(t *testing.T) {
	e := Entry{Sections: []Section{
		{Name: "main.py", Code: "print('Hello, World!')"},
		{Name: "greet.py", Code: "def greet(): pass"},
	}}

	assert.Equal(t, "e54907f25446bdfb6bf11028f060ce1911f69bbbe05685b290dcf806b93d0cf1", MustContentID(e))
}

func TestContentIDOrderIndependent(t *testing.T) {
	a := Section{Name: "a.py", Code: "x = 1\n"}
	b := Section{Name: "b.py", Code: "y = 2\n"}
	c := Section{Code: "unnamed"}

	permutations := [][]Section{
		{a, b, c},
		{a, c, b},
		{b, a, c},
		{b, c, a},
		{c, a, b},
		{c, b, a},
	}

	want := MustContentID(Entry{Sections: permutations[0]})
	for i, p := range permutations {
		assert.Equal(t, want, MustContentID(Entry{Sections: p}), "permutation %d", i)
	}
}

func TestContentIDDoesNotReorderInput(t *testing.T) {
	e := Entry{Sections: []Section{{Name: "z.py", Code: "z"}, {Name: "a.py", Code: "a"}}}

	MustContentID(e)

	assert.Equal(t, "z.py", e.Sections[0].Name, "caller's sections must not be sorted in place")
}

func TestContentIDChangesWithContent(t *testing.T) {
	base := Entry{Sections: []Section{{Name: "a.py", Code: "x = 1"}, {Name: "b.py", Code: "y = 2"}}}
	changedCode := Entry{Sections: []Section{{Name: "a.py", Code: "x = 1"}, {Name: "b.py", Code: "y = 3"}}}
	renamed := Entry{Sections: []Section{{Name: "a.py", Code: "x = 1"}, {Name: "c.py", Code: "y = 2"}}}
	extra := Entry{Sections: []Section{{Name: "a.py", Code: "x = 1"}, {Name: "b.py", Code: "y = 2"}, {Name: "c.py", Code: ""}}}

	id := MustContentID(base)
	assert.NotEqual(t, id, MustContentID(changedCode), "different code should produce a different id")
	assert.NotEqual(t, id, MustContentID(renamed), "different section name should produce a different id")
	assert.NotEqual(t, id, MustContentID(extra), "additional section should produce a different id")
}

func TestContentIDIgnoresContext(t *testing.T) {
	plain := EntryFromCode("hello")
	placed := plain.WithContext(Context{GroupingID: "s1", ProjectID: "p1"})

	assert.Equal(t, MustContentID(plain), MustContentID(placed))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", MustContentID(placed))
}

func TestContentIDBlankEntry(t *testing.T) {
	_, err := ContentID(BlankEntry())
	assert.ErrorIs(t, err, ErrBlankEntry)

	assert.Panics(t, func() { MustContentID(BlankEntry()) })
}
