package codestate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/testutil"
)

func TestDirectory_SameContentTwiceOneDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := NewDirectory(root, "default")

	e := testutil.SingleFile("print(1)").WithContext(ir.Context{GroupingID: "s1"})

	id1, err := d.AddAndGetID(ctx, e)
	require.NoError(t, err)
	id2, err := d.AddAndGetID(ctx, e)
	require.NoError(t, err)

	assert.Equal(t, testutil.PrintOneID, id1)
	assert.Equal(t, id1, id2)
	assert.Equal(t, []string{testutil.PrintOneID}, subdirs(t, filepath.Join(root, "s1")))
	assert.Equal(t, "print(1)", readFile(t, filepath.Join(d.Path("s1", id1), DefaultSectionFile)))
}

func TestDirectory_NamedSectionsAndSubfolders(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(t.TempDir(), "default")

	e := testutil.Project(map[string]string{
		"main.py":      "import util\n",
		"lib/util.py":  "def f(): pass\n",
		"lib/other.py": "",
	})
	id, err := d.AddAndGetID(ctx, e)
	require.NoError(t, err)

	dir := d.Path("", id)
	assert.Equal(t, "import util\n", readFile(t, filepath.Join(dir, "main.py")))
	assert.Equal(t, "def f(): pass\n", readFile(t, filepath.Join(dir, "lib", "util.py")))
	assert.Equal(t, "", readFile(t, filepath.Join(dir, "lib", "other.py")))
}

func TestDirectory_DistinctContentDistinctIDs(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(t.TempDir(), "default")

	a, err := d.AddAndGetID(ctx, testutil.SingleFile("print(1)"))
	require.NoError(t, err)
	b, err := d.AddAndGetID(ctx, testutil.SingleFile("print(2)"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDirectory_AddWithIDSkipsExistingDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(t.TempDir(), "default")

	dir := d.Path("s1", "fixed")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	e := testutil.SingleFile("new content").WithContext(ir.Context{GroupingID: "s1"})
	require.NoError(t, d.AddWithID(ctx, e, "fixed"))

	_, err := os.Stat(filepath.Join(dir, DefaultSectionFile))
	assert.True(t, os.IsNotExist(err), "existing directory must not be written into")
}

func TestDirectory_AddWithIDUsesCallerID(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(t.TempDir(), "default")

	require.NoError(t, d.AddWithID(ctx, testutil.SingleFile("x"), "my-id"))
	assert.Equal(t, "x", readFile(t, filepath.Join(d.Path("", "my-id"), DefaultSectionFile)))
}

func TestDirectory_BlankEntryWritesNothing(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := NewDirectory(root, "default")

	id, err := d.AddAndGetID(ctx, ir.BlankEntry())
	require.NoError(t, err)
	assert.Equal(t, "", id)
	assert.Empty(t, subdirs(t, root))
}

func TestDirectory_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(t.TempDir(), "default")

	tests := []struct {
		name  string
		entry ir.Entry
	}{
		{"parent section", ir.Entry{Sections: []ir.Section{{Name: "../evil.py", Code: "x"}}}},
		{"absolute section", ir.Entry{Sections: []ir.Section{{Name: "/etc/passwd", Code: "x"}}}},
		{"grouping with slash", testutil.SingleFile("x").WithContext(ir.Context{GroupingID: "a/b"})},
		{"grouping dot dot", testutil.SingleFile("x").WithContext(ir.Context{GroupingID: ".."})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.AddAndGetID(ctx, tt.entry)
			assert.ErrorIs(t, err, ErrInvalidSectionName)
		})
	}
}

func TestDirectory_RejectsDuplicateSections(t *testing.T) {
	d := NewDirectory(t.TempDir(), "default")
	e := ir.Entry{Sections: []ir.Section{{Name: "a.py", Code: "1"}, {Name: "a.py", Code: "2"}}}

	_, err := d.AddAndGetID(context.Background(), e)
	assert.ErrorIs(t, err, ir.ErrDuplicateSection)
}

func TestDirectory_ProjectID(t *testing.T) {
	d := NewDirectory(t.TempDir(), "fallback")
	assert.False(t, d.RequiresProjectID())
	assert.Equal(t, "fallback", d.DefaultProjectID())
}
