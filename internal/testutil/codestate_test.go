package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsnap2/progsnap2-go/internal/ir"
)

func TestFixtureIDs(t *testing.T) {
	assert.Equal(t, PrintOneID, ir.MustContentID(SingleFile("print(1)")))
	assert.Equal(t, TwoFileID, ir.MustContentID(TwoFileProject()))
}

func TestProjectSortsSections(t *testing.T) {
	e := Project(map[string]string{"z.py": "z", "a.py": "a"})
	require.Len(t, e.Sections, 2)
	assert.Equal(t, "a.py", e.Sections[0].Name)
	assert.Equal(t, "z.py", e.Sections[1].Name)
	assert.NoError(t, e.Validate())
}
