package codestate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsnap2/progsnap2-go/internal/ir"
	"github.com/progsnap2/progsnap2-go/internal/testutil"
)

func TestSQLTable_IdempotentAdd(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tbl := NewSQLTable(st.DB(), "default")

	id1, err := tbl.AddAndGetID(ctx, testutil.TwoFileProject())
	require.NoError(t, err)
	rows, err := st.CountCodeStateRows(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, rows)

	// Same files, submitted in the opposite order.
	reordered := ir.Entry{Sections: []ir.Section{
		{Name: "b.py", Code: "y = 2\n"},
		{Name: "a.py", Code: "x = 1\n"},
	}}
	id2, err := tbl.AddAndGetID(ctx, reordered)
	require.NoError(t, err)

	assert.Equal(t, testutil.TwoFileID, id1)
	assert.Equal(t, id1, id2)
	rows, err = st.CountCodeStateRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rows, "second add must not write rows")
}

func TestSQLTable_StoresUnnamedSectionAsNull(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tbl := NewSQLTable(st.DB(), "default")

	id, err := tbl.AddAndGetID(ctx, testutil.SingleFile("print(1)"))
	require.NoError(t, err)

	var nulls int
	require.NoError(t, st.DB().QueryRow(
		"SELECT COUNT(*) FROM CodeStates WHERE CodeStateID = ? AND CodeStateSection IS NULL", id,
	).Scan(&nulls))
	assert.Equal(t, 1, nulls)

	entry, ok, err := st.ReadCodeState(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []ir.Section{{Code: "print(1)"}}, entry.Sections)
}

func TestSQLTable_DistinctContent(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tbl := NewSQLTable(st.DB(), "default")

	a, err := tbl.AddAndGetID(ctx, testutil.SingleFile("print(1)"))
	require.NoError(t, err)
	b, err := tbl.AddAndGetID(ctx, testutil.SingleFile("print(1) "))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	rows, err := st.CountCodeStateRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}

func TestSQLTable_AddWithIDExistingIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tbl := NewSQLTable(st.DB(), "default")

	require.NoError(t, tbl.AddWithID(ctx, testutil.SingleFile("first"), "t1"))
	require.NoError(t, tbl.AddWithID(ctx, testutil.SingleFile("second"), "t1"))

	entry, ok, err := st.ReadCodeState(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", entry.Sections[0].Code, "existing content is kept without comparison")
}

func TestSQLTable_BlankEntry(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tbl := NewSQLTable(st.DB(), "default")

	id, err := tbl.AddAndGetID(ctx, ir.BlankEntry())
	require.NoError(t, err)
	assert.Equal(t, "", id)

	rows, err := st.CountCodeStateRows(ctx)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestSQLTable_OverHeldConnection(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	conn, err := st.Conn(ctx)
	require.NoError(t, err)
	tbl := NewSQLTable(conn, "default")

	id, err := tbl.AddAndGetID(ctx, testutil.SingleFile("print(1)"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	rows, err := st.CountCodeStateRows(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestSQLTable_RejectsDuplicateSections(t *testing.T) {
	st := openStore(t)
	tbl := NewSQLTable(st.DB(), "default")

	e := ir.Entry{Sections: []ir.Section{{Code: "a"}, {Code: "b"}}}
	_, err := tbl.AddAndGetID(context.Background(), e)
	assert.ErrorIs(t, err, ir.ErrDuplicateSection)
}
