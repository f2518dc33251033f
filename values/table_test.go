package values

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableAppendLength(t *testing.T) {
	tbl := NewEmptyTable()
	tbl.Append(NewInt(10))
	tbl.Append(NewInt(20))
	tbl.Append(NewInt(30))
	require.Equal(t, 3, tbl.Len())
	require.Equal(t, int64(20), tbl.Get(NewInt(2)).Data)
}

func TestTableSetNilRemovesKey(t *testing.T) {
	tbl := NewEmptyTable()
	tbl.Set(NewString("a"), NewInt(1))
	require.Equal(t, int64(1), tbl.Get(NewString("a")).Data)
	tbl.Set(NewString("a"), NewNil())
	require.True(t, tbl.Get(NewString("a")).IsNil())
}

func TestTableLengthAfterBorderDeletion(t *testing.T) {
	tbl := NewEmptyTable()
	for i := int64(1); i <= 5; i++ {
		tbl.Set(NewInt(i), NewInt(i*10))
	}
	require.Equal(t, 5, tbl.Len())
	// Deleting the last array-border key should shrink the border.
	tbl.Set(NewInt(5), NewNil())
	require.Equal(t, 4, tbl.Len())
}

func TestTableFloatIntKeyAlias(t *testing.T) {
	tbl := NewEmptyTable()
	tbl.Set(NewInt(1), NewString("one"))
	got := tbl.Get(NewFloat(1.0))
	require.Equal(t, "one", got.Data)
}

func TestTableInsertRemove(t *testing.T) {
	tbl := NewEmptyTable()
	tbl.Append(NewInt(1))
	tbl.Append(NewInt(2))
	tbl.Append(NewInt(3))
	tbl.Insert(2, NewInt(99))
	require.Equal(t, 4, tbl.Len())
	require.Equal(t, int64(99), tbl.Get(NewInt(2)).Data)
	require.Equal(t, int64(2), tbl.Get(NewInt(3)).Data)

	removed := tbl.Remove(1)
	require.Equal(t, int64(1), removed.Data)
	require.Equal(t, 3, tbl.Len())
}

func TestTableCloneIndependence(t *testing.T) {
	tbl := NewEmptyTable()
	tbl.Append(NewInt(1))
	clone := tbl.Clone()
	clone.Set(NewInt(1), NewInt(42))
	require.Equal(t, int64(1), tbl.Get(NewInt(1)).Data)
	require.Equal(t, int64(42), clone.Get(NewInt(1)).Data)
}

func TestTableNextIteratesArrayThenHash(t *testing.T) {
	tbl := NewEmptyTable()
	tbl.Append(NewInt(10))
	tbl.Append(NewInt(20))
	tbl.Set(NewString("k"), NewInt(99))

	k1, v1 := tbl.Next(NewNil())
	require.Equal(t, int64(1), k1.Data)
	require.Equal(t, int64(10), v1.Data)

	k2, v2 := tbl.Next(k1)
	require.Equal(t, int64(2), k2.Data)
	require.Equal(t, int64(20), v2.Data)

	k3, v3 := tbl.Next(k2)
	require.Equal(t, "k", k3.Data)
	require.Equal(t, int64(99), v3.Data)

	k4, v4 := tbl.Next(k3)
	require.Nil(t, k4)
	require.Nil(t, v4)
}
