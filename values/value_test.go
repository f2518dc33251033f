package values

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruthiness(t *testing.T) {
	falsy := []*Value{NewNil(), NewBool(false)}
	for _, v := range falsy {
		require.False(t, v.IsTruthy())
	}
	truthy := []*Value{NewBool(true), NewInt(0), NewString(""), NewTable(NewEmptyTable())}
	for _, v := range truthy {
		require.True(t, v.IsTruthy())
	}
}

func TestValuesEqualNumberCoercion(t *testing.T) {
	require.True(t, ValuesEqual(NewInt(3), NewFloat(3.0)))
	require.False(t, ValuesEqual(NewInt(3), NewFloat(3.5)))
}

func TestValuesEqualIdentity(t *testing.T) {
	a := NewTable(NewEmptyTable())
	b := NewTable(NewEmptyTable())
	require.False(t, ValuesEqual(a, a2FreshCopy(a)))
	require.True(t, ValuesEqual(a, a))
	require.False(t, ValuesEqual(a, b))
}

func a2FreshCopy(v *Value) *Value {
	return NewTable(NewEmptyTable())
}

func TestToDisplayString(t *testing.T) {
	require.Equal(t, "nil", NewNil().ToDisplayString())
	require.Equal(t, "true", NewBool(true).ToDisplayString())
	require.Equal(t, "42", NewInt(42).ToDisplayString())
	require.Equal(t, "3.5", NewFloat(3.5).ToDisplayString())
	require.Equal(t, "1.0", NewFloat(1.0).ToDisplayString())
}

func TestDeepCopyTableIndependence(t *testing.T) {
	tbl := NewEmptyTable()
	tbl.Append(NewInt(1))
	v := NewTable(tbl)
	cp := DeepCopy(v)
	cp.AsTable().Set(NewInt(1), NewInt(99))
	require.Equal(t, int64(1), v.AsTable().Get(NewInt(1)).Data)
}
