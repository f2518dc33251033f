package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AarenWang/haifa-go/values"
)

func TestRegisterForeignInstallsCallable(t *testing.T) {
	globals := NewGlobals()
	RegisterForeign(globals, "double", func(args []*values.Value, vm values.VM) ([]*values.Value, error) {
		n, _ := args[0].ToInt()
		return []*values.Value{values.NewInt(n * 2)}, nil
	})

	fn := globals.Get(values.NewString("double")).AsForeign()
	require.NotNil(t, fn)
	results, err := fn.Fn([]*values.Value{values.NewInt(21)}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), results[0].Data)
}

func TestRegisterLibraryReturnsSubtable(t *testing.T) {
	globals := NewGlobals()
	lib := RegisterLibrary(globals, "math")
	lib.Set(values.NewString("pi"), values.NewFloat(3.14))

	got := globals.Get(values.NewString("math")).AsTable()
	require.Same(t, lib, got)
	require.Equal(t, 3.14, got.Get(values.NewString("pi")).Data)
}
