// Package stdlib implements the Lua standard library exposed to
// compiled programs exclusively through registry.RegisterForeign, the
// VM's only integration point with library code (spec.md §6). Each
// sub-library file mirrors the teacher's runtime/*.go
// one-file-per-concern layout (runtime/math.go, runtime/string.go,
// runtime/output.go, ...) translated from PHP builtins to Lua's.
package stdlib

import (
	"fmt"

	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// OpenLibs installs every standard library sub-table into globals and
// returns it, the Lua-side equivalent of the teacher's
// runtime.NewRuntime() builtin registration sweep.
func OpenLibs(globals *values.Table) *values.Table {
	openBase(globals)
	openTableLib(globals)
	openStringLib(globals)
	openMathLib(globals)
	openOSLib(globals)
	openIOLib(globals)
	openCoroutineLib(globals)
	openDebugLib(globals)
	openPackageLib(globals)
	return globals
}

// arg fetches args[i], returning nil (Lua's "no value") past the end.
func arg(args []*values.Value, i int) *values.Value {
	if i < 0 || i >= len(args) {
		return values.NewNil()
	}
	return args[i]
}

func argOrDefault(args []*values.Value, i int, def *values.Value) *values.Value {
	v := arg(args, i)
	if v.IsNil() {
		return def
	}
	return v
}

// argError formats Lua's conventional "bad argument #n to 'fname' (...)"
// message.
func argError(n int, fname, msg string) error {
	return fmt.Errorf("bad argument #%d to '%s' (%s)", n, fname, msg)
}

// registerIn is a tiny adapter over registry.RegisterForeign to cut
// repetition across library files.
func registerIn(lib *values.Table, name string, fn func(args []*values.Value, vm values.VM) ([]*values.Value, error)) {
	registry.RegisterForeign(lib, name, fn)
}
