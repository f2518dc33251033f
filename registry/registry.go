// Package registry implements the global-environment and foreign-function
// registration surface consumed by the VM and standard library, grounded
// on the teacher's registry.Function/Class bookkeeping but trimmed to
// what a Lua global table needs (no PHP classes).
package registry

import "github.com/AarenWang/haifa-go/values"

// NewGlobals builds an empty global environment table.
func NewGlobals() *values.Table {
	return values.NewEmptyTable()
}

// RegisterForeign implements spec.md §6's register_foreign(global_env,
// name, fn) external interface: it installs a host-provided callable
// under name in the given table (the global table, or a library
// sub-table such as the one returned for "table"/"string"/"math").
func RegisterForeign(env *values.Table, name string, fn func(args []*values.Value, vm values.VM) ([]*values.Value, error)) {
	env.Set(values.NewString(name), values.NewForeign(&values.Foreign{Name: name, Fn: fn}))
}

// RegisterLibrary installs a named sub-table of foreign functions (e.g.
// "table", "string", "math") into the global environment and returns the
// sub-table so library init code can also set non-function fields
// (math.pi, math.huge, io.stdout, ...).
func RegisterLibrary(globals *values.Table, name string) *values.Table {
	lib := values.NewEmptyTable()
	globals.Set(values.NewString(name), values.NewTable(lib))
	return lib
}
