package stdlib

import (
	"fmt"
	"strings"

	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// openPackageLib installs package.loaded/preload/path/searchers and
// require/sandbox, sandboxed the same way io/os are: no filesystem
// search path is walked, since nothing upstream of the compiler is
// implemented here (SPEC_FULL.md §14, the assumed ast package
// documents the contract only). A host embedding this VM populates
// package.preload itself (e.g. registering a Foreign that returns a
// table of exports) before running guest code, or appends its own
// function onto package.searchers; require then walks searchers in
// order exactly as spec.md §4.6 describes, just with a single
// preload-backed searcher installed by default.
// load/loadfile/dofile are intentionally absent: without a parser,
// there is no way to turn a source string into a callable chunk.
func openPackageLib(globals *values.Table) {
	pkg := registry.RegisterLibrary(globals, "package")
	loaded := values.NewEmptyTable()
	preload := values.NewEmptyTable()
	searchers := values.NewEmptyTable()
	pkg.Set(values.NewString("loaded"), values.NewTable(loaded))
	pkg.Set(values.NewString("preload"), values.NewTable(preload))
	pkg.Set(values.NewString("searchers"), values.NewTable(searchers))
	pkg.Set(values.NewString("path"), values.NewString("./?.lua"))

	searchers.Append(values.NewForeign(&values.Foreign{Name: "preload_searcher", Fn: preloadSearcher(preload)}))

	registry.RegisterForeign(globals, "require", requireFunc(loaded, searchers))
	registerIn(pkg, "sandbox", pkgSandbox(globals, loaded))
}

// preloadSearcher is package.searchers[1]: it resolves name against
// package.preload, returning the loader function on a hit or (nil,
// message) on a miss, the same result shape every searcher returns.
func preloadSearcher(preload *values.Table) func([]*values.Value, values.VM) ([]*values.Value, error) {
	return func(args []*values.Value, vm values.VM) ([]*values.Value, error) {
		name := arg(args, 0)
		loader := preload.Get(name)
		if loader.IsNil() {
			msg := fmt.Sprintf("no field package.preload['%s']", name.ToDisplayString())
			return []*values.Value{values.NewNil(), values.NewString(msg)}, nil
		}
		return []*values.Value{loader}, nil
	}
}

// requireFunc walks package.searchers in order, per spec.md §4.6:
// the first searcher to return a non-nil loader wins; that loader is
// then called with name and its result (or true, if it returned
// nothing) is cached in package.loaded so repeated requires of the
// same name return the cached value without re-walking searchers.
func requireFunc(loaded, searchers *values.Table) func([]*values.Value, values.VM) ([]*values.Value, error) {
	return func(args []*values.Value, v values.VM) ([]*values.Value, error) {
		name := arg(args, 0)
		if name.Type != values.TypeString {
			return nil, argError(1, "require", "string expected, got "+name.Type.String())
		}
		if existing := loaded.Get(name); !existing.IsNil() {
			return []*values.Value{existing}, nil
		}

		var misses []string
		var loader *values.Value
		for i := 1; i <= searchers.Len(); i++ {
			searcher := searchers.Get(values.NewInt(int64(i)))
			if searcher.IsNil() {
				continue
			}
			results, err := v.CallValue(searcher, []*values.Value{name})
			if err != nil {
				return nil, err
			}
			if len(results) > 0 && !results[0].IsNil() {
				loader = results[0]
				break
			}
			if len(results) > 1 && results[1].Type == values.TypeString {
				misses = append(misses, results[1].ToDisplayString())
			}
		}
		if loader == nil {
			return nil, fmt.Errorf("module '%s' not found:%s", name.ToDisplayString(), "\n\t"+strings.Join(misses, "\n\t"))
		}

		results, err := v.CallValue(loader, []*values.Value{name})
		if err != nil {
			return nil, err
		}
		result := values.NewBool(true)
		if len(results) > 0 && !results[0].IsNil() {
			result = results[0]
		}
		loaded.Set(name, result)
		return []*values.Value{result}, nil
	}
}

// pkgSandbox implements package.sandbox(name, env, inherit): builds a
// fresh table copying the named entries listed in inherit (an array of
// string keys) out of env (defaulting to the real global table), and
// registers it in package.loaded[name] so a later require(name) hands
// back this sandboxed environment directly, per spec.md §9's "sandbox
// builds a new table with selected entries."
func pkgSandbox(globals, loaded *values.Table) func([]*values.Value, values.VM) ([]*values.Value, error) {
	return func(args []*values.Value, v values.VM) ([]*values.Value, error) {
		name := arg(args, 0)
		if name.Type != values.TypeString {
			return nil, argError(1, "sandbox", "string expected, got "+name.Type.String())
		}
		source := globals
		if envArg := arg(args, 1); envArg.Type == values.TypeTable {
			source = envArg.AsTable()
		}
		inherit := arg(args, 2)

		sandboxed := values.NewEmptyTable()
		if inherit.Type == values.TypeTable {
			names := inherit.AsTable()
			for i := 1; i <= names.Len(); i++ {
				key := names.Get(values.NewInt(int64(i)))
				sandboxed.Set(key, source.Get(key))
			}
		}

		loaded.Set(name, values.NewTable(sandboxed))
		return []*values.Value{values.NewTable(sandboxed)}, nil
	}
}
