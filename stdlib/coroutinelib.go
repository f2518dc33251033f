package stdlib

import (
	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
	"github.com/AarenWang/haifa-go/vm"
)

// coroutineHost is implemented directly by *vm.ExecutionContext (its
// VM/Context methods) so this library can reach the scheduler
// operations in package vm without values itself depending on vm,
// preserving the import-cycle boundary documented in values/value.go.
type coroutineHost interface {
	values.VM
	VM() *vm.VirtualMachine
	Context() *vm.ExecutionContext
}

// openCoroutineLib installs coroutine.create/resume/yield/status/wrap/
// running/isyieldable/close, spec.md §4.3's full surface. Every
// function here expects its values.VM argument to additionally
// implement coroutineHost, which *vm.ExecutionContext always does.
func openCoroutineLib(globals *values.Table) {
	lib := registry.RegisterLibrary(globals, "coroutine")
	registerIn(lib, "create", coCreate)
	registerIn(lib, "resume", coResume)
	registerIn(lib, "yield", coYield)
	registerIn(lib, "status", coStatus)
	registerIn(lib, "wrap", coWrap)
	registerIn(lib, "running", coRunning)
	registerIn(lib, "isyieldable", coIsYieldable)
	registerIn(lib, "close", coClose)
}

func asHost(v values.VM) (coroutineHost, error) {
	host, ok := v.(coroutineHost)
	if !ok {
		return nil, argError(1, "coroutine", "coroutine library requires a scheduler-bound VM context")
	}
	return host, nil
}

func coCreate(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	fn := arg(args, 0).AsClosure()
	if fn == nil {
		return nil, argError(1, "create", "function expected")
	}
	co := host.VM().CreateCoroutine(fn)
	return []*values.Value{values.NewCoroutine(co)}, nil
}

func coResume(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	co := arg(args, 0).AsCoroutine()
	if co == nil {
		return nil, argError(1, "resume", "coroutine expected")
	}
	ok, results, errVal := host.VM().Resume(host.Context(), co, args[1:])
	if !ok {
		return []*values.Value{values.NewBool(false), errVal}, nil
	}
	return append([]*values.Value{values.NewBool(true)}, results...), nil
}

func coYield(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	if yerr := host.VM().Yield(host.Context(), args); yerr != nil {
		return nil, yerr
	}
	// Yield returns either a real error or the yield signal, which
	// opCallValue turns into the suspend; resume() later re-delivers its
	// args as this call's logical return values via the VM's ARG/RESULT*
	// plumbing at the resume point, not here.
	return nil, nil
}

func coStatus(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	co := arg(args, 0).AsCoroutine()
	if co == nil {
		return nil, argError(1, "status", "coroutine expected")
	}
	return []*values.Value{values.NewString(string(vm.Status(host.Context(), co)))}, nil
}

// coWrap returns a Foreign that resumes the wrapped coroutine and
// re-raises any error instead of returning an ok flag, per Lua's
// coroutine.wrap contract.
func coWrap(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	fn := arg(args, 0).AsClosure()
	if fn == nil {
		return nil, argError(1, "wrap", "function expected")
	}
	co := host.VM().CreateCoroutine(fn)
	wrapped := func(wargs []*values.Value, wvm values.VM) ([]*values.Value, error) {
		whost, werr := asHost(wvm)
		if werr != nil {
			return nil, werr
		}
		ok, results, errVal := whost.VM().Resume(whost.Context(), co, wargs)
		if !ok {
			return nil, whost.Raise(errVal)
		}
		return results, nil
	}
	return []*values.Value{values.NewForeign(&values.Foreign{Name: "wrapped_coroutine", Fn: wrapped})}, nil
}

func coRunning(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	cur := host.Context().Current
	return []*values.Value{values.NewCoroutine(cur), values.NewBool(cur.IsMain)}, nil
}

func coIsYieldable(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	return []*values.Value{values.NewBool(vm.IsYieldable(host.Context()))}, nil
}

func coClose(args []*values.Value, v values.VM) ([]*values.Value, error) {
	co := arg(args, 0).AsCoroutine()
	if co == nil {
		return nil, argError(1, "close", "coroutine expected")
	}
	ok, errVal := vm.Close(co)
	if !ok {
		return []*values.Value{values.NewBool(false), errVal}, nil
	}
	return []*values.Value{values.NewBool(true)}, nil
}
