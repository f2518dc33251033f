package stdlib

import (
	"github.com/AarenWang/haifa-go/luadebug"
	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// openDebugLib installs debug.traceback and debug.getinfo, the
// introspection surface spec.md §4.7 asks for, wired straight onto
// package luadebug the same way the teacher's compiler/vm/debugger.go
// backs its own CLI-facing trace commands.
func openDebugLib(globals *values.Table) {
	lib := registry.RegisterLibrary(globals, "debug")
	registerIn(lib, "traceback", dbgTraceback)
	registerIn(lib, "getinfo", dbgGetInfo)
}

// dbgTraceback implements debug.traceback([thread,] [message, [level]]):
// an optional leading coroutine argument retargets the traceback at that
// thread's saved frame stack instead of the caller's own, and level
// skips that many innermost frames, per spec.md §4.7.
func dbgTraceback(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	var thread *values.Value
	rest := args
	if first := arg(args, 0); first.Type == values.TypeCoroutine {
		thread = first
		rest = args[1:]
	}
	msg := ""
	if m := arg(rest, 0); !m.IsNil() {
		msg = m.ToDisplayString()
	}
	level := 0
	if l := arg(rest, 1); !l.IsNil() {
		if lv, ok := l.ToInt(); ok {
			level = int(lv)
		}
	}
	return []*values.Value{values.NewString(luadebug.FormatThread(host.Context(), thread, msg, level))}, nil
}

func dbgGetInfo(args []*values.Value, v values.VM) ([]*values.Value, error) {
	host, err := asHost(v)
	if err != nil {
		return nil, err
	}
	level := int64(1)
	if l := arg(args, 0); !l.IsNil() {
		level, _ = l.ToInt()
	}
	frames := luadebug.Frames(host.Context())
	idx := int(level) - 1
	if idx < 0 || idx >= len(frames) {
		return []*values.Value{values.NewNil()}, nil
	}
	f := frames[idx]
	info := values.NewEmptyTable()
	kind := "Lua"
	if f.IsForeign {
		kind = "C"
	}
	info.Set(values.NewString("what"), values.NewString(kind))
	info.Set(values.NewString("name"), values.NewString(f.FunctionName))
	info.Set(values.NewString("currentline"), values.NewInt(int64(f.Depth)))
	return []*values.Value{values.NewTable(info)}, nil
}
