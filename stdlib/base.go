package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AarenWang/haifa-go/values"
	"github.com/AarenWang/haifa-go/vm"
)

// openBase installs the unqualified global functions: print, type,
// tostring, tonumber, pairs, ipairs, next, pcall, xpcall, error, assert,
// setmetatable, getmetatable, rawget/rawset/rawequal/rawlen, select,
// unpack. Grounded on the teacher's runtime/builtins.go top-level
// registration list, generalized to Lua's global-function surface.
func openBase(globals *values.Table) {
	registerIn(globals, "print", biPrint)
	registerIn(globals, "type", biType)
	registerIn(globals, "tostring", biToString)
	registerIn(globals, "tonumber", biToNumber)
	registerIn(globals, "pairs", biPairs)
	registerIn(globals, "ipairs", biIPairs)
	registerIn(globals, "next", biNext)
	registerIn(globals, "pcall", biPCall)
	registerIn(globals, "xpcall", biXPCall)
	registerIn(globals, "error", biError)
	registerIn(globals, "assert", biAssert)
	registerIn(globals, "setmetatable", biSetMetatable)
	registerIn(globals, "getmetatable", biGetMetatable)
	registerIn(globals, "rawget", biRawGet)
	registerIn(globals, "rawset", biRawSet)
	registerIn(globals, "rawequal", biRawEqual)
	registerIn(globals, "rawlen", biRawLen)
	registerIn(globals, "select", biSelect)
	registerIn(globals, "unpack", biUnpack)
	globals.Set(values.NewString("_G"), values.NewTable(globals))
	globals.Set(values.NewString("_VERSION"), values.NewString("Lua 5.3"))
}

func biPrint(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.ToDisplayString()
	}
	vm.Output(values.NewString(strings.Join(parts, "\t")))
	return nil, nil
}

func biType(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	return []*values.Value{values.NewString(arg(args, 0).Type.String())}, nil
}

func biToString(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	v := arg(args, 0)
	if mm := metatableMethod(v, "__tostring"); mm != nil {
		results, err := vm.CallValue(mm, []*values.Value{v})
		if err != nil {
			return nil, err
		}
		return []*values.Value{arg(results, 0)}, nil
	}
	return []*values.Value{values.NewString(v.ToDisplayString())}, nil
}

func metatableMethod(v *values.Value, name string) *values.Value {
	if v.Type != values.TypeTable {
		return nil
	}
	t := v.AsTable()
	if t.Metatable == nil {
		return nil
	}
	mm := t.Metatable.Get(values.NewString(name))
	if mm.IsNil() {
		return nil
	}
	return mm
}

func biToNumber(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	v := arg(args, 0)
	base := arg(args, 1)
	if !base.IsNil() {
		if v.Type != values.TypeString {
			return []*values.Value{values.NewNil()}, nil
		}
		b, _ := base.ToInt()
		i, err := strconv.ParseInt(strings.TrimSpace(v.Data.(string)), int(b), 64)
		if err != nil {
			return []*values.Value{values.NewNil()}, nil
		}
		return []*values.Value{values.NewInt(i)}, nil
	}
	switch v.Type {
	case values.TypeInt, values.TypeFloat:
		return []*values.Value{v}, nil
	case values.TypeString:
		s := strings.TrimSpace(v.Data.(string))
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return []*values.Value{values.NewInt(i)}, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return []*values.Value{values.NewFloat(f)}, nil
		}
	}
	return []*values.Value{values.NewNil()}, nil
}

// biPairs returns next, t, nil — the generic-for protocol triple.
func biPairs(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0)
	if mm := metatableMethod(t, "__pairs"); mm != nil {
		return vm.CallValue(mm, []*values.Value{t})
	}
	return []*values.Value{values.NewForeign(&values.Foreign{Name: "next", Fn: biNext}), t, values.NewNil()}, nil
}

func biNext(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "next", "table expected")
	}
	k, v := t.Next(arg(args, 1))
	if k == nil {
		return []*values.Value{values.NewNil()}, nil
	}
	return []*values.Value{k, v}, nil
}

// biIPairs returns an iterator closure, t, 0 — array-part-only
// iteration that stops at the first nil hole.
func biIPairs(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0)
	iter := func(iargs []*values.Value, ivm values.VM) ([]*values.Value, error) {
		tbl := arg(iargs, 0).AsTable()
		i, _ := arg(iargs, 1).ToInt()
		i++
		v := tbl.Get(values.NewInt(i))
		if v.IsNil() {
			return []*values.Value{values.NewNil()}, nil
		}
		return []*values.Value{values.NewInt(i), v}, nil
	}
	return []*values.Value{values.NewForeign(&values.Foreign{Name: "ipairs_iterator", Fn: iter}), t, values.NewInt(0)}, nil
}

// biPCall implements protected calls: any error raised inside fn (Go
// error, RuntimeError, or a panic converted upstream) is caught and
// reported as (false, errorValue) instead of propagating.
func biPCall(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	if len(args) == 0 {
		return nil, argError(1, "pcall", "value expected")
	}
	results, err := vm.CallValue(args[0], args[1:])
	if err != nil {
		return []*values.Value{values.NewBool(false), errorValueOf(err)}, nil
	}
	return append([]*values.Value{values.NewBool(true)}, results...), nil
}

// biXPCall is pcall with a message handler invoked (with the yield
// boundary already crossed, same as pcall) before the error is
// returned.
func biXPCall(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	if len(args) < 2 {
		return nil, argError(2, "xpcall", "value expected")
	}
	handler := args[1]
	results, err := vm.CallValue(args[0], args[2:])
	if err != nil {
		handled, herr := vm.CallValue(handler, []*values.Value{errorValueOf(err)})
		if herr != nil {
			return []*values.Value{values.NewBool(false), errorValueOf(herr)}, nil
		}
		return append([]*values.Value{values.NewBool(false)}, handled...), nil
	}
	return append([]*values.Value{values.NewBool(true)}, results...), nil
}

// errorValueOf recovers the original raised Lua value from a
// vm.RuntimeError (errors are values, per spec.md §4.5), falling back to
// a plain string message for ordinary Go errors.
func errorValueOf(err error) *values.Value {
	if rerr, ok := err.(*vm.RuntimeError); ok {
		return rerr.Value
	}
	return values.NewString(err.Error())
}

// biError implements error(v, level): a string message gets the source
// location of the level-th calling frame prefixed onto it (level 1,
// the default, is the function that called error itself); level 0
// suppresses the prefix entirely, per spec.md §4.5.
func biError(args []*values.Value, ctxVM values.VM) ([]*values.Value, error) {
	v := arg(args, 0)
	level := 1
	if l := arg(args, 1); !l.IsNil() {
		if lv, ok := l.ToInt(); ok {
			level = int(lv)
		}
	}
	if v.Type == values.TypeString && level > 0 {
		if host, err := asHost(ctxVM); err == nil {
			if file, line, ok := errorLocationPrefix(host, level); ok {
				v = values.NewString(fmt.Sprintf("%s:%d: %s", file, line, v.Data.(string)))
			}
		}
	}
	return nil, ctxVM.Raise(v)
}

// errorLocationPrefix resolves the level-th calling frame's current
// source position: level 1 is the call to error() itself (still the
// live PC, since Foreign calls push no frame of their own), level 2 is
// one frame further out, and so on — the same frame-walk traceback
// formatting uses.
func errorLocationPrefix(host coroutineHost, level int) (string, int, bool) {
	ctx := host.Context()
	frames := ctx.CallStack.GetFrames()
	i := len(frames) - level
	if i < 0 || i >= len(frames) {
		return "", 0, false
	}
	file, line := vm.FrameSourceLocation(ctx.Program, frames, ctx.PC, i)
	return file, line, true
}

func biAssert(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	if len(args) == 0 || !args[0].IsTruthy() {
		msg := argOrDefault(args, 1, values.NewString("assertion failed!"))
		return nil, vm.Raise(msg)
	}
	return args, nil
}

func biSetMetatable(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "setmetatable", "table expected")
	}
	mt := arg(args, 1)
	if mt.IsNil() {
		t.Metatable = nil
		return []*values.Value{args[0]}, nil
	}
	mtt := mt.AsTable()
	if mtt == nil {
		return nil, argError(2, "setmetatable", "nil or table expected")
	}
	t.Metatable = mtt
	return []*values.Value{args[0]}, nil
}

func biGetMetatable(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil || t.Metatable == nil {
		return []*values.Value{values.NewNil()}, nil
	}
	return []*values.Value{values.NewTable(t.Metatable)}, nil
}

func biRawGet(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "rawget", "table expected")
	}
	return []*values.Value{t.Get(arg(args, 1))}, nil
}

func biRawSet(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "rawset", "table expected")
	}
	t.Set(arg(args, 1), arg(args, 2))
	return []*values.Value{args[0]}, nil
}

func biRawEqual(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	return []*values.Value{values.NewBool(values.ValuesEqual(arg(args, 0), arg(args, 1)))}, nil
}

func biRawLen(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	v := arg(args, 0)
	switch v.Type {
	case values.TypeTable:
		return []*values.Value{values.NewInt(int64(v.AsTable().Len()))}, nil
	case values.TypeString:
		return []*values.Value{values.NewInt(int64(len(v.Data.(string))))}, nil
	}
	return nil, argError(1, "rawlen", "table or string expected")
}

func biSelect(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	sel := arg(args, 0)
	rest := args[min(1, len(args)):]
	if sel.Type == values.TypeString && sel.Data.(string) == "#" {
		return []*values.Value{values.NewInt(int64(len(rest)))}, nil
	}
	n, ok := sel.ToInt()
	if !ok {
		return nil, argError(1, "select", "number expected")
	}
	if n < 0 {
		n = int64(len(rest)) + n + 1
	}
	if n < 1 || int(n) > len(rest) {
		return nil, nil
	}
	return rest[n-1:], nil
}

func biUnpack(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "unpack", "table expected")
	}
	i := int64(1)
	if !arg(args, 1).IsNil() {
		i, _ = arg(args, 1).ToInt()
	}
	j := int64(t.Len())
	if !arg(args, 2).IsNil() {
		j, _ = arg(args, 2).ToInt()
	}
	out := make([]*values.Value, 0, j-i+1)
	for k := i; k <= j; k++ {
		out = append(out, t.Get(values.NewInt(k)))
	}
	return out, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
