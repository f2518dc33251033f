package stdlib

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// openIOLib installs a sandboxed "io" library: io.write/io.stdout/
// io.stderr/io.type write through the VM's output buffer rather than
// any real file descriptor; io.read reads from the process's standard
// input. No io.open: file access
// is out of scope for a teaching VM, the same sandboxing posture the
// teacher applies to its pkg/fpm request handling (never hand raw
// filesystem access to guest code without a mediating layer).
func openIOLib(globals *values.Table) {
	lib := registry.RegisterLibrary(globals, "io")
	registerIn(lib, "write", ioWrite)
	registerIn(lib, "read", ioRead)

	stdout := newIOHandle("stdout")
	stderr := newIOHandle("stderr")
	lib.Set(values.NewString("stdout"), values.NewTable(stdout))
	lib.Set(values.NewString("stderr"), values.NewTable(stderr))

	registerIn(lib, "type", ioType)
}

// ioHandleTag is the raw field io.type consults to recognize a handle
// table; real Lua distinguishes open/closed file userdata, but a
// sandboxed io only ever deals with the two standard streams.
const ioHandleTag = "__iohandle"

func newIOHandle(name string) *values.Table {
	t := values.NewEmptyTable()
	t.Set(values.NewString(ioHandleTag), values.NewString(name))
	registry.RegisterForeign(t, "write", ioHandleWrite)
	return t
}

// ioHandleWrite backs stream:write(...), called with the handle table
// itself as args[0] (Lua's `:` method-call convention).
func ioHandleWrite(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	if len(args) == 0 {
		return nil, argError(1, "write", "file handle expected")
	}
	return ioWrite(args[1:], vm)
}

// ioWrite appends its arguments to the VM's output buffer, per spec.md
// §4.6 ("writes append to the VM output buffer"), the same sink
// print() uses.
func ioWrite(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a.ToDisplayString())
	}
	vm.Output(values.NewString(b.String()))
	return nil, nil
}

func ioType(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	v := arg(args, 0)
	if v.Type != values.TypeTable {
		return []*values.Value{values.NewNil()}, nil
	}
	if tag := v.AsTable().Get(values.NewString(ioHandleTag)); !tag.IsNil() {
		return []*values.Value{values.NewString("file")}, nil
	}
	return []*values.Value{values.NewNil()}, nil
}

var stdinReader = bufio.NewReader(os.Stdin)

func ioRead(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	format := "l"
	if f := arg(args, 0); !f.IsNil() {
		format = strings.TrimPrefix(f.ToDisplayString(), "*")
	}
	switch format {
	case "l", "L":
		line, err := stdinReader.ReadString('\n')
		if err != nil && line == "" {
			return []*values.Value{values.NewNil()}, nil
		}
		if format == "l" {
			line = strings.TrimRight(line, "\n")
		}
		return []*values.Value{values.NewString(line)}, nil
	case "n":
		var n float64
		if _, err := fmt.Fscan(stdinReader, &n); err != nil {
			return []*values.Value{values.NewNil()}, nil
		}
		return []*values.Value{values.NewFloat(n)}, nil
	case "a":
		var b strings.Builder
		buf := make([]byte, 4096)
		for {
			n, err := stdinReader.Read(buf)
			b.Write(buf[:n])
			if err != nil {
				break
			}
		}
		return []*values.Value{values.NewString(b.String())}, nil
	}
	return []*values.Value{values.NewNil()}, nil
}
