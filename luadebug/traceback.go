// Package luadebug renders stack tracebacks and frame introspection for
// the VM, the shape consumed by the debug standard library and by
// uncaught-error reporting, grounded on the teacher's
// compiler/vm/debugger.go frame-walk formatter.
package luadebug

import (
	"fmt"
	"strings"

	"github.com/AarenWang/haifa-go/values"
	"github.com/AarenWang/haifa-go/vm"
)

// Format renders ctx's current call stack as Lua's "stack traceback:"
// block, innermost frame first, optionally prefixed by a message (as
// debug.traceback(msg) does). A thin wrapper over FormatThread targeting
// the coroutine already running in ctx, with no frames skipped.
func Format(ctx *vm.ExecutionContext, message string) string {
	return FormatThread(ctx, nil, message, 0)
}

// FormatThread backs debug.traceback([thread,] [msg, [level]]) (spec.md
// §4.7): thread nil (or the currently running coroutine) renders ctx's
// live frame stack; any other coroutine value renders that thread's
// saved frame stack instead. level skips that many innermost frames,
// the same way Lua's own level argument trims the near end of the
// traceback (e.g. to hide debug.traceback's own call site).
func FormatThread(ctx *vm.ExecutionContext, thread *values.Value, message string, level int) string {
	var b strings.Builder
	if message != "" {
		b.WriteString(message)
		b.WriteString("\n")
	}
	b.WriteString("stack traceback:")
	frames, pc := vm.FramesForThread(ctx, thread)
	if level < 0 {
		level = 0
	}
	for i := len(frames) - 1 - level; i >= 0; i-- {
		f := frames[i]
		name := f.FunctionDisplayName
		if name == "" {
			name = f.FunctionLabel
		}
		if name == "" {
			name = "?"
		}
		file, line := vm.FrameSourceLocation(ctx.Program, frames, pc, i)
		fmt.Fprintf(&b, "\n\t%s (%s:%d)", name, file, line)
	}
	return b.String()
}

// Frame describes one activation record for debug.getinfo.
type Frame struct {
	FunctionName string
	IsForeign    bool
	Depth        int
}

// Frames enumerates ctx's current call stack, innermost first (depth 0
// is the function that is currently running).
func Frames(ctx *vm.ExecutionContext) []Frame {
	raw := ctx.CallStack.GetFrames()
	out := make([]Frame, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		f := raw[i]
		name := f.FunctionDisplayName
		if name == "" {
			name = f.FunctionLabel
		}
		out = append(out, Frame{FunctionName: name, IsForeign: f.IsForeign, Depth: len(raw) - 1 - i})
	}
	return out
}
