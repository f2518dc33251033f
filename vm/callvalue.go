package vm

import (
	"fmt"
	"strings"

	"github.com/AarenWang/haifa-go/values"
)

// CallValue performs a reentrant, synchronous call into a Lua closure,
// a Foreign function, or a __call-able table from Go code: pcall's
// protected call, table.sort's comparator, metamethod dispatch, and
// ExecutionContext.CallValue (the values.VM surface foreign functions
// receive). A closure call here pushes an IsForeign-marked frame so that
// coroutine.yield correctly refuses to cross this Go-level reentry
// boundary, per spec.md §4.3.
func (v *VirtualMachine) CallValue(ctx *ExecutionContext, callee *values.Value, args []*values.Value) ([]*values.Value, error) {
	switch callee.Type {
	case values.TypeForeign:
		return callee.AsForeign().Fn(args, ctx)
	case values.TypeClosure:
		cl := callee.AsClosure()
		floor := ctx.CallStack.Depth()
		savedPending := ctx.PendingParams
		savedPC := ctx.PC // restored below: the dispatch loop that called into
		// this Foreign function still owns advancing its own PC once we return.
		ctx.PendingParams = append([]*values.Value{}, args...)
		if err := pushCallFrame(ctx, cl.CodeLabel, cl.DisplayName(0), cl.Upvalues); err != nil {
			ctx.PendingParams = savedPending
			ctx.PC = savedPC
			return nil, err
		}
		ctx.CallStack.CurrentFrame().IsForeign = true

		sig, err := v.runLoop(ctx, floor)
		ctx.PendingParams = savedPending
		ctx.PC = savedPC
		if err != nil {
			// Unwind the frames the error left above floor and put the
			// caller's register file and upvalues back in place.
			for ctx.CallStack.Depth() > floor+1 {
				ctx.CallStack.PopFrame()
			}
			popCallFrame(ctx)
			return nil, err
		}
		if sig == sigHalted {
			return nil, nil
		}
		return ctx.LastReturn, nil
	default:
		if mm := metamethodOf(callee, "__call"); mm != nil {
			return v.CallValue(ctx, mm, append([]*values.Value{callee}, args...))
		}
		return nil, &VMError{Type: ErrNotCallable, Message: "attempt to call a " + callee.Type.String() + " value"}
	}
}

// formatTraceback renders the current call stack in Lua's customary
// "stack traceback:" shape (spec.md §4.7), innermost frame first, with
// each line suffixed by the frame's current source position.
func (v *VirtualMachine) formatTraceback(ctx *ExecutionContext) string {
	frames := ctx.CallStack.GetFrames()
	var b strings.Builder
	b.WriteString("stack traceback:")
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		name := f.FunctionDisplayName
		if name == "" {
			name = f.FunctionLabel
		}
		file, line := FrameSourceLocation(ctx.Program, frames, ctx.PC, i)
		fmt.Fprintf(&b, "\n\t%s (%s:%d)", name, file, line)
	}
	return b.String()
}

// FramesForThread returns the frame stack and currently-executing PC for
// co, per debug.traceback(thread, msg, level)'s "thread's saved PC and
// frame stack" (spec.md §4.7): when co is the coroutine already running
// in ctx, its live CallStack/PC are used directly; otherwise co's
// suspended state (SavedFrames/SavedPC, installed the same way
// Resume installs them) is read back without disturbing ctx.
func FramesForThread(ctx *ExecutionContext, co *values.Value) ([]*CallFrame, int) {
	if co == nil {
		return ctx.CallStack.GetFrames(), ctx.PC
	}
	target := co.AsCoroutine()
	if target == nil || target == ctx.Current {
		return ctx.CallStack.GetFrames(), ctx.PC
	}
	if target.SavedFrames == nil {
		return nil, 0
	}
	return framesFromSaved(target.SavedFrames).GetFrames(), target.SavedPC
}

// FrameSourceLocation recovers the source position a frame is currently
// suspended at (or, for the innermost frame, currently executing). No
// CallFrame stores its own PC: the innermost frame's position is the
// stack's live/saved PC, and every frame below it is sitting just after
// the CALL that pushed the frame one level up — ReturnPC minus the
// single instruction that call advanced past — per spec.md §4.7's "line
// of the currently executing PC" for each frame. Exported for
// luadebug.Format, which renders the same traceback shape for
// debug.traceback/error.
func FrameSourceLocation(program *Program, frames []*CallFrame, currentPC int, i int) (string, int) {
	var pc int
	if i == len(frames)-1 {
		pc = currentPC
	} else {
		pc = frames[i+1].ReturnPC - 1
	}
	if program == nil || pc < 0 || pc >= len(program.Code) {
		return "?", 0
	}
	d := program.Code[pc].Debug
	return d.File, d.Line
}
