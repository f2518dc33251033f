package vm

import (
	"github.com/google/uuid"

	"github.com/AarenWang/haifa-go/values"
)

// CoroutineRegistry tracks every coroutine created during a run so that
// snapshot() (spec.md §6) can enumerate them regardless of which one is
// currently live. Grounded on the teacher's vm/coroutine_manager.go
// registry-of-all-threads pattern; unlike the teacher's goroutine-backed
// manager this one holds pure data, since scheduling here is cooperative
// state-swapping rather than goroutines.
type CoroutineRegistry struct {
	byID map[uuid.UUID]*values.Coroutine
	order []uuid.UUID
}

func NewCoroutineRegistry() *CoroutineRegistry {
	return &CoroutineRegistry{byID: make(map[uuid.UUID]*values.Coroutine)}
}

func (r *CoroutineRegistry) Register(co *values.Coroutine) {
	if co == nil {
		return
	}
	if _, exists := r.byID[co.ID]; !exists {
		r.order = append(r.order, co.ID)
	}
	r.byID[co.ID] = co
}

func (r *CoroutineRegistry) All() []*values.Coroutine {
	out := make([]*values.Coroutine, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *CoroutineRegistry) Get(id uuid.UUID) *values.Coroutine {
	return r.byID[id]
}

// CreateCoroutine implements coroutine.create: a new suspended coroutine wrapping
// entry, registered for snapshot visibility.
func (v *VirtualMachine) CreateCoroutine(entry *values.Closure) *values.Coroutine {
	co := values.NewCoroutineState(entry)
	co.Function = entry.DisplayName(0)
	v.Coroutines.Register(co)
	return co
}

// Resume implements coroutine.resume (spec.md §4.3): swap the target
// coroutine's saved state into ctx, run until it yields, returns, or
// errors, then swap the caller's state back in.
//
// A coroutine's own call stack implicitly starts at depth 0 on first
// resume, so unlike the literal "push a sentinel frame on every resume"
// reading, the yieldable boundary is simply index 0 of *that
// coroutine's own* CallStackManager: each coroutine owns an independent
// stack, swapped in wholesale, so there is never a foreign frame left
// over from a previous resume to account for.
func (v *VirtualMachine) Resume(ctx *ExecutionContext, co *values.Coroutine, args []*values.Value) (ok bool, results []*values.Value, errVal *values.Value) {
	if co.Status == values.CoroutineDead {
		return false, nil, values.NewString(ErrResumeDead.Error())
	}
	if co.Status != values.CoroutineSuspended {
		return false, nil, values.NewString(ErrResumeNonSuspended.Error())
	}

	caller := ctx.Current
	caller.Status = values.CoroutineNormal
	co.HasParent = true
	co.ParentID = caller.ID

	// Save caller state, install callee state.
	callerFrames, callerRegs, callerPC, callerUpvals, callerPending := ctx.CallStack.GetFrames(), ctx.Registers, ctx.PC, ctx.CurrentUpvalues, ctx.PendingParams

	co.Status = values.CoroutineRunning
	ctx.Current = co
	co.LastResumeArgs = args

	var floorStack *CallStackManager
	if co.SavedFrames == nil && co.Entry != nil {
		// First resume: call the entry closure fresh.
		floorStack = NewCallStackManager()
		ctx.CallStack = floorStack
		ctx.Registers = make(map[string]*values.Value)
		ctx.CurrentUpvalues = co.Entry.Upvalues
		ctx.PendingParams = append([]*values.Value{}, args...)
		label := co.Entry.CodeLabel
		pc, ok := ctx.Program.Labels[label]
		if !ok {
			restoreCaller(ctx, caller, callerFrames, callerRegs, callerPC, callerUpvals, callerPending)
			return false, nil, values.NewString("coroutine entry label not found: " + label)
		}
		ctx.CallStack.PushFrame(&CallFrame{ReturnPC: -1, FunctionLabel: label, FunctionDisplayName: co.Function})
		ctx.PC = pc
	} else {
		ctx.CallStack = framesFromSaved(co.SavedFrames)
		ctx.Registers = regsFromSaved(co.SavedRegisters)
		ctx.PC = co.SavedPC
		ctx.CurrentUpvalues = nil
		ctx.PendingParams = append([]*values.Value{}, args...)
		// The resumed coroutine is sitting right after the CALL_VALUE that
		// invoked coroutine.yield (runLoop already advanced PC past it).
		// That point expects ctx.LastReturn to hold yield()'s return
		// values, which in Lua are whatever this resume() call was passed.
		ctx.LastReturn = append([]*values.Value{}, args...)
	}

	sig, err := v.runLoop(ctx, 0)

	switch sig {
	case sigYielded:
		co.Status = values.CoroutineSuspended
		co.SavedFrames = savedFromFrames(ctx.CallStack.GetFrames())
		co.SavedRegisters = ctx.Registers
		co.SavedPC = ctx.PC
		yv := co.LastYieldValues
		restoreCaller(ctx, caller, callerFrames, callerRegs, callerPC, callerUpvals, callerPending)
		return true, yv, nil
	case sigReturned:
		co.Status = values.CoroutineDead
		rv := ctx.LastReturn
		restoreCaller(ctx, caller, callerFrames, callerRegs, callerPC, callerUpvals, callerPending)
		if err != nil {
			var msg *values.Value
			if rerr, ok := err.(*RuntimeError); ok {
				msg = rerr.Value
			} else {
				msg = values.NewString(err.Error())
			}
			co.LastError = msg
			return false, nil, msg
		}
		return true, rv, nil
	default: // sigHalted
		co.Status = values.CoroutineDead
		restoreCaller(ctx, caller, callerFrames, callerRegs, callerPC, callerUpvals, callerPending)
		return true, nil, nil
	}
}

func restoreCaller(ctx *ExecutionContext, caller *values.Coroutine, frames []*CallFrame, regs map[string]*values.Value, pc int, upvals []*values.Cell, pending []*values.Value) {
	ctx.Current = caller
	caller.Status = values.CoroutineRunning
	ctx.CallStack = NewCallStackManager()
	ctx.CallStack.SetFrames(frames)
	ctx.Registers = regs
	ctx.PC = pc
	ctx.CurrentUpvalues = upvals
	ctx.PendingParams = pending
}

// Yield implements coroutine.yield: suspends the running coroutine and
// returns control to runLoop, which propagates sigYielded up to Resume.
// Forbidden when a foreign (Go-reentrant) frame is on the stack above the
// boundary — CALL_VALUE into pcall or a C-style callback cannot be
// unwound through, per spec.md §4.3.
func (v *VirtualMachine) Yield(ctx *ExecutionContext, vals []*values.Value) error {
	if ctx.Current.IsMain {
		return ErrYieldFromMain
	}
	if ctx.CallStack.HasForeignSince(0) {
		return ErrYieldAcrossForeign
	}
	ctx.Current.LastYieldValues = vals
	return &yieldSignal{}
}

// yieldSignal is coroutine.yield's way of telling opCallValue's foreign
// dispatch "stop the runLoop, this was a real yield" rather than "an
// error occurred" — coroutine.yield is an ordinary Foreign function and
// Foreign.Fn can only communicate through (results, error), so the
// opOutcome it needs (outcomeYielded) travels as a distinguishable error
// type that opCallValue recognizes and unwraps.
type yieldSignal struct{}

func (*yieldSignal) Error() string { return "coroutine yielded" }

// IsYieldSignal lets op_call.go's CALL_VALUE foreign-call handling
// recognize a yield without stdlib needing to import unexported types.
func IsYieldSignal(err error) bool {
	_, ok := err.(*yieldSignal)
	return ok
}

func savedFromFrames(frames []*CallFrame) []interface{} {
	out := make([]interface{}, len(frames))
	for i, f := range frames {
		out[i] = f
	}
	return out
}

func framesFromSaved(saved []interface{}) *CallStackManager {
	cs := NewCallStackManager()
	frames := make([]*CallFrame, len(saved))
	for i, s := range saved {
		frames[i] = s.(*CallFrame)
	}
	cs.SetFrames(frames)
	return cs
}

func regsFromSaved(saved interface{}) map[string]*values.Value {
	if saved == nil {
		return make(map[string]*values.Value)
	}
	return saved.(map[string]*values.Value)
}

// Status implements coroutine.status relative to the currently running
// coroutine (a coroutine looking at itself reports "running", not
// "normal").
func Status(ctx *ExecutionContext, co *values.Coroutine) values.CoroutineStatus {
	if co == ctx.Current {
		return values.CoroutineRunning
	}
	return co.Status
}

// IsYieldable reports whether ctx.Current can yield right now.
func IsYieldable(ctx *ExecutionContext) bool {
	if ctx.Current.IsMain {
		return false
	}
	return !ctx.CallStack.HasForeignSince(0)
}

// Close implements coroutine.close: forces a suspended or dead coroutine
// to dead, discarding its saved state. Running/normal coroutines cannot
// be closed.
func Close(co *values.Coroutine) (bool, *values.Value) {
	if co.Status == values.CoroutineRunning || co.Status == values.CoroutineNormal {
		return false, values.NewString("cannot close a running coroutine")
	}
	co.Status = values.CoroutineDead
	co.SavedFrames = nil
	co.SavedRegisters = nil
	return true, nil
}
