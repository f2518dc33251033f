package vm

import (
	"github.com/google/uuid"

	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

// Program is the compiled output consumed by the VM: a flat instruction
// vector shared by every function (labels mark entry points), its
// constant pool, and the resolved label->PC table. This is spec.md §6's
// compile() result shape.
type Program struct {
	Code      []opcodes.Instruction
	Labels    map[string]int
	Constants []*values.Value
}

// ResolveLabels scans Code for OP_LABEL markers and fills Labels,
// mirroring how the teacher's loader resolves jump targets once at load
// time rather than per-jump.
func (p *Program) ResolveLabels() {
	if p.Labels == nil {
		p.Labels = make(map[string]int)
	}
	for pc, instr := range p.Code {
		if instr.Op == opcodes.OP_LABEL {
			p.Labels[instr.A] = pc
		}
	}
}

// ExecutionContext owns all of the VM's mutable execution state for the
// currently-live coroutine (or the main thread), per spec.md §4.2: the
// register file, pending-parameter queue, last-return buffer, data
// stack, call stack, current upvalue list, current coroutine, event
// buffer, output list, halt flag.
type ExecutionContext struct {
	Program *Program
	PC      int

	Registers       map[string]*values.Value
	PendingParams   []*values.Value
	LastReturn      []*values.Value
	DataStack       []*values.Value
	CallStack       *CallStackManager
	CurrentUpvalues []*values.Cell

	Globals *values.Table

	Main    *values.Coroutine
	Current *values.Coroutine // the coroutine (or Main) presently executing

	events       *eventBuffer
	OutputBuffer []*values.Value
	Halted       bool

	// PendingError carries a raised Lua error value across the call
	// stack unwind; checked by the runLoop after every instruction.
	PendingError *RuntimeError

	// vmRef lets ExecutionContext satisfy values.VM (Output/Raise/
	// CallValue) by delegating reentrant calls back to the owning
	// VirtualMachine, which holds the dispatch table and metamethod
	// configuration.
	vmRef *VirtualMachine
}

// NewExecutionContext creates a fresh top-level (main-thread) execution
// context for a program.
func NewExecutionContext(program *Program, globals *values.Table) *ExecutionContext {
	if globals == nil {
		globals = values.NewEmptyTable()
	}
	main := values.NewMainCoroutine()
	return &ExecutionContext{
		Program:   program,
		Registers: make(map[string]*values.Value),
		CallStack: NewCallStackManager(),
		Globals:   globals,
		Main:      main,
		Current:   main,
		events:    newEventBuffer(),
	}
}

// BindVM records the owning VirtualMachine so foreign functions invoked
// through this context can reenter the VM (CallValue) or raise Lua
// errors (Raise).
func (ctx *ExecutionContext) BindVM(v *VirtualMachine) { ctx.vmRef = v }

// VM and Context let ExecutionContext satisfy stdlib's coroutineHost
// interface directly: foreign functions only see the values.VM
// surface, but the coroutine library needs to reach back into the
// scheduler (CreateCoroutine/Resume/Yield) and the context itself, so
// it type-asserts its values.VM argument to a small interface these
// two methods complete.
func (ctx *ExecutionContext) VM() *VirtualMachine        { return ctx.vmRef }
func (ctx *ExecutionContext) Context() *ExecutionContext { return ctx }

// Raise implements values.VM: builds a RuntimeError from v for the
// caller (typically a foreign function validating its arguments) to
// return, matching spec.md §4.5's "errors are values".
func (ctx *ExecutionContext) Raise(v *values.Value) error {
	return NewRuntimeError(v)
}

// CallValue implements values.VM: reentrant call from a foreign function
// back into a Lua (or another foreign) value, e.g. table.sort's
// comparator or pcall's protected function.
func (ctx *ExecutionContext) CallValue(callee *values.Value, args []*values.Value) ([]*values.Value, error) {
	if ctx.vmRef == nil {
		return nil, ErrNilContext
	}
	return ctx.vmRef.CallValue(ctx, callee, args)
}

func (ctx *ExecutionContext) GetReg(name string) *values.Value {
	if name == "" {
		return values.NewNil()
	}
	if v, ok := ctx.Registers[name]; ok && v != nil {
		return v
	}
	return values.NewNil()
}

func (ctx *ExecutionContext) SetReg(name string, v *values.Value) {
	if name == "" {
		return
	}
	if v == nil {
		v = values.NewNil()
	}
	ctx.Registers[name] = v
}

// EnableEvents turns on event emission. Cheap to call repeatedly.
func (ctx *ExecutionContext) EnableEvents() { ctx.events.Enable() }

// DrainEvents returns and clears the accumulated event buffer (spec.md
// §6 drain_events()).
func (ctx *ExecutionContext) DrainEvents() []Event { return ctx.events.Drain() }

func (ctx *ExecutionContext) emit(ev Event) {
	ev.CoroutineID = ctx.Current.ID
	ctx.events.emit(ev)
}

// Output implements values.VM: PRINT appends to the output buffer.
func (ctx *ExecutionContext) Output(v *values.Value) {
	ctx.OutputBuffer = append(ctx.OutputBuffer, v)
}

// CoroutineSnapshot is one entry of snapshot()'s coroutine list (spec.md
// §6).
type CoroutineSnapshot struct {
	ID       uuid.UUID
	Status   values.CoroutineStatus
	IsMain   bool
	Function string
}

// Snapshot implements spec.md §6's snapshot() external interface.
type Snapshot struct {
	Coroutines       []CoroutineSnapshot
	PC               int
	CurrentCoroutine uuid.UUID
	StackDepth       int
}

func (ctx *ExecutionContext) Snapshot(registry *CoroutineRegistry) Snapshot {
	snap := Snapshot{PC: ctx.PC, CurrentCoroutine: ctx.Current.ID, StackDepth: ctx.CallStack.Depth()}
	if registry != nil {
		for _, co := range registry.All() {
			snap.Coroutines = append(snap.Coroutines, CoroutineSnapshot{
				ID: co.ID, Status: co.Status, IsMain: co.IsMain, Function: co.Function,
			})
		}
	}
	return snap
}
