// Package vm implements the register-based bytecode virtual machine:
// execution loop, call frames, closures/upvalues, metamethod dispatch,
// and cooperative coroutine scheduling, grounded on the teacher's
// vm.VirtualMachine/CallStackManager shape (vm/vm.go, vm/call_stack.go).
package vm

import (
	"fmt"

	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

// DebugLevel controls the verbosity of runtime diagnostics collected,
// grounded on the teacher's vm.DebugLevel.
type DebugLevel int

const (
	DebugLevelNone DebugLevel = iota
	DebugLevelInstructions
	DebugLevelCoroutine
	DebugLevelAll
)

// VirtualMachine is the bytecode interpreter. It holds configuration and
// instrumentation; all per-run mutable state lives in ExecutionContext so
// that one VirtualMachine can drive many independent runs.
type VirtualMachine struct {
	DebugLevel  DebugLevel
	breakpoints map[int]struct{}
	watchVars   map[string]struct{}

	MaxMetamethodDepth int // __index/__newindex chain depth guard, default 200

	Coroutines *CoroutineRegistry
}

func NewVirtualMachine() *VirtualMachine {
	return &VirtualMachine{
		breakpoints:        make(map[int]struct{}),
		watchVars:          make(map[string]struct{}),
		MaxMetamethodDepth: 200,
		Coroutines:         NewCoroutineRegistry(),
	}
}

func NewVirtualMachineWithDebugLevel(level DebugLevel) *VirtualMachine {
	v := NewVirtualMachine()
	v.DebugLevel = level
	return v
}

func (v *VirtualMachine) SetBreakpoint(pc int) { v.breakpoints[pc] = struct{}{} }
func (v *VirtualMachine) WatchVariable(name string) {
	if name != "" {
		v.watchVars[name] = struct{}{}
	}
}

// execSignal is the reason runLoop stopped.
type execSignal int

const (
	sigReturned execSignal = iota // stack depth reached the floor
	sigHalted
	sigYielded
)

// Execute runs program on the main thread from scratch and returns the
// accumulated output and last top-level return values, per spec.md §6
// run(program, {args?, env?}).
func (v *VirtualMachine) Execute(program *Program, args []*values.Value, globals *values.Table) (*ExecutionContext, error) {
	program.ResolveLabels()
	ctx := NewExecutionContext(program, globals)
	ctx.BindVM(v)
	if v.DebugLevel == DebugLevelInstructions || v.DebugLevel == DebugLevelAll {
		ctx.EnableEvents()
	}
	ctx.PendingParams = append(ctx.PendingParams, args...)
	v.Coroutines.Register(ctx.Main)
	// The main chunk gets a bottom frame of its own (ReturnPC -1), the
	// same way a coroutine's entry call does, so runLoop runs until it
	// returns.
	ctx.CallStack.PushFrame(&CallFrame{ReturnPC: -1, FunctionLabel: "main", FunctionDisplayName: "main"})

	sig, err := v.runLoop(ctx, 0)
	if err != nil {
		return ctx, err
	}
	if sig == sigYielded {
		return ctx, &VMError{Type: ErrYieldFromMain, Message: "top-level program yielded"}
	}
	return ctx, nil
}

// runLoop is the fetch/execute cycle of spec.md §4.2. It runs until the
// call stack depth returns to floor (the function that was active when
// this invocation started has returned), HALT executes, a yield signal
// propagates out (only possible when the running coroutine is not
// shielded by an is_foreign frame), or an unrecovered error occurs.
func (v *VirtualMachine) runLoop(ctx *ExecutionContext, floor int) (execSignal, error) {
	for {
		if ctx.Halted {
			return sigHalted, nil
		}
		if ctx.CallStack.Depth() <= floor {
			return sigReturned, nil
		}
		if ctx.PC < 0 || ctx.PC >= len(ctx.Program.Code) {
			return sigReturned, &VMError{Type: ErrInvalidInstruction, Message: fmt.Sprintf("pc %d out of range", ctx.PC)}
		}
		instr := &ctx.Program.Code[ctx.PC]

		if ctx.events.watching {
			ctx.emit(Event{Kind: EventInstructionStep, PC: ctx.PC, Opcode: instr.Op.String()})
		}

		handler, ok := dispatch[instr.Op]
		if !ok {
			return sigReturned, &VMError{Type: ErrOpcodeNotImplemented, Opcode: instr.Op, IP: ctx.PC}
		}

		outcome, err := handler(v, ctx, instr)
		if err != nil {
			rerr, handled, herr := v.unwindToHandler(ctx, floor, err)
			if herr != nil {
				return sigReturned, herr
			}
			if !handled {
				return sigReturned, rerr
			}
			continue
		}

		switch outcome {
		case outcomeYielded:
			// Advance past the CALL_VALUE that invoked coroutine.yield so
			// that resuming continues at the following RESULT*/ARG
			// instruction, which will read the next resume()'s arguments
			// back out of ctx.LastReturn as yield()'s return values.
			ctx.PC++
			return sigYielded, nil
		case outcomeHalted:
			return sigHalted, nil
		case outcomeJumped:
			// PC already set by the handler.
		default:
			ctx.PC++
		}
	}
}

// unwindToHandler turns a Go error from an opcode handler into a
// RuntimeError (attaching a traceback, spec.md §4.7), and reports
// whether it was silently absorbed (it never is at this layer — pcall
// absorption happens inside the "pcall" foreign function via CallValue,
// not here; this layer always propagates). Kept as a seam so CallValue's
// nested runLoop invocations can intercept differently in the future
// without touching the main loop.
func (v *VirtualMachine) unwindToHandler(ctx *ExecutionContext, floor int, err error) (error, bool, error) {
	rerr, ok := err.(*RuntimeError)
	if !ok {
		rerr = NewRuntimeError(values.NewString(err.Error()))
	}
	if rerr.Traceback == "" {
		rerr.Traceback = v.formatTraceback(ctx)
	}
	return rerr, false, nil
}

type opOutcome int

const (
	outcomeNormal opOutcome = iota
	outcomeJumped
	outcomeYielded
	outcomeHalted
)

type opHandler func(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error)

var dispatch = map[opcodes.Opcode]opHandler{}

func register(op opcodes.Opcode, h opHandler) {
	dispatch[op] = h
}
