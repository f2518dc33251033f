package vm

import (
	"errors"
	"fmt"

	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

// Pre-defined VM error types for consistent error handling, grounded on
// the teacher's vm/errors.go sentinel-error list.
var (
	// Operand errors
	ErrConstantOutOfRange = errors.New("constant index out of range")
	ErrInvalidOperandType = errors.New("invalid operand type")
	ErrUnsupportedOperand = errors.New("unsupported operand type")

	// Instruction errors
	ErrOpcodeNotImplemented = errors.New("opcode not implemented")
	ErrInvalidInstruction   = errors.New("invalid instruction")

	// Arithmetic errors (spec.md §7 ArithmeticError)
	ErrDivisionByZero    = errors.New("attempt to perform 'n%0'")
	ErrInvalidArithmetic = errors.New("attempt to perform arithmetic on incompatible values")

	// Variable/register errors
	ErrVariableNotFound = errors.New("register not found")
	ErrLabelNotFound    = errors.New("label not found")

	// Type errors (spec.md §7 TypeError)
	ErrNotCallable    = errors.New("attempt to call a non-function value")
	ErrNotIndexable   = errors.New("attempt to index a non-table value")
	ErrNoMetamethod   = errors.New("attempt to perform operation with no metamethod")
	ErrMetamethodDepth = errors.New("'__index' chain too long; possible loop")

	// Concurrency errors (spec.md §7 ConcurrencyError)
	ErrResumeDead          = errors.New("cannot resume dead coroutine")
	ErrResumeNonSuspended  = errors.New("cannot resume non-suspended coroutine")
	ErrYieldAcrossForeign  = errors.New("attempt to yield across a C-call boundary")
	ErrYieldFromMain       = errors.New("attempt to yield from outside a coroutine")

	// Call stack errors
	ErrCallStackEmpty = errors.New("call stack is empty")

	// Context errors
	ErrNilContext      = errors.New("nil execution context")
	ErrHaltedExecution = errors.New("execution halted")
)

// VMError wraps a sentinel error with additional execution context,
// mirroring the teacher's VMError{Type, Message, Context, Frame, Opcode,
// IP} wrapper.
type VMError struct {
	Type    error
	Message string
	Context string
	Frame   *CallFrame
	Opcode  opcodes.Opcode
	IP      int
}

func (e *VMError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("vm error in %s: %s: %s", e.Context, e.Type.Error(), e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("vm error: %s: %s", e.Type.Error(), e.Message)
	}
	return fmt.Sprintf("vm error: %s", e.Type.Error())
}

func (e *VMError) Unwrap() error { return e.Type }

// RuntimeError is a raised Lua error value, per spec.md §4.5: "Errors are
// values... but any value is allowed". Traceback is attached once the
// error escapes the innermost frame that can catch it (see
// luadebug.Format and coroutine resume handling).
type RuntimeError struct {
	Value      *values.Value
	Traceback  string
}

func NewRuntimeError(v *values.Value) *RuntimeError {
	return &RuntimeError{Value: v}
}

func (e *RuntimeError) Error() string {
	msg := e.Value.ToDisplayString()
	if e.Traceback != "" {
		return msg + "\n" + e.Traceback
	}
	return msg
}
