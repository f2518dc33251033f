package values

import "github.com/google/uuid"

// CoroutineStatus is the Lua-visible status of a coroutine.
type CoroutineStatus string

const (
	CoroutineSuspended CoroutineStatus = "suspended"
	CoroutineRunning   CoroutineStatus = "running"
	CoroutineNormal    CoroutineStatus = "normal"
	CoroutineDead      CoroutineStatus = "dead"
)

// SavedFrame and SavedRegisters are opaque to package values: the vm
// package owns their concrete shape (vm.CallFrame, a register map) and
// stores them here as interface{} to avoid an import cycle. The
// scheduler in vm/coroutine.go is the only code that type-asserts them
// back.
type Coroutine struct {
	ID       uuid.UUID
	Status   CoroutineStatus
	Entry    *Closure
	IsMain   bool
	Function string // display name, for tracebacks

	SavedFrames    []interface{} // []*vm.CallFrame snapshot while suspended
	SavedRegisters interface{}   // map[string]*Value snapshot while suspended
	SavedPC        int

	LastResumeArgs  []*Value
	LastYieldValues []*Value
	LastError       *Value

	ParentID uuid.UUID
	HasParent bool
}

// NewCoroutineState allocates a fresh suspended Coroutine wrapping
// entry. Named distinctly from value.go's NewCoroutine (which wraps an
// already-existing *Coroutine into a *Value, matching NewClosure/
// NewTable/NewForeign's pattern) to keep the two constructors apart.
func NewCoroutineState(entry *Closure) *Coroutine {
	return &Coroutine{
		ID:     uuid.New(),
		Status: CoroutineSuspended,
		Entry:  entry,
	}
}

func NewMainCoroutine() *Coroutine {
	return &Coroutine{
		ID:     uuid.New(),
		Status: CoroutineRunning,
		IsMain: true,
	}
}
