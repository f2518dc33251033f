package vm

import "github.com/AarenWang/haifa-go/values"

// CallFrame is one activation record, per spec.md §3's "Call Frame":
// return address, saved registers/upvalues, and enough bookkeeping to
// render a traceback line. The currently executing source position for a
// frame is never stored directly; it is recovered from ReturnPC (the
// instruction immediately after the CALL that suspended the frame one
// level up) at traceback time — see FrameSourceLocation in callvalue.go.
type CallFrame struct {
	ReturnPC            int
	SavedRegisters      map[string]*values.Value
	SavedUpvalues       []*values.Cell
	FunctionLabel       string
	FunctionDisplayName string
	IsForeign           bool
}

// CallStackManager owns the stack of activation records for the
// currently-live coroutine (or the main thread), grounded on the
// teacher's vm/call_stack.go CallStackManager (push/pop/current/depth),
// minus the mutex: the VM is single-threaded per spec.md §5, so a
// coroutine's call stack is never touched concurrently.
type CallStackManager struct {
	frames []*CallFrame
}

func NewCallStackManager() *CallStackManager {
	return &CallStackManager{frames: make([]*CallFrame, 0, 8)}
}

func (cs *CallStackManager) PushFrame(frame *CallFrame) {
	cs.frames = append(cs.frames, frame)
}

func (cs *CallStackManager) PopFrame() *CallFrame {
	if len(cs.frames) == 0 {
		return nil
	}
	idx := len(cs.frames) - 1
	frame := cs.frames[idx]
	cs.frames = cs.frames[:idx]
	return frame
}

func (cs *CallStackManager) CurrentFrame() *CallFrame {
	if len(cs.frames) == 0 {
		return nil
	}
	return cs.frames[len(cs.frames)-1]
}

func (cs *CallStackManager) Depth() int { return len(cs.frames) }

func (cs *CallStackManager) IsEmpty() bool { return len(cs.frames) == 0 }

// GetFrames returns a copy of all frames, innermost last, for traceback
// walking and for coroutine state capture.
func (cs *CallStackManager) GetFrames() []*CallFrame {
	frames := make([]*CallFrame, len(cs.frames))
	copy(frames, cs.frames)
	return frames
}

// SetFrames replaces the stack wholesale — used when a coroutine resumes
// and installs its saved frames as the live stack.
func (cs *CallStackManager) SetFrames(frames []*CallFrame) {
	cs.frames = frames
}

func (cs *CallStackManager) Clear() {
	cs.frames = cs.frames[:0]
}

// HasForeignSince reports whether any frame above (more recent than)
// boundary is marked IsForeign — the yieldable check from spec.md §4.3.
func (cs *CallStackManager) HasForeignSince(boundary int) bool {
	for i := boundary; i < len(cs.frames); i++ {
		if cs.frames[i].IsForeign {
			return true
		}
	}
	return false
}
