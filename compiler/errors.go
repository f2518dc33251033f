package compiler

import (
	"fmt"

	"github.com/AarenWang/haifa-go/ast"
)

// CompileError is a static error raised while lowering the AST to
// bytecode: an ill-formed goto, a malformed assignment target. A goto to
// a label that does not exist is not reported here; it surfaces at run
// time as ErrLabelNotFound. Mirrors the teacher's VMError{Type, Message}
// shape, generalized with a source Position since compile errors are
// reported before any instruction carries a runtime IP.
type CompileError struct {
	Message string
	Pos     ast.Position
}

func (e *CompileError) Error() string {
	if e.Pos.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s:%d: %s", e.Pos.File, e.Pos.Line, e.Message)
}

func errAt(pos ast.Position, format string, args ...interface{}) error {
	return &CompileError{Message: fmt.Sprintf(format, args...), Pos: pos}
}
