// Package compiler lowers the Lua-subset ast package into the bytecode
// the vm package runs, grounded on the teacher's compiler/compiler.go
// Compiler{instructions, constants, scopes, labels, nextTemp, nextLabel}
// shape, adapted from numeric register slots to this backend's symbolic
// string registers.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/AarenWang/haifa-go/ast"
	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
	"github.com/AarenWang/haifa-go/vm"
)

// Compiler holds the state shared across an entire compilation: the
// flat instruction stream (every function's body is laid out inline,
// addressed by label, same as the teacher's single-segment layout),
// the deduplicated constant pool, and the monotonic counters used to
// mint fresh register and label names.
type Compiler struct {
	instructions []opcodes.Instruction
	constants    []*values.Value
	constIndex   map[string]int

	tempSeq  int
	labelSeq int
	funcSeq  int

	scopes map[ast.Node]*scopeInfo
	source string
}

// NewCompiler creates a Compiler; source names the file for debug info.
func NewCompiler(source string) *Compiler {
	return &Compiler{
		constIndex: make(map[string]int),
		source:     source,
	}
}

// Compile lowers a whole chunk into a runnable Program.
func Compile(chunk *ast.Chunk, source string) (*vm.Program, error) {
	return NewCompiler(source).Compile(chunk)
}

func (c *Compiler) Compile(chunk *ast.Chunk) (*vm.Program, error) {
	c.scopes = analyzeScopes(chunk)
	root, ok := c.scopes[chunk]
	if !ok {
		return nil, errAt(chunk.GetPosition(), "internal: no scope info for chunk")
	}
	if err := validateGotos(chunk.Body); err != nil {
		return nil, err
	}

	fs := newFuncState(nil, root, 0)
	fs.name = "main"
	pos := chunk.GetPosition()

	envReg := c.newTemp()
	c.emit(fs, pos, opcodes.OP_LOAD_GLOBALS, envReg, "", "", nil)
	envCell := c.newTemp()
	c.emit(fs, pos, opcodes.OP_MAKE_CELL, envCell, envReg, "", nil)
	fs.localReg[envName] = envCell

	for _, stmt := range chunk.Body {
		if err := c.compileStmt(fs, stmt); err != nil {
			return nil, err
		}
	}
	c.emit(fs, pos, opcodes.OP_RETURN, "", "", "", nil)

	prog := &vm.Program{Code: c.instructions, Constants: c.constants}
	prog.ResolveLabels()
	return prog, nil
}

func (c *Compiler) newTemp() string {
	c.tempSeq++
	return fmt.Sprintf("r%d", c.tempSeq)
}

func (c *Compiler) newLabel(prefix string) string {
	c.labelSeq++
	return fmt.Sprintf("%s_%d", prefix, c.labelSeq)
}

func (c *Compiler) emit(fs *funcState, pos ast.Position, op opcodes.Opcode, a, b, cc string, aux interface{}) {
	c.instructions = append(c.instructions, opcodes.Instruction{
		Op: op, A: a, B: b, C: cc, Aux: aux,
		Debug: opcodes.DebugInfo{File: c.source, Line: pos.Line, Col: pos.Col, Func: fs.name},
	})
}

// addConst deduplicates simple literal constants by their Go-level
// representation; closures, tables and other mutable values are never
// interned here (each LOAD_CONST deep-copies on load, see op_load.go).
func (c *Compiler) addConst(v *values.Value) int {
	var key string
	switch v.Type {
	case values.TypeNil:
		key = "n"
	case values.TypeBool:
		key = fmt.Sprintf("b:%v", v.Data)
	case values.TypeInt:
		key = fmt.Sprintf("i:%v", v.Data)
	case values.TypeFloat:
		key = fmt.Sprintf("f:%v", v.Data)
	case values.TypeString:
		key = fmt.Sprintf("s:%v", v.Data)
	default:
		c.constants = append(c.constants, v)
		return len(c.constants) - 1
	}
	if idx, ok := c.constIndex[key]; ok {
		return idx
	}
	idx := len(c.constants)
	c.constants = append(c.constants, v)
	c.constIndex[key] = idx
	return idx
}

func (c *Compiler) emitConstLoad(fs *funcState, pos ast.Position, v *values.Value) string {
	reg := c.newTemp()
	idx := c.addConst(v)
	c.emit(fs, pos, opcodes.OP_LOAD_CONST, reg, strconv.Itoa(idx), "", nil)
	return reg
}

func (c *Compiler) labelFor(fs *funcState, name string) string {
	return fmt.Sprintf("user_label_%d_%s", fs.id, name)
}

func isMultiCapable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.CallExpr, *ast.VarargExpr:
		return true
	}
	return false
}
