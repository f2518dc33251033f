package compiler

import (
	"fmt"
	"strconv"

	"github.com/AarenWang/haifa-go/ast"
	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
	"github.com/AarenWang/haifa-go/vm"
)

func (c *Compiler) compileExpr(fs *funcState, e ast.Expr) (string, error) {
	pos := e.GetPosition()
	switch n := e.(type) {
	case *ast.Identifier:
		return c.compileIdentRead(fs, n.Name, pos)
	case *ast.Literal:
		return c.compileLiteral(fs, n), nil
	case *ast.VarargExpr:
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_VARARG_FIRST, reg, "", "", nil)
		return reg, nil
	case *ast.BinaryExpr:
		return c.compileBinary(fs, n)
	case *ast.UnaryExpr:
		return c.compileUnary(fs, n)
	case *ast.IndexExpr:
		tableReg, err := c.compileExpr(fs, n.Table)
		if err != nil {
			return "", err
		}
		keyReg, err := c.compileExpr(fs, n.Key)
		if err != nil {
			return "", err
		}
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_TABLE_GET, reg, tableReg, keyReg, nil)
		return reg, nil
	case *ast.FieldExpr:
		tableReg, err := c.compileExpr(fs, n.Table)
		if err != nil {
			return "", err
		}
		keyReg := c.emitConstLoad(fs, pos, values.NewString(n.Name))
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_TABLE_GET, reg, tableReg, keyReg, nil)
		return reg, nil
	case *ast.CallExpr:
		if err := c.compileCall(fs, n); err != nil {
			return "", err
		}
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_RESULT, reg, "", "", nil)
		return reg, nil
	case *ast.TableConstructor:
		return c.compileTableConstructor(fs, n)
	case *ast.FunctionExpr:
		return c.compileFunctionExpr(fs, n)
	default:
		return "", errAt(pos, "unsupported expression kind %v", e.GetKind())
	}
}

// compileMultiExpr compiles an expression that can yield more than one
// value in its current context (the last position of an arg/return/
// table-constructor list) into a register holding a TypeList value.
func (c *Compiler) compileMultiExpr(fs *funcState, e ast.Expr) (string, error) {
	pos := e.GetPosition()
	switch n := e.(type) {
	case *ast.CallExpr:
		if err := c.compileCall(fs, n); err != nil {
			return "", err
		}
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_RESULT_LIST, reg, "", "", nil)
		return reg, nil
	case *ast.VarargExpr:
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_VARARG, reg, "", "", nil)
		return reg, nil
	default:
		return "", errAt(pos, "internal: compileMultiExpr called on a single-value expression")
	}
}

func (c *Compiler) compileLiteral(fs *funcState, lit *ast.Literal) string {
	pos := lit.GetPosition()
	switch lit.Kind {
	case ast.LitNil:
		return c.emitConstLoad(fs, pos, values.NewNil())
	case ast.LitBool:
		return c.emitConstLoad(fs, pos, values.NewBool(lit.Bool))
	case ast.LitInt:
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_LOAD_IMM, reg, strconv.FormatInt(lit.Int, 10), "", lit.Int)
		return reg
	case ast.LitFloat:
		return c.emitConstLoad(fs, pos, values.NewFloat(lit.Float))
	case ast.LitString:
		return c.emitConstLoad(fs, pos, values.NewString(lit.Str))
	default:
		return c.emitConstLoad(fs, pos, values.NewNil())
	}
}

func (c *Compiler) compileIdentRead(fs *funcState, name string, pos ast.Position) (string, error) {
	r := fs.resolve(name)
	switch r.kind {
	case refLocal:
		return r.reg, nil
	case refCell:
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_CELL_GET, reg, r.reg, "", nil)
		return reg, nil
	default:
		envReg, err := c.materializeEnv(fs, pos)
		if err != nil {
			return "", err
		}
		keyReg := c.emitConstLoad(fs, pos, values.NewString(name))
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_TABLE_GET, reg, envReg, keyReg, nil)
		return reg, nil
	}
}

var binaryOpcodes = map[string]opcodes.Opcode{
	"+": opcodes.OP_ADD, "-": opcodes.OP_SUB, "*": opcodes.OP_MUL,
	"/": opcodes.OP_DIV, "//": opcodes.OP_IDIV, "%": opcodes.OP_MOD,
	"^": opcodes.OP_POW, "..": opcodes.OP_CONCAT,
	"==": opcodes.OP_EQ, "<": opcodes.OP_LT, ">": opcodes.OP_GT,
	"&": opcodes.OP_AND_BIT, "|": opcodes.OP_OR_BIT, "~": opcodes.OP_XOR,
	"<<": opcodes.OP_SHL, ">>": opcodes.OP_SHR,
}

// negatedBinaryOpcodes covers the comparisons with no direct opcode,
// each computed as NOT of its mirror (a~=b is !(a==b), a<=b is !(b<a),
// a>=b is !(a<b)).
var negatedBinaryOpcodes = map[string]opcodes.Opcode{
	"~=": opcodes.OP_EQ, "<=": opcodes.OP_GT, ">=": opcodes.OP_LT,
}

func (c *Compiler) compileBinary(fs *funcState, n *ast.BinaryExpr) (string, error) {
	pos := n.GetPosition()
	if n.Op == "and" || n.Op == "or" {
		return c.compileShortCircuit(fs, n)
	}
	left, err := c.compileExpr(fs, n.Left)
	if err != nil {
		return "", err
	}
	right, err := c.compileExpr(fs, n.Right)
	if err != nil {
		return "", err
	}
	if op, ok := binaryOpcodes[n.Op]; ok {
		reg := c.newTemp()
		c.emit(fs, pos, op, reg, left, right, nil)
		return reg, nil
	}
	if op, ok := negatedBinaryOpcodes[n.Op]; ok {
		tmp := c.newTemp()
		c.emit(fs, pos, op, tmp, left, right, nil)
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_NOT, reg, tmp, "", nil)
		return reg, nil
	}
	return "", errAt(pos, "unsupported binary operator %q", n.Op)
}

// compileShortCircuit implements and/or with branches rather than the
// value-level AND/OR opcodes, so the right operand's side effects only
// run when the left operand doesn't already decide the result.
func (c *Compiler) compileShortCircuit(fs *funcState, n *ast.BinaryExpr) (string, error) {
	pos := n.GetPosition()
	left, err := c.compileExpr(fs, n.Left)
	if err != nil {
		return "", err
	}
	result := c.newTemp()
	c.emit(fs, pos, opcodes.OP_MOV, result, left, "", nil)
	skip := c.newLabel("shortcirc")
	if n.Op == "and" {
		c.emit(fs, pos, opcodes.OP_JZ, result, skip, "", nil)
	} else {
		c.emit(fs, pos, opcodes.OP_JNZ, result, skip, "", nil)
	}
	right, err := c.compileExpr(fs, n.Right)
	if err != nil {
		return "", err
	}
	c.emit(fs, pos, opcodes.OP_MOV, result, right, "", nil)
	c.emit(fs, pos, opcodes.OP_LABEL, skip, "", "", nil)
	return result, nil
}

func (c *Compiler) compileUnary(fs *funcState, n *ast.UnaryExpr) (string, error) {
	pos := n.GetPosition()
	operand, err := c.compileExpr(fs, n.Operand)
	if err != nil {
		return "", err
	}
	reg := c.newTemp()
	switch n.Op {
	case "-":
		c.emit(fs, pos, opcodes.OP_NEG, reg, operand, "", nil)
	case "not":
		c.emit(fs, pos, opcodes.OP_NOT, reg, operand, "", nil)
	case "#":
		c.emit(fs, pos, opcodes.OP_LEN, reg, operand, "", nil)
	case "~":
		c.emit(fs, pos, opcodes.OP_NOT_BIT, reg, operand, "", nil)
	default:
		return "", errAt(pos, "unsupported unary operator %q", n.Op)
	}
	return reg, nil
}

func (c *Compiler) compileCall(fs *funcState, call *ast.CallExpr) error {
	pos := call.GetPosition()
	calleeReg, err := c.compileExpr(fs, call.Callee)
	if err != nil {
		return err
	}
	for i, a := range call.Args {
		isLast := i == len(call.Args)-1
		if isLast && isMultiCapable(a) {
			listReg, err := c.compileMultiExpr(fs, a)
			if err != nil {
				return err
			}
			c.emit(fs, pos, opcodes.OP_PARAM_EXPAND, listReg, "", "", nil)
			continue
		}
		argReg, err := c.compileExpr(fs, a)
		if err != nil {
			return err
		}
		c.emit(fs, pos, opcodes.OP_PARAM, argReg, "", "", nil)
	}
	c.emit(fs, pos, opcodes.OP_CALL_VALUE, calleeReg, "", "", nil)
	return nil
}

func (c *Compiler) compileTableConstructor(fs *funcState, n *ast.TableConstructor) (string, error) {
	pos := n.GetPosition()
	reg := c.newTemp()
	c.emit(fs, pos, opcodes.OP_TABLE_NEW, reg, "", "", nil)
	for i, f := range n.Fields {
		isLast := i == len(n.Fields)-1
		if f.Key == nil {
			if isLast && isMultiCapable(f.Value) {
				listReg, err := c.compileMultiExpr(fs, f.Value)
				if err != nil {
					return "", err
				}
				c.emit(fs, pos, opcodes.OP_TABLE_EXTEND, reg, listReg, "", nil)
				continue
			}
			valReg, err := c.compileExpr(fs, f.Value)
			if err != nil {
				return "", err
			}
			c.emit(fs, pos, opcodes.OP_TABLE_APPEND, reg, valReg, "", nil)
			continue
		}
		keyReg, err := c.compileExpr(fs, f.Key)
		if err != nil {
			return "", err
		}
		valReg, err := c.compileExpr(fs, f.Value)
		if err != nil {
			return "", err
		}
		c.emit(fs, pos, opcodes.OP_TABLE_SET, reg, keyReg, valReg, nil)
	}
	return reg, nil
}

func (c *Compiler) compileFunctionExpr(fs *funcState, n *ast.FunctionExpr) (string, error) {
	pos := n.GetPosition()
	childInfo, ok := c.scopes[n]
	if !ok {
		return "", errAt(pos, "internal: no scope info for function literal")
	}
	if err := validateGotos(n.Body.Body); err != nil {
		return "", err
	}

	c.funcSeq++
	id := c.funcSeq
	child := newFuncState(fs, childInfo, id)
	if n.Name != "" {
		child.name = n.Name
	} else {
		child.name = fmt.Sprintf("<anonymous:%d>", id)
	}

	bodyLabel := fmt.Sprintf("func_%d", id)
	resumeLabel := fmt.Sprintf("func_%d_resume", id)

	c.emit(fs, pos, opcodes.OP_JMP, resumeLabel, "", "", nil)
	c.emit(fs, pos, opcodes.OP_LABEL, bodyLabel, "", "", nil)

	for i, name := range childInfo.external {
		reg := c.newTemp()
		c.emit(child, pos, opcodes.OP_BIND_UPVALUE, reg, strconv.Itoa(i), "", nil)
		child.upvalueReg[name] = reg
	}
	for _, p := range n.Params {
		reg := c.newTemp()
		c.emit(child, pos, opcodes.OP_ARG, reg, "", "", nil)
		if childInfo.captured[p] {
			cellReg := c.newTemp()
			c.emit(child, pos, opcodes.OP_MAKE_CELL, cellReg, reg, "", nil)
			child.localReg[p] = cellReg
		} else {
			child.localReg[p] = reg
		}
	}

	if err := c.compileBlock(child, n.Body); err != nil {
		return "", err
	}
	c.emit(child, pos, opcodes.OP_RETURN, "", "", "", nil)
	c.emit(fs, pos, opcodes.OP_LABEL, resumeLabel, "", "", nil)

	cells := make([]string, len(childInfo.external))
	for i, name := range childInfo.external {
		cells[i] = sourceRegIn(fs, name)
	}
	dst := c.newTemp()
	aux := vm.ClosureAux{Cells: cells, ParamCount: len(n.Params), IsVararg: n.IsVararg, Name: child.name}
	c.emit(fs, pos, opcodes.OP_CLOSURE, dst, bodyLabel, "", aux)
	return dst, nil
}
