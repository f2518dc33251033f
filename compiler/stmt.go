package compiler

import (
	"strconv"

	"github.com/AarenWang/haifa-go/ast"
	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func (c *Compiler) compileBlock(fs *funcState, b *ast.Block) error {
	for _, stmt := range b.Body {
		if err := c.compileStmt(fs, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(fs *funcState, stmt ast.Stmt) error {
	pos := stmt.GetPosition()
	switch n := stmt.(type) {
	case *ast.LocalStmt:
		return c.compileLocalStmt(fs, n)
	case *ast.AssignStmt:
		return c.compileAssignStmt(fs, n)
	case *ast.NumericForStmt:
		return c.compileNumericFor(fs, n)
	case *ast.GenericForStmt:
		return c.compileGenericFor(fs, n)
	case *ast.WhileStmt:
		return c.compileWhile(fs, n)
	case *ast.RepeatStmt:
		return c.compileRepeat(fs, n)
	case *ast.IfStmt:
		return c.compileIf(fs, n)
	case *ast.GotoStmt:
		c.emit(fs, pos, opcodes.OP_JMP, c.labelFor(fs, n.Label), "", "", nil)
		return nil
	case *ast.LabelStmt:
		c.emit(fs, pos, opcodes.OP_LABEL, c.labelFor(fs, n.Name), "", "", nil)
		return nil
	case *ast.ReturnStmt:
		return c.compileReturn(fs, n)
	case *ast.BreakStmt:
		label, ok := fs.currentBreakLabel()
		if !ok {
			return errAt(pos, "break outside a loop")
		}
		c.emit(fs, pos, opcodes.OP_JMP, label, "", "", nil)
		return nil
	case *ast.ExprStmt:
		if call, ok := n.X.(*ast.CallExpr); ok {
			return c.compileCall(fs, call)
		}
		_, err := c.compileExpr(fs, n.X)
		return err
	case *ast.Block:
		return c.compileBlock(fs, n)
	default:
		return errAt(pos, "unsupported statement kind %v", stmt.GetKind())
	}
}

func (c *Compiler) compileLocalStmt(fs *funcState, n *ast.LocalStmt) error {
	pos := n.GetPosition()
	regs, err := c.compileExprList(fs, n.Exprs, len(n.Names), pos)
	if err != nil {
		return err
	}
	for i, name := range n.Names {
		if fs.info.captured[name] {
			cellReg := c.newTemp()
			c.emit(fs, pos, opcodes.OP_MAKE_CELL, cellReg, regs[i], "", nil)
			fs.localReg[name] = cellReg
		} else {
			fs.localReg[name] = regs[i]
		}
	}
	return nil
}

func (c *Compiler) compileAssignStmt(fs *funcState, n *ast.AssignStmt) error {
	pos := n.GetPosition()
	regs, err := c.compileExprList(fs, n.Exprs, len(n.Targets), pos)
	if err != nil {
		return err
	}
	for i, target := range n.Targets {
		if err := c.compileAssignTarget(fs, target, regs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileAssignTarget(fs *funcState, target ast.Expr, valueReg string) error {
	pos := target.GetPosition()
	switch t := target.(type) {
	case *ast.Identifier:
		return c.compileIdentWrite(fs, t.Name, valueReg, pos)
	case *ast.IndexExpr:
		tableReg, err := c.compileExpr(fs, t.Table)
		if err != nil {
			return err
		}
		keyReg, err := c.compileExpr(fs, t.Key)
		if err != nil {
			return err
		}
		c.emit(fs, pos, opcodes.OP_TABLE_SET, tableReg, keyReg, valueReg, nil)
		return nil
	case *ast.FieldExpr:
		tableReg, err := c.compileExpr(fs, t.Table)
		if err != nil {
			return err
		}
		keyReg := c.emitConstLoad(fs, pos, values.NewString(t.Name))
		c.emit(fs, pos, opcodes.OP_TABLE_SET, tableReg, keyReg, valueReg, nil)
		return nil
	default:
		return errAt(pos, "invalid assignment target")
	}
}

func (c *Compiler) compileIdentWrite(fs *funcState, name string, valueReg string, pos ast.Position) error {
	r := fs.resolve(name)
	switch r.kind {
	case refLocal:
		c.emit(fs, pos, opcodes.OP_MOV, r.reg, valueReg, "", nil)
		return nil
	case refCell:
		c.emit(fs, pos, opcodes.OP_CELL_SET, r.reg, valueReg, "", nil)
		return nil
	default:
		envReg, err := c.materializeEnv(fs, pos)
		if err != nil {
			return err
		}
		keyReg := c.emitConstLoad(fs, pos, values.NewString(name))
		c.emit(fs, pos, opcodes.OP_TABLE_SET, envReg, keyReg, valueReg, nil)
		return nil
	}
}

// materializeEnv resolves the _ENV reference reachable from fs (always a
// local or cell thanks to the whole-program capture analysis) down to a
// plain register holding the table value itself.
func (c *Compiler) materializeEnv(fs *funcState, pos ast.Position) (string, error) {
	r := fs.resolve(envName)
	switch r.kind {
	case refLocal:
		return r.reg, nil
	case refCell:
		reg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_CELL_GET, reg, r.reg, "", nil)
		return reg, nil
	default:
		return "", errAt(pos, "internal: _ENV did not resolve to a local or upvalue")
	}
}

func (c *Compiler) compileNumericFor(fs *funcState, n *ast.NumericForStmt) error {
	pos := n.GetPosition()
	startReg, err := c.compileExpr(fs, n.Start)
	if err != nil {
		return err
	}
	limitReg, err := c.compileExpr(fs, n.Limit)
	if err != nil {
		return err
	}
	var stepReg string
	if n.Step != nil {
		stepReg, err = c.compileExpr(fs, n.Step)
		if err != nil {
			return err
		}
	} else {
		stepReg = c.emitConstLoad(fs, pos, values.NewInt(1))
	}

	ivReg := c.newTemp()
	c.emit(fs, pos, opcodes.OP_MOV, ivReg, startReg, "", nil)

	topLabel := c.newLabel("for_top")
	contLabel := c.newLabel("for_cont")
	endLabel := c.newLabel("for_end")

	c.emit(fs, pos, opcodes.OP_LABEL, topLabel, "", "", nil)
	condReg, err := c.emitForCondition(fs, pos, ivReg, limitReg, stepReg)
	if err != nil {
		return err
	}
	c.emit(fs, pos, opcodes.OP_JZ, condReg, endLabel, "", nil)

	iterReg := c.newTemp()
	c.emit(fs, pos, opcodes.OP_MOV, iterReg, ivReg, "", nil)
	if fs.info.captured[n.Var] {
		cellReg := c.newTemp()
		c.emit(fs, pos, opcodes.OP_MAKE_CELL, cellReg, iterReg, "", nil)
		fs.localReg[n.Var] = cellReg
	} else {
		fs.localReg[n.Var] = iterReg
	}

	fs.pushLoop(endLabel, contLabel)
	if err := c.compileBlock(fs, n.Body); err != nil {
		return err
	}
	fs.popLoop()

	c.emit(fs, pos, opcodes.OP_LABEL, contLabel, "", "", nil)
	c.emit(fs, pos, opcodes.OP_ADD, ivReg, ivReg, stepReg, nil)
	c.emit(fs, pos, opcodes.OP_JMP, topLabel, "", "", nil)
	c.emit(fs, pos, opcodes.OP_LABEL, endLabel, "", "", nil)
	return nil
}

// emitForCondition computes, entirely at runtime (the step's sign isn't
// known at compile time), whether a numeric for loop should keep going:
// ascending when step > 0 and iv <= limit, descending otherwise.
func (c *Compiler) emitForCondition(fs *funcState, pos ast.Position, ivReg, limitReg, stepReg string) (string, error) {
	zeroReg := c.emitConstLoad(fs, pos, values.NewInt(0))
	stepPos := c.newTemp()
	c.emit(fs, pos, opcodes.OP_LT, stepPos, zeroReg, stepReg, nil)

	ascLt := c.newTemp()
	c.emit(fs, pos, opcodes.OP_LT, ascLt, limitReg, ivReg, nil)
	ascCond := c.newTemp()
	c.emit(fs, pos, opcodes.OP_NOT, ascCond, ascLt, "", nil)

	descLt := c.newTemp()
	c.emit(fs, pos, opcodes.OP_LT, descLt, ivReg, limitReg, nil)
	descCond := c.newTemp()
	c.emit(fs, pos, opcodes.OP_NOT, descCond, descLt, "", nil)

	notStepPos := c.newTemp()
	c.emit(fs, pos, opcodes.OP_NOT, notStepPos, stepPos, "", nil)

	left := c.newTemp()
	c.emit(fs, pos, opcodes.OP_AND, left, stepPos, ascCond, nil)
	right := c.newTemp()
	c.emit(fs, pos, opcodes.OP_AND, right, notStepPos, descCond, nil)

	result := c.newTemp()
	c.emit(fs, pos, opcodes.OP_OR, result, left, right, nil)
	return result, nil
}

func (c *Compiler) compileGenericFor(fs *funcState, n *ast.GenericForStmt) error {
	pos := n.GetPosition()
	exprRegs, err := c.compileExprList(fs, n.Exprs, 3, pos)
	if err != nil {
		return err
	}
	iterReg, stateReg, ctrlReg := exprRegs[0], exprRegs[1], exprRegs[2]

	topLabel := c.newLabel("gfor_top")
	contLabel := c.newLabel("gfor_cont")
	endLabel := c.newLabel("gfor_end")

	c.emit(fs, pos, opcodes.OP_LABEL, topLabel, "", "", nil)
	c.emit(fs, pos, opcodes.OP_PARAM, stateReg, "", "", nil)
	c.emit(fs, pos, opcodes.OP_PARAM, ctrlReg, "", "", nil)
	c.emit(fs, pos, opcodes.OP_CALL_VALUE, iterReg, "", "", nil)

	targets := make([]string, len(n.Names))
	for i := range targets {
		targets[i] = c.newTemp()
	}
	c.emit(fs, pos, opcodes.OP_RESULT_MULTI, "", "", "", targets)

	isNilReg := c.newTemp()
	c.emit(fs, pos, opcodes.OP_IS_NULL, isNilReg, targets[0], "", nil)
	c.emit(fs, pos, opcodes.OP_JNZ, isNilReg, endLabel, "", nil)
	c.emit(fs, pos, opcodes.OP_MOV, ctrlReg, targets[0], "", nil)

	for i, name := range n.Names {
		if fs.info.captured[name] {
			cellReg := c.newTemp()
			c.emit(fs, pos, opcodes.OP_MAKE_CELL, cellReg, targets[i], "", nil)
			fs.localReg[name] = cellReg
		} else {
			fs.localReg[name] = targets[i]
		}
	}

	fs.pushLoop(endLabel, contLabel)
	if err := c.compileBlock(fs, n.Body); err != nil {
		return err
	}
	fs.popLoop()

	c.emit(fs, pos, opcodes.OP_LABEL, contLabel, "", "", nil)
	c.emit(fs, pos, opcodes.OP_JMP, topLabel, "", "", nil)
	c.emit(fs, pos, opcodes.OP_LABEL, endLabel, "", "", nil)
	return nil
}

func (c *Compiler) compileWhile(fs *funcState, n *ast.WhileStmt) error {
	pos := n.GetPosition()
	topLabel := c.newLabel("while_top")
	endLabel := c.newLabel("while_end")

	c.emit(fs, pos, opcodes.OP_LABEL, topLabel, "", "", nil)
	condReg, err := c.compileExpr(fs, n.Cond)
	if err != nil {
		return err
	}
	c.emit(fs, pos, opcodes.OP_JZ, condReg, endLabel, "", nil)

	fs.pushLoop(endLabel, topLabel)
	if err := c.compileBlock(fs, n.Body); err != nil {
		return err
	}
	fs.popLoop()

	c.emit(fs, pos, opcodes.OP_JMP, topLabel, "", "", nil)
	c.emit(fs, pos, opcodes.OP_LABEL, endLabel, "", "", nil)
	return nil
}

func (c *Compiler) compileRepeat(fs *funcState, n *ast.RepeatStmt) error {
	pos := n.GetPosition()
	topLabel := c.newLabel("repeat_top")
	condLabel := c.newLabel("repeat_cond")
	endLabel := c.newLabel("repeat_end")

	c.emit(fs, pos, opcodes.OP_LABEL, topLabel, "", "", nil)
	fs.pushLoop(endLabel, condLabel)
	if err := c.compileBlock(fs, n.Body); err != nil {
		return err
	}
	fs.popLoop()

	c.emit(fs, pos, opcodes.OP_LABEL, condLabel, "", "", nil)
	condReg, err := c.compileExpr(fs, n.Cond)
	if err != nil {
		return err
	}
	c.emit(fs, pos, opcodes.OP_JZ, condReg, topLabel, "", nil)
	c.emit(fs, pos, opcodes.OP_LABEL, endLabel, "", "", nil)
	return nil
}

func (c *Compiler) compileIf(fs *funcState, n *ast.IfStmt) error {
	pos := n.GetPosition()
	endLabel := c.newLabel("if_end")

	for i, clause := range n.Clauses {
		hasMore := i < len(n.Clauses)-1 || n.Else != nil
		var nextLabel string
		if hasMore {
			nextLabel = c.newLabel("if_next")
		} else {
			nextLabel = endLabel
		}
		condReg, err := c.compileExpr(fs, clause.Cond)
		if err != nil {
			return err
		}
		c.emit(fs, pos, opcodes.OP_JZ, condReg, nextLabel, "", nil)
		if err := c.compileBlock(fs, clause.Body); err != nil {
			return err
		}
		c.emit(fs, pos, opcodes.OP_JMP, endLabel, "", "", nil)
		if nextLabel != endLabel {
			c.emit(fs, pos, opcodes.OP_LABEL, nextLabel, "", "", nil)
		}
	}
	if n.Else != nil {
		if err := c.compileBlock(fs, n.Else); err != nil {
			return err
		}
	}
	c.emit(fs, pos, opcodes.OP_LABEL, endLabel, "", "", nil)
	return nil
}

func (c *Compiler) compileReturn(fs *funcState, n *ast.ReturnStmt) error {
	pos := n.GetPosition()
	if len(n.Exprs) == 0 {
		c.emit(fs, pos, opcodes.OP_RETURN, "", "", "", nil)
		return nil
	}
	regs, err := c.compileReturnRegs(fs, n.Exprs)
	if err != nil {
		return err
	}
	c.emit(fs, pos, opcodes.OP_RETURN_MULTI, "", "", "", regs)
	return nil
}

func (c *Compiler) compileReturnRegs(fs *funcState, exprs []ast.Expr) ([]string, error) {
	regs := make([]string, 0, len(exprs))
	for i, e := range exprs {
		isLast := i == len(exprs)-1
		if isLast && isMultiCapable(e) {
			reg, err := c.compileMultiExpr(fs, e)
			if err != nil {
				return nil, err
			}
			regs = append(regs, reg)
			continue
		}
		reg, err := c.compileExpr(fs, e)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// compileExprList evaluates exprs left to right and returns exactly
// `wanted` single-value registers, expanding a trailing call/vararg
// expression's results via LIST_GET and padding with nil as Lua's
// local/assignment arity rules require.
func (c *Compiler) compileExprList(fs *funcState, exprs []ast.Expr, wanted int, pos ast.Position) ([]string, error) {
	var regs []string
	for i, e := range exprs {
		isLast := i == len(exprs)-1
		if isLast && isMultiCapable(e) {
			listReg, err := c.compileMultiExpr(fs, e)
			if err != nil {
				return nil, err
			}
			extra := wanted - (len(exprs) - 1)
			if extra < 1 {
				extra = 1
			}
			for k := 0; k < extra; k++ {
				reg := c.newTemp()
				c.emit(fs, pos, opcodes.OP_LIST_GET, reg, listReg, strconv.Itoa(k), nil)
				regs = append(regs, reg)
			}
			continue
		}
		reg, err := c.compileExpr(fs, e)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	for len(regs) < wanted {
		regs = append(regs, c.emitConstLoad(fs, pos, values.NewNil()))
	}
	if len(regs) > wanted {
		regs = regs[:wanted]
	}
	return regs, nil
}
