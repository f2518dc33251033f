package vm

import (
	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_MAKE_CELL, opMakeCell)
	register(opcodes.OP_CELL_GET, opCellGet)
	register(opcodes.OP_CELL_SET, opCellSet)
	register(opcodes.OP_CLOSURE, opClosure)
}

func opMakeCell(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewCell(values.NewCellBox(ctx.GetReg(instr.B))))
	return outcomeNormal, nil
}

func opCellGet(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	cellVal := ctx.GetReg(instr.B)
	cell := cellVal.AsCell()
	if cell == nil {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Message: "CELL_GET on a non-cell value", Opcode: instr.Op, IP: ctx.PC}
	}
	ctx.SetReg(instr.A, cell.Value)
	return outcomeNormal, nil
}

func opCellSet(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	cellVal := ctx.GetReg(instr.A)
	cell := cellVal.AsCell()
	if cell == nil {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Message: "CELL_SET on a non-cell value", Opcode: instr.Op, IP: ctx.PC}
	}
	cell.Value = ctx.GetReg(instr.B)
	return outcomeNormal, nil
}

// ClosureAux carries CLOSURE's extra operands beyond dst/label: the
// register names holding the Cell values to capture as upvalues, the
// declared parameter count, vararg-ness, and a display name for
// tracebacks.
type ClosureAux struct {
	Cells      []string
	ParamCount int
	IsVararg   bool
	Name       string
}

func opClosure(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	aux, _ := instr.Aux.(ClosureAux)
	upvalues := make([]*values.Cell, 0, len(aux.Cells))
	for _, reg := range aux.Cells {
		cellVal := ctx.GetReg(reg)
		cell := cellVal.AsCell()
		if cell == nil {
			return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Message: "CLOSURE capture register does not hold a cell: " + reg, Opcode: instr.Op, IP: ctx.PC}
		}
		upvalues = append(upvalues, cell)
	}
	ctx.SetReg(instr.A, values.NewClosure(&values.Closure{
		CodeLabel:  instr.B,
		Upvalues:   upvalues,
		ParamCount: aux.ParamCount,
		IsVararg:   aux.IsVararg,
		Name:       aux.Name,
	}))
	return outcomeNormal, nil
}
