package vm

import (
	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_IS_OBJ, opIsObj)
	register(opcodes.OP_IS_ARR, opIsArr)
	register(opcodes.OP_IS_NULL, opIsNull)
	register(opcodes.OP_COALESCE, opCoalesce)
	register(opcodes.OP_PRINT, opPrint)
	register(opcodes.OP_HALT, opHalt)
}

func opIsObj(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewBool(ctx.GetReg(instr.B).Type == values.TypeTable))
	return outcomeNormal, nil
}

func opIsArr(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewBool(ctx.GetReg(instr.B).Type == values.TypeList))
	return outcomeNormal, nil
}

func opIsNull(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewBool(ctx.GetReg(instr.B).IsNil()))
	return outcomeNormal, nil
}

func opCoalesce(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	l := ctx.GetReg(instr.B)
	if !l.IsNil() {
		ctx.SetReg(instr.A, l)
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, ctx.GetReg(instr.C))
	return outcomeNormal, nil
}

func opPrint(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.Output(ctx.GetReg(instr.A))
	return outcomeNormal, nil
}

func opHalt(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.Halted = true
	return outcomeHalted, nil
}
