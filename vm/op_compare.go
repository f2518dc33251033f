package vm

import (
	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_EQ, opEq)
	register(opcodes.OP_LT, opLt)
	register(opcodes.OP_GT, opGt)
	register(opcodes.OP_AND, opAnd)
	register(opcodes.OP_OR, opOr)
	register(opcodes.OP_NOT, opNot)
}

func opEq(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	eq, err := v.EqualValues(ctx, ctx.GetReg(instr.B), ctx.GetReg(instr.C))
	if err != nil {
		return outcomeNormal, err
	}
	ctx.SetReg(instr.A, values.NewBool(eq))
	return outcomeNormal, nil
}

func opLt(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	lt, err := v.LessThan(ctx, ctx.GetReg(instr.B), ctx.GetReg(instr.C))
	if err != nil {
		return outcomeNormal, err
	}
	ctx.SetReg(instr.A, values.NewBool(lt))
	return outcomeNormal, nil
}

// opGt is LT with operands swapped, per the opcode's own doc comment.
func opGt(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	lt, err := v.LessThan(ctx, ctx.GetReg(instr.C), ctx.GetReg(instr.B))
	if err != nil {
		return outcomeNormal, err
	}
	ctx.SetReg(instr.A, values.NewBool(lt))
	return outcomeNormal, nil
}

func opAnd(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a := ctx.GetReg(instr.B)
	if !a.IsTruthy() {
		ctx.SetReg(instr.A, a)
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, ctx.GetReg(instr.C))
	return outcomeNormal, nil
}

func opOr(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a := ctx.GetReg(instr.B)
	if a.IsTruthy() {
		ctx.SetReg(instr.A, a)
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, ctx.GetReg(instr.C))
	return outcomeNormal, nil
}

func opNot(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewBool(!ctx.GetReg(instr.B).IsTruthy()))
	return outcomeNormal, nil
}
