package vm

import (
	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_AND_BIT, opBitwise(func(a, b int64) int64 { return a & b }))
	register(opcodes.OP_OR_BIT, opBitwise(func(a, b int64) int64 { return a | b }))
	register(opcodes.OP_XOR, opBitwise(func(a, b int64) int64 { return a ^ b }))
	register(opcodes.OP_NOT_BIT, opNotBit)
	register(opcodes.OP_SHL, opShl)
	register(opcodes.OP_SHR, opShr)
	register(opcodes.OP_SAR, opSar)
}

func bitwiseOperand(v *values.Value) (int64, bool) {
	i, ok := v.ToInt()
	return i, ok
}

func opBitwise(fn func(a, b int64) int64) opHandler {
	return func(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
		a, aok := bitwiseOperand(ctx.GetReg(instr.B))
		b, bok := bitwiseOperand(ctx.GetReg(instr.C))
		if !aok || !bok {
			return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Message: "bitwise operand must have an integer representation", Opcode: instr.Op, IP: ctx.PC}
		}
		ctx.SetReg(instr.A, values.NewInt(fn(a, b)))
		return outcomeNormal, nil
	}
}

func opNotBit(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, ok := bitwiseOperand(ctx.GetReg(instr.B))
	if !ok {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Opcode: instr.Op, IP: ctx.PC}
	}
	ctx.SetReg(instr.A, values.NewInt(^a))
	return outcomeNormal, nil
}

func opShl(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, aok := bitwiseOperand(ctx.GetReg(instr.B))
	b, bok := bitwiseOperand(ctx.GetReg(instr.C))
	if !aok || !bok {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Opcode: instr.Op, IP: ctx.PC}
	}
	if b < 0 {
		ctx.SetReg(instr.A, values.NewInt(int64(uint64(a)>>uint(-b))))
		return outcomeNormal, nil
	}
	if b >= 64 {
		ctx.SetReg(instr.A, values.NewInt(0))
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, values.NewInt(a<<uint(b)))
	return outcomeNormal, nil
}

func opShr(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, aok := bitwiseOperand(ctx.GetReg(instr.B))
	b, bok := bitwiseOperand(ctx.GetReg(instr.C))
	if !aok || !bok {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Opcode: instr.Op, IP: ctx.PC}
	}
	if b < 0 || b >= 64 {
		ctx.SetReg(instr.A, values.NewInt(0))
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, values.NewInt(int64(uint64(a)>>uint(b))))
	return outcomeNormal, nil
}

func opSar(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, aok := bitwiseOperand(ctx.GetReg(instr.B))
	b, bok := bitwiseOperand(ctx.GetReg(instr.C))
	if !aok || !bok {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Opcode: instr.Op, IP: ctx.PC}
	}
	if b < 0 || b >= 64 {
		if a < 0 {
			ctx.SetReg(instr.A, values.NewInt(-1))
		} else {
			ctx.SetReg(instr.A, values.NewInt(0))
		}
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, values.NewInt(a>>uint(b)))
	return outcomeNormal, nil
}
