package vm

import (
	"strconv"

	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_LOAD_IMM, opLoadImm)
	register(opcodes.OP_MOV, opMov)
	register(opcodes.OP_LOAD_CONST, opLoadConst)
	register(opcodes.OP_CLR, opClr)
	register(opcodes.OP_CMP_IMM, opCmpImm)
	register(opcodes.OP_LOAD_GLOBALS, opLoadGlobals)
}

func opLoadImm(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	imm, ok := instr.Aux.(int64)
	if !ok {
		if i, err := strconv.ParseInt(instr.B, 10, 64); err == nil {
			imm = i
		}
	}
	ctx.SetReg(instr.A, values.NewInt(imm))
	return outcomeNormal, nil
}

func opMov(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, ctx.GetReg(instr.B))
	return outcomeNormal, nil
}

func opLoadConst(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	idx, err := strconv.Atoi(instr.B)
	if err != nil || idx < 0 || idx >= len(ctx.Program.Constants) {
		return outcomeNormal, &VMError{Type: ErrConstantOutOfRange, Message: instr.B, Opcode: instr.Op, IP: ctx.PC}
	}
	ctx.SetReg(instr.A, values.DeepCopy(ctx.Program.Constants[idx]))
	return outcomeNormal, nil
}

// opLoadGlobals loads the global environment table, the runtime half of
// the compiler's _ENV-as-implicit-upvalue model: every free identifier
// compiles to an index into whatever register holds this table.
func opLoadGlobals(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewTable(ctx.Globals))
	return outcomeNormal, nil
}

func opClr(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewInt(0))
	return outcomeNormal, nil
}

func opCmpImm(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	src := ctx.GetReg(instr.B)
	imm, err := strconv.ParseInt(instr.C, 10, 64)
	if err != nil {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Message: instr.C, Opcode: instr.Op, IP: ctx.PC}
	}
	sf, ok := src.ToFloat()
	if !ok {
		return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Message: "CMP_IMM requires a number", Opcode: instr.Op, IP: ctx.PC}
	}
	switch {
	case sf < float64(imm):
		ctx.SetReg(instr.A, values.NewInt(-1))
	case sf > float64(imm):
		ctx.SetReg(instr.A, values.NewInt(1))
	default:
		ctx.SetReg(instr.A, values.NewInt(0))
	}
	return outcomeNormal, nil
}
