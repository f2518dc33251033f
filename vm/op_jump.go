package vm

import (
	"strconv"

	"github.com/AarenWang/haifa-go/opcodes"
)

func init() {
	register(opcodes.OP_LABEL, opLabel)
	register(opcodes.OP_JMP, opJmp)
	register(opcodes.OP_JZ, opJz)
	register(opcodes.OP_JNZ, opJnz)
	register(opcodes.OP_JMP_REL, opJmpRel)
}

// opLabel is a no-op at runtime; Program.ResolveLabels already recorded
// its PC before execution started.
func opLabel(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	return outcomeNormal, nil
}

func jumpTarget(ctx *ExecutionContext, label string) (int, error) {
	pc, ok := ctx.Program.Labels[label]
	if !ok {
		return 0, &VMError{Type: ErrLabelNotFound, Message: label, IP: ctx.PC}
	}
	return pc, nil
}

func opJmp(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	pc, err := jumpTarget(ctx, instr.A)
	if err != nil {
		return outcomeNormal, err
	}
	ctx.PC = pc
	return outcomeJumped, nil
}

func opJz(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	if ctx.GetReg(instr.A).IsTruthy() {
		return outcomeNormal, nil
	}
	pc, err := jumpTarget(ctx, instr.B)
	if err != nil {
		return outcomeNormal, err
	}
	ctx.PC = pc
	return outcomeJumped, nil
}

func opJnz(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	if !ctx.GetReg(instr.A).IsTruthy() {
		return outcomeNormal, nil
	}
	pc, err := jumpTarget(ctx, instr.B)
	if err != nil {
		return outcomeNormal, err
	}
	ctx.PC = pc
	return outcomeJumped, nil
}

func opJmpRel(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	offset, err := strconv.Atoi(instr.A)
	if err != nil {
		return outcomeNormal, &VMError{Type: ErrInvalidInstruction, Message: instr.A, IP: ctx.PC}
	}
	ctx.PC += offset
	return outcomeJumped, nil
}
