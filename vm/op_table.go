package vm

import (
	"strconv"

	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_TABLE_NEW, opTableNew)
	register(opcodes.OP_TABLE_SET, opTableSet)
	register(opcodes.OP_TABLE_GET, opTableGet)
	register(opcodes.OP_TABLE_APPEND, opTableAppend)
	register(opcodes.OP_TABLE_EXTEND, opTableExtend)
	register(opcodes.OP_LIST_GET, opListGet)

	register(opcodes.OP_ARR_INIT, opTableNew)
	register(opcodes.OP_ARR_SET, opTableSetRaw)
	register(opcodes.OP_ARR_GET, opArrGet)
	register(opcodes.OP_ARR_COPY, opArrCopy)
	register(opcodes.OP_LEN, opLen)
	register(opcodes.OP_PUSH, opTableAppend)
	register(opcodes.OP_POP, opPop)
}

func opTableNew(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewTable(values.NewEmptyTable()))
	return outcomeNormal, nil
}

func opTableSet(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	target := ctx.GetReg(instr.A)
	if err := v.NewIndex(ctx, target, ctx.GetReg(instr.B), ctx.GetReg(instr.C)); err != nil {
		return outcomeNormal, err
	}
	return outcomeNormal, nil
}

// opTableSetRaw is the legacy ARR_SET opcode: a raw store bypassing
// __newindex, kept for the assembly front-end's array literals.
func opTableSetRaw(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	target := ctx.GetReg(instr.A).AsTable()
	if target == nil {
		return outcomeNormal, &VMError{Type: ErrNotIndexable, Opcode: instr.Op, IP: ctx.PC}
	}
	target.Set(ctx.GetReg(instr.B), ctx.GetReg(instr.C))
	return outcomeNormal, nil
}

func opTableGet(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	result, err := v.Index(ctx, ctx.GetReg(instr.B), ctx.GetReg(instr.C))
	if err != nil {
		return outcomeNormal, err
	}
	ctx.SetReg(instr.A, result)
	return outcomeNormal, nil
}

func opArrGet(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	target := ctx.GetReg(instr.B).AsTable()
	if target == nil {
		return outcomeNormal, &VMError{Type: ErrNotIndexable, Opcode: instr.Op, IP: ctx.PC}
	}
	ctx.SetReg(instr.A, target.Get(ctx.GetReg(instr.C)))
	return outcomeNormal, nil
}

func opTableAppend(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	target := ctx.GetReg(instr.A).AsTable()
	if target == nil {
		return outcomeNormal, &VMError{Type: ErrNotIndexable, Opcode: instr.Op, IP: ctx.PC}
	}
	target.Append(ctx.GetReg(instr.B))
	return outcomeNormal, nil
}

// opTableExtend appends every element of a List-valued register onto a
// table, backing table constructors' trailing multi-value expansion
// (e.g. {f()} or {..., ...}).
func opTableExtend(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	target := ctx.GetReg(instr.A).AsTable()
	if target == nil {
		return outcomeNormal, &VMError{Type: ErrNotIndexable, Opcode: instr.Op, IP: ctx.PC}
	}
	src := ctx.GetReg(instr.B)
	if src.Type == values.TypeList {
		for _, elem := range src.AsList() {
			target.Append(elem)
		}
		return outcomeNormal, nil
	}
	target.Append(src)
	return outcomeNormal, nil
}

func opListGet(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	list := ctx.GetReg(instr.B)
	if list.Type != values.TypeList {
		return outcomeNormal, &VMError{Type: ErrNotIndexable, Message: "LIST_GET on a non-list value", Opcode: instr.Op, IP: ctx.PC}
	}
	idx, err := strconv.Atoi(instr.C)
	if err != nil {
		idxVal := ctx.GetReg(instr.C)
		i64, ok := idxVal.ToInt()
		if !ok {
			return outcomeNormal, &VMError{Type: ErrInvalidOperandType, Opcode: instr.Op, IP: ctx.PC}
		}
		idx = int(i64)
	}
	elems := list.AsList()
	if idx < 0 || idx >= len(elems) {
		ctx.SetReg(instr.A, values.NewNil())
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, elems[idx])
	return outcomeNormal, nil
}

func opArrCopy(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	src := ctx.GetReg(instr.B).AsTable()
	if src == nil {
		return outcomeNormal, &VMError{Type: ErrNotIndexable, Opcode: instr.Op, IP: ctx.PC}
	}
	ctx.SetReg(instr.A, values.NewTable(src.Clone()))
	return outcomeNormal, nil
}

func opLen(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	result, err := v.Length(ctx, ctx.GetReg(instr.B))
	if err != nil {
		return outcomeNormal, err
	}
	ctx.SetReg(instr.A, result)
	return outcomeNormal, nil
}

func opPop(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	target := ctx.GetReg(instr.B).AsTable()
	if target == nil {
		return outcomeNormal, &VMError{Type: ErrNotIndexable, Opcode: instr.Op, IP: ctx.PC}
	}
	ctx.SetReg(instr.A, target.Remove(target.Len()))
	return outcomeNormal, nil
}
