package vm

import (
	"strconv"

	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_PARAM, opParam)
	register(opcodes.OP_PARAM_EXPAND, opParamExpand)
	register(opcodes.OP_CALL, opCall)
	register(opcodes.OP_CALL_VALUE, opCallValue)
	register(opcodes.OP_ARG, opArg)
	register(opcodes.OP_RETURN, opReturn)
	register(opcodes.OP_RETURN_MULTI, opReturnMulti)
	register(opcodes.OP_RESULT, opResult)
	register(opcodes.OP_RESULT_MULTI, opResultMulti)
	register(opcodes.OP_RESULT_LIST, opResultList)
	register(opcodes.OP_VARARG, opVararg)
	register(opcodes.OP_VARARG_FIRST, opVarargFirst)
	register(opcodes.OP_BIND_UPVALUE, opBindUpvalue)
}

func opParam(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.PendingParams = append(ctx.PendingParams, ctx.GetReg(instr.A))
	return outcomeNormal, nil
}

func opParamExpand(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	list := ctx.GetReg(instr.A)
	if list.Type == values.TypeList {
		ctx.PendingParams = append(ctx.PendingParams, list.AsList()...)
		return outcomeNormal, nil
	}
	ctx.PendingParams = append(ctx.PendingParams, list)
	return outcomeNormal, nil
}

// pushCallFrame transfers control to label with a fresh register file,
// saving enough of the caller's state in a CallFrame to resume at
// ReturnPC once the callee returns.
func pushCallFrame(ctx *ExecutionContext, label, displayName string, upvalues []*values.Cell) error {
	pc, err := jumpTarget(ctx, label)
	if err != nil {
		return err
	}
	ctx.CallStack.PushFrame(&CallFrame{
		ReturnPC:            ctx.PC + 1,
		SavedRegisters:      ctx.Registers,
		SavedUpvalues:       ctx.CurrentUpvalues,
		FunctionLabel:       label,
		FunctionDisplayName: displayName,
	})
	ctx.Registers = make(map[string]*values.Value)
	ctx.CurrentUpvalues = upvalues
	ctx.PC = pc
	return nil
}

// opCall calls a statically-known label directly (a top-level function
// reference resolved at compile time, with no captured upvalues of its
// own beyond what the compiler already lowered into closures).
func opCall(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	if err := pushCallFrame(ctx, instr.A, instr.A, nil); err != nil {
		return outcomeNormal, err
	}
	return outcomeJumped, nil
}

// opCallValue dispatches on a register holding a Closure, a Foreign
// function, or a table with __call.
func opCallValue(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	callee := ctx.GetReg(instr.A)
	switch callee.Type {
	case values.TypeClosure:
		cl := callee.AsClosure()
		if err := pushCallFrame(ctx, cl.CodeLabel, cl.DisplayName(instr.Debug.Line), cl.Upvalues); err != nil {
			return outcomeNormal, err
		}
		return outcomeJumped, nil
	case values.TypeForeign:
		args := ctx.PendingParams
		ctx.PendingParams = nil
		results, err := callee.AsForeign().Fn(args, ctx)
		if err != nil {
			if IsYieldSignal(err) {
				return outcomeYielded, nil
			}
			return outcomeNormal, err
		}
		ctx.LastReturn = results
		return outcomeNormal, nil
	default:
		if mm := metamethodOf(callee, "__call"); mm != nil {
			args := append([]*values.Value{callee}, ctx.PendingParams...)
			ctx.PendingParams = nil
			results, err := v.CallValue(ctx, mm, args)
			if err != nil {
				return outcomeNormal, err
			}
			ctx.LastReturn = results
			return outcomeNormal, nil
		}
		return outcomeNormal, &VMError{Type: ErrNotCallable, Message: "attempt to call a " + callee.Type.String() + " value", Opcode: instr.Op, IP: ctx.PC}
	}
}

func opArg(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	if len(ctx.PendingParams) == 0 {
		ctx.SetReg(instr.A, values.NewNil())
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, ctx.PendingParams[0])
	ctx.PendingParams = ctx.PendingParams[1:]
	return outcomeNormal, nil
}

// popCallFrame restores the caller's registers/upvalues and returns the
// frame's ReturnPC: -1 for a bottom frame (the main chunk's or a
// coroutine entry's), or -1 if the stack was already empty.
func popCallFrame(ctx *ExecutionContext) int {
	frame := ctx.CallStack.PopFrame()
	if frame == nil {
		return -1
	}
	ctx.Registers = frame.SavedRegisters
	ctx.CurrentUpvalues = frame.SavedUpvalues
	return frame.ReturnPC
}

func opReturn(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	if instr.A != "" {
		ctx.LastReturn = []*values.Value{ctx.GetReg(instr.A)}
	} else {
		ctx.LastReturn = nil
	}
	return finishReturn(ctx)
}

func opReturnMulti(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	names, _ := instr.Aux.([]string)
	if names == nil {
		for _, reg := range []string{instr.A, instr.B, instr.C} {
			if reg != "" {
				names = append(names, reg)
			}
		}
	}
	results := make([]*values.Value, 0, len(names))
	for i, reg := range names {
		val := ctx.GetReg(reg)
		if i == len(names)-1 && val.Type == values.TypeList {
			results = append(results, val.AsList()...)
			continue
		}
		results = append(results, val)
	}
	ctx.LastReturn = results
	return finishReturn(ctx)
}

func finishReturn(ctx *ExecutionContext) (opOutcome, error) {
	returnPC := popCallFrame(ctx)
	if returnPC < 0 {
		// Returning out of a bottom frame: leave PC alone; runLoop's depth
		// check then stops with sigReturned, and the caller (Execute or
		// Resume) reads ctx.LastReturn directly.
		return outcomeJumped, nil
	}
	ctx.PC = returnPC
	return outcomeJumped, nil
}

func opResult(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	if len(ctx.LastReturn) == 0 {
		ctx.SetReg(instr.A, values.NewNil())
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, ctx.LastReturn[0])
	return outcomeNormal, nil
}

func opResultMulti(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	targets, _ := instr.Aux.([]string)
	for i, reg := range targets {
		if i < len(ctx.LastReturn) {
			ctx.SetReg(reg, ctx.LastReturn[i])
		} else {
			ctx.SetReg(reg, values.NewNil())
		}
	}
	return outcomeNormal, nil
}

func opResultList(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewList(append([]*values.Value{}, ctx.LastReturn...)))
	return outcomeNormal, nil
}

func opVararg(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	ctx.SetReg(instr.A, values.NewList(append([]*values.Value{}, ctx.PendingParams...)))
	return outcomeNormal, nil
}

func opVarargFirst(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	if len(ctx.PendingParams) == 0 {
		ctx.SetReg(instr.A, values.NewNil())
		return outcomeNormal, nil
	}
	ctx.SetReg(instr.A, ctx.PendingParams[0])
	return outcomeNormal, nil
}

func opBindUpvalue(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	idx, err := strconv.Atoi(instr.B)
	if err != nil || idx < 0 || idx >= len(ctx.CurrentUpvalues) {
		return outcomeNormal, &VMError{Type: ErrInvalidInstruction, Message: "upvalue index out of range: " + instr.B, Opcode: instr.Op, IP: ctx.PC}
	}
	ctx.SetReg(instr.A, values.NewCell(ctx.CurrentUpvalues[idx]))
	return outcomeNormal, nil
}
