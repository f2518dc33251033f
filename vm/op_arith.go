package vm

import (
	"math"

	"github.com/AarenWang/haifa-go/opcodes"
	"github.com/AarenWang/haifa-go/values"
)

func init() {
	register(opcodes.OP_ADD, opArith("add", func(a, b float64) float64 { return a + b }, func(a, b int64) int64 { return a + b }))
	register(opcodes.OP_SUB, opArith("sub", func(a, b float64) float64 { return a - b }, func(a, b int64) int64 { return a - b }))
	register(opcodes.OP_MUL, opArith("mul", func(a, b float64) float64 { return a * b }, func(a, b int64) int64 { return a * b }))
	register(opcodes.OP_DIV, opDiv)
	register(opcodes.OP_IDIV, opIDiv)
	register(opcodes.OP_MOD, opMod)
	register(opcodes.OP_POW, opPow)
	register(opcodes.OP_NEG, opNeg)
	register(opcodes.OP_CONCAT, opConcat)
}

// opArith builds a handler for a commutative-shape binary arithmetic
// opcode that has both an int and a float path, falling back to the
// matching metamethod (e.g. __add) when either operand isn't a number,
// grounded on the teacher's arithmetic_executor.go per-opcode dispatch.
func opArith(name string, ffn func(a, b float64) float64, ifn func(a, b int64) int64) opHandler {
	mm := arithMetaNames[name]
	return func(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
		a, b := ctx.GetReg(instr.B), ctx.GetReg(instr.C)
		if a.Type == values.TypeInt && b.Type == values.TypeInt {
			ctx.SetReg(instr.A, values.NewInt(ifn(a.Data.(int64), b.Data.(int64))))
			return outcomeNormal, nil
		}
		if af, ok := a.ToFloat(); ok {
			if bf, ok2 := b.ToFloat(); ok2 {
				ctx.SetReg(instr.A, values.NewFloat(ffn(af, bf)))
				return outcomeNormal, nil
			}
		}
		if handler := binaryMetamethod(a, b, mm); handler != nil {
			result, err := v.callMetamethod(ctx, handler, a, b)
			if err != nil {
				return outcomeNormal, err
			}
			ctx.SetReg(instr.A, result)
			return outcomeNormal, nil
		}
		return outcomeNormal, &VMError{Type: ErrInvalidArithmetic, Message: "attempt to perform arithmetic on a " + badOperandType(a, b).String() + " value", Opcode: instr.Op, IP: ctx.PC}
	}
}

func badOperandType(a, b *values.Value) values.ValueType {
	if !a.IsNumber() {
		return a.Type
	}
	return b.Type
}

func opDiv(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, b := ctx.GetReg(instr.B), ctx.GetReg(instr.C)
	af, aok := a.ToFloat()
	bf, bok := b.ToFloat()
	if aok && bok {
		ctx.SetReg(instr.A, values.NewFloat(af/bf))
		return outcomeNormal, nil
	}
	if handler := binaryMetamethod(a, b, "__div"); handler != nil {
		result, err := v.callMetamethod(ctx, handler, a, b)
		if err != nil {
			return outcomeNormal, err
		}
		ctx.SetReg(instr.A, result)
		return outcomeNormal, nil
	}
	return outcomeNormal, &VMError{Type: ErrInvalidArithmetic, Message: "attempt to perform arithmetic on a " + badOperandType(a, b).String() + " value", Opcode: instr.Op, IP: ctx.PC}
}

func opIDiv(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, b := ctx.GetReg(instr.B), ctx.GetReg(instr.C)
	if a.Type == values.TypeInt && b.Type == values.TypeInt {
		bi := b.Data.(int64)
		if bi == 0 {
			return outcomeNormal, &VMError{Type: ErrDivisionByZero, Opcode: instr.Op, IP: ctx.PC}
		}
		ai := a.Data.(int64)
		q := ai / bi
		if (ai%bi != 0) && ((ai < 0) != (bi < 0)) {
			q--
		}
		ctx.SetReg(instr.A, values.NewInt(q))
		return outcomeNormal, nil
	}
	af, aok := a.ToFloat()
	bf, bok := b.ToFloat()
	if aok && bok {
		ctx.SetReg(instr.A, values.NewFloat(math.Floor(af/bf)))
		return outcomeNormal, nil
	}
	if handler := binaryMetamethod(a, b, "__idiv"); handler != nil {
		result, err := v.callMetamethod(ctx, handler, a, b)
		if err != nil {
			return outcomeNormal, err
		}
		ctx.SetReg(instr.A, result)
		return outcomeNormal, nil
	}
	return outcomeNormal, &VMError{Type: ErrInvalidArithmetic, Message: "attempt to perform arithmetic on a " + badOperandType(a, b).String() + " value", Opcode: instr.Op, IP: ctx.PC}
}

func opMod(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, b := ctx.GetReg(instr.B), ctx.GetReg(instr.C)
	if a.Type == values.TypeInt && b.Type == values.TypeInt {
		bi := b.Data.(int64)
		if bi == 0 {
			return outcomeNormal, &VMError{Type: ErrDivisionByZero, Opcode: instr.Op, IP: ctx.PC}
		}
		ai := a.Data.(int64)
		m := ai % bi
		if m != 0 && (m < 0) != (bi < 0) {
			m += bi
		}
		ctx.SetReg(instr.A, values.NewInt(m))
		return outcomeNormal, nil
	}
	af, aok := a.ToFloat()
	bf, bok := b.ToFloat()
	if aok && bok {
		m := math.Mod(af, bf)
		if m != 0 && (m < 0) != (bf < 0) {
			m += bf
		}
		ctx.SetReg(instr.A, values.NewFloat(m))
		return outcomeNormal, nil
	}
	if handler := binaryMetamethod(a, b, "__mod"); handler != nil {
		result, err := v.callMetamethod(ctx, handler, a, b)
		if err != nil {
			return outcomeNormal, err
		}
		ctx.SetReg(instr.A, result)
		return outcomeNormal, nil
	}
	return outcomeNormal, &VMError{Type: ErrInvalidArithmetic, Message: "attempt to perform arithmetic on a " + badOperandType(a, b).String() + " value", Opcode: instr.Op, IP: ctx.PC}
}

func opPow(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, b := ctx.GetReg(instr.B), ctx.GetReg(instr.C)
	af, aok := a.ToFloat()
	bf, bok := b.ToFloat()
	if aok && bok {
		ctx.SetReg(instr.A, values.NewFloat(math.Pow(af, bf)))
		return outcomeNormal, nil
	}
	if handler := binaryMetamethod(a, b, "__pow"); handler != nil {
		result, err := v.callMetamethod(ctx, handler, a, b)
		if err != nil {
			return outcomeNormal, err
		}
		ctx.SetReg(instr.A, result)
		return outcomeNormal, nil
	}
	return outcomeNormal, &VMError{Type: ErrInvalidArithmetic, Message: "attempt to perform arithmetic on a " + badOperandType(a, b).String() + " value", Opcode: instr.Op, IP: ctx.PC}
}

func opNeg(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a := ctx.GetReg(instr.B)
	switch a.Type {
	case values.TypeInt:
		ctx.SetReg(instr.A, values.NewInt(-a.Data.(int64)))
		return outcomeNormal, nil
	case values.TypeFloat:
		ctx.SetReg(instr.A, values.NewFloat(-a.Data.(float64)))
		return outcomeNormal, nil
	}
	if handler := metamethodOf(a, "__unm"); handler != nil {
		result, err := v.callMetamethod(ctx, handler, a, a)
		if err != nil {
			return outcomeNormal, err
		}
		ctx.SetReg(instr.A, result)
		return outcomeNormal, nil
	}
	return outcomeNormal, &VMError{Type: ErrInvalidArithmetic, Message: "attempt to perform arithmetic on a " + a.Type.String() + " value", Opcode: instr.Op, IP: ctx.PC}
}

func opConcat(v *VirtualMachine, ctx *ExecutionContext, instr *opcodes.Instruction) (opOutcome, error) {
	a, b := ctx.GetReg(instr.B), ctx.GetReg(instr.C)
	if concatable(a) && concatable(b) {
		ctx.SetReg(instr.A, values.NewString(a.ToDisplayString()+b.ToDisplayString()))
		return outcomeNormal, nil
	}
	if handler := binaryMetamethod(a, b, "__concat"); handler != nil {
		result, err := v.callMetamethod(ctx, handler, a, b)
		if err != nil {
			return outcomeNormal, err
		}
		ctx.SetReg(instr.A, result)
		return outcomeNormal, nil
	}
	return outcomeNormal, &VMError{Type: ErrInvalidArithmetic, Message: "attempt to concatenate a " + badOperandType(a, b).String() + " value", Opcode: instr.Op, IP: ctx.PC}
}

// concatable reports whether v coerces into CONCAT's string operand per
// spec.md §4.1's "coerces numbers/bool/nil per Lua rules": strings and
// numbers pass through as-is, and bool/nil render via their
// ToDisplayString forms ("true"/"false"/"nil").
func concatable(v *values.Value) bool {
	switch v.Type {
	case values.TypeString, values.TypeBool, values.TypeNil:
		return true
	default:
		return v.IsNumber()
	}
}
