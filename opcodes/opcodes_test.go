package opcodes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpcodeStringKnown(t *testing.T) {
	cases := map[Opcode]string{
		OP_ADD:    "ADD",
		OP_DIV:    "DIV",
		OP_IDIV:   "IDIV",
		OP_JMP:    "JMP",
		OP_CLOSURE: "CLOSURE",
		OP_HALT:   "HALT",
	}
	for op, want := range cases {
		require.Equal(t, want, op.String())
	}
}

func TestOpcodeStringUnknownFallsBackToNumeric(t *testing.T) {
	require.Contains(t, Opcode(255).String(), "OP(")
}

func TestInstructionStringIncludesOperands(t *testing.T) {
	i := Instruction{Op: OP_ADD, A: "r1", B: "r2", C: "r3"}
	require.Contains(t, i.String(), "ADD")
	require.Contains(t, i.String(), "r1")
}
