// Package opcodes enumerates the register-VM instruction set shared by
// the Lua compiler and the VM core, plus the per-instruction debug
// metadata used for tracebacks.
package opcodes

import "fmt"

// Opcode identifies an instruction's effect. Operand arity and meaning
// are fixed per opcode; see the comments below for the Go-level
// representation each opcode expects in Instruction.A/B/C/Aux.
type Opcode byte

// Load/Move (0-9)
const (
	OP_LOAD_IMM Opcode = iota // LOAD_IMM dst, int_literal (imm in Aux)
	OP_MOV                    // MOV dst, src
	OP_LOAD_CONST             // LOAD_CONST dst, const_slot (deep-copied on load)
	OP_CLR                    // CLR dst (sets to 0, legacy, not nil)
	OP_CMP_IMM                // CMP_IMM dst, src, imm (writes -1/0/1)
	OP_LOAD_GLOBALS           // LOAD_GLOBALS dst (the root _ENV table, compiler-emitted once)
)

// Arithmetic (10-19)
const (
	OP_ADD Opcode = iota + 10
	OP_SUB
	OP_MUL
	OP_DIV   // always float divide
	OP_IDIV  // floor divide
	OP_MOD
	OP_POW
	OP_NEG
	OP_CONCAT
)

// Compare/Logic (20-29)
const (
	OP_EQ Opcode = iota + 20
	OP_LT
	OP_GT // LT with operands swapped
	OP_AND
	OP_OR
	OP_NOT
)

// Bitwise (30-39)
const (
	OP_AND_BIT Opcode = iota + 30
	OP_OR_BIT
	OP_XOR
	OP_NOT_BIT
	OP_SHL
	OP_SHR // logical, masks to 32-bit
	OP_SAR // arithmetic
)

// Jumps (40-49)
const (
	OP_LABEL Opcode = iota + 40 // no-op marker, resolved to a PC on load
	OP_JMP
	OP_JZ  // branch if falsy
	OP_JNZ // branch if truthy
	OP_JMP_REL
)

// Calls/Returns (50-69)
const (
	OP_PARAM Opcode = iota + 50 // push one value to the pending queue
	OP_PARAM_EXPAND              // expand a List into the queue
	OP_CALL                      // CALL label
	OP_CALL_VALUE                // CALL_VALUE reg (closure, foreign, or __call)
	OP_ARG                       // pop one from the queue into a local register
	OP_RETURN                    // RETURN [src]
	OP_RETURN_MULTI              // RETURN_MULTI r1, r2, ... (last expanded if List)
	OP_RESULT                    // take first return
	OP_RESULT_MULTI              // align returns to targets, padding with Nil
	OP_RESULT_LIST               // capture all returns as a List
	OP_VARARG                    // pack remaining queue into a List
	OP_VARARG_FIRST               // peek first
	OP_BIND_UPVALUE               // bind the k-th upvalue cell to a local register
)

// Closure (70-74)
const (
	OP_MAKE_CELL Opcode = iota + 70 // wrap a value into a new Cell
	OP_CELL_GET
	OP_CELL_SET
	OP_CLOSURE // CLOSURE dst, label, cell1, cell2, ... (cells in Aux)
)

// Tables (80-85)
const (
	OP_TABLE_NEW Opcode = iota + 80
	OP_TABLE_SET    // honors __newindex when the raw slot is empty
	OP_TABLE_GET    // honors __index chain
	OP_TABLE_APPEND
	OP_TABLE_EXTEND
	OP_LIST_GET
)

// Collections/Arrays, legacy from the assembly front-end (90-99)
const (
	OP_ARR_INIT Opcode = iota + 90
	OP_ARR_SET
	OP_ARR_GET
	OP_ARR_COPY
	OP_LEN // honors __len
	OP_PUSH
	OP_POP
)

// Predicates/Coalesce (100-104)
const (
	OP_IS_OBJ Opcode = iota + 100
	OP_IS_ARR
	OP_IS_NULL
	OP_COALESCE // l if not Nil, else r
)

// Output/Halt (110-112)
const (
	OP_PRINT Opcode = iota + 110
	OP_HALT
)

var opcodeNames = map[Opcode]string{
	OP_LOAD_IMM: "LOAD_IMM", OP_MOV: "MOV", OP_LOAD_CONST: "LOAD_CONST",
	OP_CLR: "CLR", OP_CMP_IMM: "CMP_IMM", OP_LOAD_GLOBALS: "LOAD_GLOBALS",
	OP_ADD: "ADD", OP_SUB: "SUB", OP_MUL: "MUL", OP_DIV: "DIV", OP_IDIV: "IDIV",
	OP_MOD: "MOD", OP_POW: "POW", OP_NEG: "NEG", OP_CONCAT: "CONCAT",
	OP_EQ: "EQ", OP_LT: "LT", OP_GT: "GT", OP_AND: "AND", OP_OR: "OR", OP_NOT: "NOT",
	OP_AND_BIT: "AND_BIT", OP_OR_BIT: "OR_BIT", OP_XOR: "XOR", OP_NOT_BIT: "NOT_BIT",
	OP_SHL: "SHL", OP_SHR: "SHR", OP_SAR: "SAR",
	OP_LABEL: "LABEL", OP_JMP: "JMP", OP_JZ: "JZ", OP_JNZ: "JNZ", OP_JMP_REL: "JMP_REL",
	OP_PARAM: "PARAM", OP_PARAM_EXPAND: "PARAM_EXPAND", OP_CALL: "CALL",
	OP_CALL_VALUE: "CALL_VALUE", OP_ARG: "ARG", OP_RETURN: "RETURN",
	OP_RETURN_MULTI: "RETURN_MULTI", OP_RESULT: "RESULT", OP_RESULT_MULTI: "RESULT_MULTI",
	OP_RESULT_LIST: "RESULT_LIST", OP_VARARG: "VARARG", OP_VARARG_FIRST: "VARARG_FIRST",
	OP_BIND_UPVALUE: "BIND_UPVALUE",
	OP_MAKE_CELL: "MAKE_CELL", OP_CELL_GET: "CELL_GET", OP_CELL_SET: "CELL_SET", OP_CLOSURE: "CLOSURE",
	OP_TABLE_NEW: "TABLE_NEW", OP_TABLE_SET: "TABLE_SET", OP_TABLE_GET: "TABLE_GET",
	OP_TABLE_APPEND: "TABLE_APPEND", OP_TABLE_EXTEND: "TABLE_EXTEND", OP_LIST_GET: "LIST_GET",
	OP_ARR_INIT: "ARR_INIT", OP_ARR_SET: "ARR_SET", OP_ARR_GET: "ARR_GET", OP_ARR_COPY: "ARR_COPY",
	OP_LEN: "LEN", OP_PUSH: "PUSH", OP_POP: "POP",
	OP_IS_OBJ: "IS_OBJ", OP_IS_ARR: "IS_ARR", OP_IS_NULL: "IS_NULL", OP_COALESCE: "COALESCE",
	OP_PRINT: "PRINT", OP_HALT: "HALT",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", byte(op))
}

// DebugInfo is the per-instruction source-location record the compiler
// attaches so that the VM and traceback formatter can report file/line
// positions.
type DebugInfo struct {
	File string
	Line int
	Col  int
	Func string // enclosing function's display label
}

// Instruction is one bytecode operation. Operand registers are addressed
// by symbolic name (A, B, C); Aux carries opcode-specific extra operands
// (a list of upvalue cell names, an immediate value, ...). Jump target
// labels travel in A (JMP, CALL) or B (JZ, JNZ), not in Aux.
type Instruction struct {
	Op    Opcode
	A, B, C string
	Aux   interface{}
	Debug DebugInfo
}

func (i Instruction) String() string {
	return fmt.Sprintf("%-8s %s %s %s", i.Op, i.A, i.B, i.C)
}
