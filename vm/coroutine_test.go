package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AarenWang/haifa-go/ast"
	"github.com/AarenWang/haifa-go/compiler"
	"github.com/AarenWang/haifa-go/stdlib"
	"github.com/AarenWang/haifa-go/values"
	"github.com/AarenWang/haifa-go/vm"
)

var pos = ast.Position{File: "test.lua", Line: 1, Col: 1}

func compileAndRun(t *testing.T, chunk *ast.Chunk) *vm.ExecutionContext {
	t.Helper()
	prog, err := compiler.Compile(chunk, "test.lua")
	require.NoError(t, err)
	globals := stdlib.OpenLibs(values.NewEmptyTable())
	machine := vm.NewVirtualMachine()
	ctx, err := machine.Execute(prog, nil, globals)
	require.NoError(t, err)
	return ctx
}

func globalCall(name string, args ...ast.Expr) *ast.CallExpr {
	return ast.NewCallExpr(pos, ast.NewIdentifier(pos, name), args)
}

func fieldCall(obj, field string, args ...ast.Expr) *ast.CallExpr {
	return ast.NewCallExpr(pos, ast.NewFieldExpr(pos, ast.NewIdentifier(pos, obj), field), args)
}

// Producer/consumer via coroutine.create/resume/yield: the producer
// yields 1, 2, 3 one at a time; the consumer resumes it three times
// and accumulates the yielded values.
func TestCoroutineProducerConsumer(t *testing.T) {
	producerBody := ast.NewBlock(pos, []ast.Stmt{
		ast.NewExprStmt(pos, fieldCall("coroutine", "yield", ast.NewIntLiteral(pos, 1))),
		ast.NewExprStmt(pos, fieldCall("coroutine", "yield", ast.NewIntLiteral(pos, 2))),
		ast.NewExprStmt(pos, fieldCall("coroutine", "yield", ast.NewIntLiteral(pos, 3))),
	})
	producer := ast.NewFunctionExpr(pos, "", nil, false, producerBody)

	chunk := ast.NewChunk(pos, []ast.Stmt{
		ast.NewLocalStmt(pos, []string{"co"}, []ast.Expr{fieldCall("coroutine", "create", producer)}),
		ast.NewLocalStmt(pos, []string{"sum"}, []ast.Expr{ast.NewIntLiteral(pos, 0)}),
		ast.NewLocalStmt(pos, []string{"ok1", "v1"}, []ast.Expr{fieldCall("coroutine", "resume", ast.NewIdentifier(pos, "co"))}),
		ast.NewLocalStmt(pos, []string{"ok2", "v2"}, []ast.Expr{fieldCall("coroutine", "resume", ast.NewIdentifier(pos, "co"))}),
		ast.NewLocalStmt(pos, []string{"ok3", "v3"}, []ast.Expr{fieldCall("coroutine", "resume", ast.NewIdentifier(pos, "co"))}),
		ast.NewAssignStmt(pos,
			[]ast.Expr{ast.NewIdentifier(pos, "sum")},
			[]ast.Expr{ast.NewBinaryExpr(pos, "+", ast.NewIdentifier(pos, "v1"),
				ast.NewBinaryExpr(pos, "+", ast.NewIdentifier(pos, "v2"), ast.NewIdentifier(pos, "v3")))},
		),
		ast.NewReturnStmt(pos, []ast.Expr{
			ast.NewIdentifier(pos, "ok1"), ast.NewIdentifier(pos, "ok2"), ast.NewIdentifier(pos, "ok3"),
			ast.NewIdentifier(pos, "sum"),
		}),
	})

	ctx := compileAndRun(t, chunk)
	require.Len(t, ctx.LastReturn, 4)
	require.True(t, ctx.LastReturn[0].IsTruthy())
	require.True(t, ctx.LastReturn[1].IsTruthy())
	require.True(t, ctx.LastReturn[2].IsTruthy())
	sum, ok := ctx.LastReturn[3].ToInt()
	require.True(t, ok)
	require.Equal(t, int64(6), sum)
}

// Yielding across a pcall boundary is forbidden: the yield raises inside
// the protected call, so pcall reports false; the coroutine body then
// returns normally and resume succeeds, handing back pcall's results.
func TestYieldAcrossPCallForbidden(t *testing.T) {
	inner := ast.NewFunctionExpr(pos, "", nil, false, ast.NewBlock(pos, []ast.Stmt{
		ast.NewExprStmt(pos, fieldCall("coroutine", "yield", ast.NewIntLiteral(pos, 1))),
	}))
	entryBody := ast.NewBlock(pos, []ast.Stmt{
		ast.NewReturnStmt(pos, []ast.Expr{globalCall("pcall", inner)}),
	})
	entry := ast.NewFunctionExpr(pos, "", nil, false, entryBody)

	chunk := ast.NewChunk(pos, []ast.Stmt{
		ast.NewLocalStmt(pos, []string{"co"}, []ast.Expr{fieldCall("coroutine", "create", entry)}),
		ast.NewLocalStmt(pos, []string{"ok", "pok"}, []ast.Expr{fieldCall("coroutine", "resume", ast.NewIdentifier(pos, "co"))}),
		ast.NewReturnStmt(pos, []ast.Expr{ast.NewIdentifier(pos, "ok"), ast.NewIdentifier(pos, "pok")}),
	})

	ctx := compileAndRun(t, chunk)
	require.Len(t, ctx.LastReturn, 2)
	require.True(t, ctx.LastReturn[0].IsTruthy())
	require.False(t, ctx.LastReturn[1].IsTruthy())
}

// __add dispatches through the left operand's metatable first, then
// the right's, matching Lua's binary-metamethod resolution order.
func TestMetamethodAddBothOperandOrders(t *testing.T) {
	// mt = {}
	// mt.__add = function(a, b) return 99 end
	// t = setmetatable({}, mt)
	// return t + 1, 1 + t
	handler := ast.NewFunctionExpr(pos, "", []string{"a", "b"}, false, ast.NewBlock(pos, []ast.Stmt{
		ast.NewReturnStmt(pos, []ast.Expr{ast.NewIntLiteral(pos, 99)}),
	}))
	chunk := ast.NewChunk(pos, []ast.Stmt{
		ast.NewLocalStmt(pos, []string{"mt"}, []ast.Expr{ast.NewTableConstructor(pos, nil)}),
		ast.NewAssignStmt(pos,
			[]ast.Expr{ast.NewFieldExpr(pos, ast.NewIdentifier(pos, "mt"), "__add")},
			[]ast.Expr{handler},
		),
		ast.NewLocalStmt(pos, []string{"t"}, []ast.Expr{
			globalCall("setmetatable", ast.NewTableConstructor(pos, nil), ast.NewIdentifier(pos, "mt")),
		}),
		ast.NewReturnStmt(pos, []ast.Expr{
			ast.NewBinaryExpr(pos, "+", ast.NewIdentifier(pos, "t"), ast.NewIntLiteral(pos, 1)),
			ast.NewBinaryExpr(pos, "+", ast.NewIntLiteral(pos, 1), ast.NewIdentifier(pos, "t")),
		}),
	})

	ctx := compileAndRun(t, chunk)
	require.Len(t, ctx.LastReturn, 2)
	a, ok := ctx.LastReturn[0].ToInt()
	require.True(t, ok)
	require.Equal(t, int64(99), a)
	b, ok := ctx.LastReturn[1].ToInt()
	require.True(t, ok)
	require.Equal(t, int64(99), b)
}
