package main

import (
	"github.com/AarenWang/haifa-go/ast"
)

// demo is one named, hand-built program this binary can run. Lua
// source text never enters the picture: spec.md treats the lexer and
// parser as an external collaborator out of scope for this module, so
// every demo program is constructed directly against the ast package,
// the same contract compiler/compiler_test.go builds its fixtures
// against.
type demo struct {
	name        string
	description string
	build       func() *ast.Chunk
}

var pos0 = ast.Position{File: "<embedded>", Line: 1, Col: 1}

func ident(name string) *ast.Identifier { return ast.NewIdentifier(pos0, name) }

func intLit(i int64) *ast.Literal { return ast.NewIntLiteral(pos0, i) }

func strLit(s string) *ast.Literal { return ast.NewStringLiteral(pos0, s) }

func callExpr(callee ast.Expr, args ...ast.Expr) *ast.CallExpr {
	return ast.NewCallExpr(pos0, callee, args)
}

func fieldCallExpr(obj, field string, args ...ast.Expr) *ast.CallExpr {
	return callExpr(ast.NewFieldExpr(pos0, ident(obj), field), args...)
}

var demos = []demo{
	{
		name:        "counters",
		description: "two independently-closed over counters sharing no state",
		build:       buildCountersDemo,
	},
	{
		name:        "fib",
		description: "recursive Fibonacci through _ENV-resolved global call",
		build:       buildFibDemo,
	},
	{
		name:        "coroutine",
		description: "producer/consumer coroutine yielding three values",
		build:       buildCoroutineDemo,
	},
}

// buildCountersDemo mirrors spec.md §8's closure scenario: two counters
// built from the same constructor function capture distinct cells and
// never observe each other's increments.
func buildCountersDemo() *ast.Chunk {
	makeCounterBody := ast.NewBlock(pos0, []ast.Stmt{
		ast.NewLocalStmt(pos0, []string{"n"}, []ast.Expr{intLit(0)}),
		ast.NewReturnStmt(pos0, []ast.Expr{
			ast.NewFunctionExpr(pos0, "", nil, false, ast.NewBlock(pos0, []ast.Stmt{
				ast.NewAssignStmt(pos0,
					[]ast.Expr{ident("n")},
					[]ast.Expr{ast.NewBinaryExpr(pos0, "+", ident("n"), intLit(1))},
				),
				ast.NewReturnStmt(pos0, []ast.Expr{ident("n")}),
			})),
		}),
	})
	makeCounter := ast.NewFunctionExpr(pos0, "", nil, false, makeCounterBody)

	return ast.NewChunk(pos0, []ast.Stmt{
		ast.NewLocalStmt(pos0, []string{"makeCounter"}, []ast.Expr{makeCounter}),
		ast.NewLocalStmt(pos0, []string{"a"}, []ast.Expr{callExpr(ident("makeCounter"))}),
		ast.NewLocalStmt(pos0, []string{"b"}, []ast.Expr{callExpr(ident("makeCounter"))}),
		ast.NewExprStmt(pos0, callExpr(ident("a"))),
		ast.NewExprStmt(pos0, callExpr(ident("a"))),
		ast.NewReturnStmt(pos0, []ast.Expr{
			callExpr(ident("a")),
			callExpr(ident("b")),
		}),
	})
}

// buildFibDemo exercises a global (_ENV-resolved) self-recursive
// function, the one recursion shape `local function` can't express.
func buildFibDemo() *ast.Chunk {
	fibBody := ast.NewBlock(pos0, []ast.Stmt{
		ast.NewIfStmt(pos0, []ast.IfClause{
			{
				Cond: ast.NewBinaryExpr(pos0, "<", ident("n"), intLit(2)),
				Body: ast.NewBlock(pos0, []ast.Stmt{
					ast.NewReturnStmt(pos0, []ast.Expr{ident("n")}),
				}),
			},
		}, nil),
		ast.NewReturnStmt(pos0, []ast.Expr{
			ast.NewBinaryExpr(pos0, "+",
				callExpr(ident("fib"), ast.NewBinaryExpr(pos0, "-", ident("n"), intLit(1))),
				callExpr(ident("fib"), ast.NewBinaryExpr(pos0, "-", ident("n"), intLit(2))),
			),
		}),
	})
	fib := ast.NewFunctionExpr(pos0, "fib", []string{"n"}, false, fibBody)

	return ast.NewChunk(pos0, []ast.Stmt{
		ast.NewAssignStmt(pos0, []ast.Expr{ident("fib")}, []ast.Expr{fib}),
		ast.NewReturnStmt(pos0, []ast.Expr{callExpr(ident("fib"), intLit(10))}),
	})
}

// buildCoroutineDemo exercises coroutine.create/resume/yield end to
// end, spec.md §8's producer/consumer scenario.
func buildCoroutineDemo() *ast.Chunk {
	producerBody := ast.NewBlock(pos0, []ast.Stmt{
		ast.NewExprStmt(pos0, fieldCallExpr("coroutine", "yield", strLit("one"))),
		ast.NewExprStmt(pos0, fieldCallExpr("coroutine", "yield", strLit("two"))),
		ast.NewExprStmt(pos0, fieldCallExpr("coroutine", "yield", strLit("three"))),
	})
	producer := ast.NewFunctionExpr(pos0, "", nil, false, producerBody)

	return ast.NewChunk(pos0, []ast.Stmt{
		ast.NewLocalStmt(pos0, []string{"co"}, []ast.Expr{fieldCallExpr("coroutine", "create", producer)}),
		ast.NewLocalStmt(pos0, []string{"ok1", "v1"}, []ast.Expr{fieldCallExpr("coroutine", "resume", ident("co"))}),
		ast.NewLocalStmt(pos0, []string{"ok2", "v2"}, []ast.Expr{fieldCallExpr("coroutine", "resume", ident("co"))}),
		ast.NewLocalStmt(pos0, []string{"ok3", "v3"}, []ast.Expr{fieldCallExpr("coroutine", "resume", ident("co"))}),
		ast.NewReturnStmt(pos0, []ast.Expr{ident("v1"), ident("v2"), ident("v3")}),
	})
}

func findDemo(name string) (demo, bool) {
	for _, d := range demos {
		if d.name == name {
			return d, true
		}
	}
	return demo{}, false
}
