package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkChildren(t *testing.T) {
	pos := Position{File: "t.lua", Line: 1}
	ret := NewReturnStmt(pos, []Expr{NewIntLiteral(pos, 1)})
	chunk := NewChunk(pos, []Stmt{ret})

	require.Equal(t, KindChunk, chunk.GetKind())
	require.Len(t, chunk.GetChildren(), 1)
	require.Equal(t, KindReturnStmt, chunk.GetChildren()[0].GetKind())
}

func TestBinaryExprChildren(t *testing.T) {
	pos := Position{Line: 2}
	bin := NewBinaryExpr(pos, "+", NewIntLiteral(pos, 1), NewIntLiteral(pos, 2))
	require.Len(t, bin.GetChildren(), 2)
}

func TestNumericForChildrenIncludesOptionalStep(t *testing.T) {
	pos := Position{Line: 3}
	body := NewBlock(pos, nil)
	withoutStep := NewNumericForStmt(pos, "i", NewIntLiteral(pos, 1), NewIntLiteral(pos, 10), nil, body)
	require.Len(t, withoutStep.GetChildren(), 3)

	withStep := NewNumericForStmt(pos, "i", NewIntLiteral(pos, 1), NewIntLiteral(pos, 10), NewIntLiteral(pos, 2), body)
	require.Len(t, withStep.GetChildren(), 4)
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	require.Equal(t, "IfStmt", KindIfStmt.String())
	require.Equal(t, "Unknown", Kind(999).String())
}
