// Package ast defines the shape of the Lua AST the compiler consumes.
// The lexer and parser that produce these nodes are an external
// collaborator (see spec.md §1 "Out of scope") — this package only
// documents the contract between them and the compiler, grounded on the
// teacher's ast.Node/Visitor shape (GetKind/GetPosition/GetChildren/
// Accept), trimmed to the Lua subset spec.md's compiler section touches.
package ast

// Position is a source location, attached to every node for debug-info
// generation (spec.md §3 "Instruction… debug").
type Position struct {
	File string
	Line int
	Col  int
}

// Kind tags the concrete type of a Node, mirroring the teacher's ASTKind
// enum + String() pattern.
type Kind int

const (
	KindChunk Kind = iota
	KindBlock
	KindLocalStmt
	KindAssignStmt
	KindNumericForStmt
	KindGenericForStmt
	KindWhileStmt
	KindRepeatStmt
	KindIfStmt
	KindFunctionExpr
	KindGotoStmt
	KindLabelStmt
	KindReturnStmt
	KindBreakStmt
	KindCallExpr
	KindTableConstructor
	KindBinaryExpr
	KindUnaryExpr
	KindIdentifier
	KindLiteral
	KindVarargExpr
	KindIndexExpr
	KindFieldExpr
	KindExprStmt
)

func (k Kind) String() string {
	names := [...]string{
		"Chunk", "Block", "LocalStmt", "AssignStmt", "NumericForStmt",
		"GenericForStmt", "WhileStmt", "RepeatStmt", "IfStmt",
		"FunctionExpr", "GotoStmt", "LabelStmt", "ReturnStmt", "BreakStmt",
		"CallExpr", "TableConstructor", "BinaryExpr", "UnaryExpr",
		"Identifier", "Literal", "VarargExpr", "IndexExpr", "FieldExpr",
		"ExprStmt",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Node is the interface every AST node implements.
type Node interface {
	GetKind() Kind
	GetPosition() Position
	GetChildren() []Node
}

// Stmt and Expr are marker interfaces distinguishing statement- and
// expression-position nodes, mirroring the teacher's Statement/
// Expression marker interfaces.
type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

type base struct {
	Kind Kind
	Pos  Position
}

func (b base) GetKind() Kind         { return b.Kind }
func (b base) GetPosition() Position { return b.Pos }

// Chunk is the root of a compiled source file: a sequence of statements.
type Chunk struct {
	base
	Body []Stmt
}

func NewChunk(pos Position, body []Stmt) *Chunk {
	return &Chunk{base: base{KindChunk, pos}, Body: body}
}
func (c *Chunk) GetChildren() []Node {
	out := make([]Node, len(c.Body))
	for i, s := range c.Body {
		out[i] = s
	}
	return out
}

// Block is a lexical block: a new scope containing a statement list.
type Block struct {
	base
	Body []Stmt
}

func (b *Block) GetChildren() []Node {
	out := make([]Node, len(b.Body))
	for i, s := range b.Body {
		out[i] = s
	}
	return out
}
func (b *Block) stmtNode() {}

func NewBlock(pos Position, body []Stmt) *Block {
	return &Block{base: base{KindBlock, pos}, Body: body}
}

// Identifier is a name reference (variable, label, function parameter).
type Identifier struct {
	base
	Name string
}

func NewIdentifier(pos Position, name string) *Identifier {
	return &Identifier{base: base{KindIdentifier, pos}, Name: name}
}
func (i *Identifier) GetChildren() []Node { return nil }
func (i *Identifier) exprNode()           {}

// LiteralKind distinguishes the Go-level payload type of a Literal.
type LiteralKind int

const (
	LitNil LiteralKind = iota
	LitBool
	LitInt
	LitFloat
	LitString
)

// Literal is a constant value occurring in source.
type Literal struct {
	base
	Kind  LiteralKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

func NewNilLiteral(pos Position) *Literal { return &Literal{base: base{KindLiteral, pos}, Kind: LitNil} }
func NewBoolLiteral(pos Position, b bool) *Literal {
	return &Literal{base: base{KindLiteral, pos}, Kind: LitBool, Bool: b}
}
func NewIntLiteral(pos Position, i int64) *Literal {
	return &Literal{base: base{KindLiteral, pos}, Kind: LitInt, Int: i}
}
func NewFloatLiteral(pos Position, f float64) *Literal {
	return &Literal{base: base{KindLiteral, pos}, Kind: LitFloat, Float: f}
}
func NewStringLiteral(pos Position, s string) *Literal {
	return &Literal{base: base{KindLiteral, pos}, Kind: LitString, Str: s}
}
func (l *Literal) GetChildren() []Node { return nil }
func (l *Literal) exprNode()           {}

// VarargExpr is the `...` expression inside a vararg function.
type VarargExpr struct{ base }

func NewVarargExpr(pos Position) *VarargExpr { return &VarargExpr{base{KindVarargExpr, pos}} }
func (v *VarargExpr) GetChildren() []Node    { return nil }
func (v *VarargExpr) exprNode()              {}

// BinaryExpr is a binary operator application, including `and`/`or`
// (compiled with short-circuit branches, see spec.md §4.1 note).
type BinaryExpr struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

func NewBinaryExpr(pos Position, op string, l, r Expr) *BinaryExpr {
	return &BinaryExpr{base: base{KindBinaryExpr, pos}, Op: op, Left: l, Right: r}
}
func (b *BinaryExpr) GetChildren() []Node { return []Node{b.Left, b.Right} }
func (b *BinaryExpr) exprNode()           {}

// UnaryExpr is a unary operator application (-, not, #, ~).
type UnaryExpr struct {
	base
	Op      string
	Operand Expr
}

func NewUnaryExpr(pos Position, op string, operand Expr) *UnaryExpr {
	return &UnaryExpr{base: base{KindUnaryExpr, pos}, Op: op, Operand: operand}
}
func (u *UnaryExpr) GetChildren() []Node { return []Node{u.Operand} }
func (u *UnaryExpr) exprNode()           {}

// IndexExpr is `t[k]`.
type IndexExpr struct {
	base
	Table Expr
	Key   Expr
}

func NewIndexExpr(pos Position, table, key Expr) *IndexExpr {
	return &IndexExpr{base: base{KindIndexExpr, pos}, Table: table, Key: key}
}
func (e *IndexExpr) GetChildren() []Node { return []Node{e.Table, e.Key} }
func (e *IndexExpr) exprNode()           {}

// FieldExpr is `t.name`, sugar for IndexExpr with a string-literal key.
type FieldExpr struct {
	base
	Table Expr
	Name  string
}

func NewFieldExpr(pos Position, table Expr, name string) *FieldExpr {
	return &FieldExpr{base: base{KindFieldExpr, pos}, Table: table, Name: name}
}
func (e *FieldExpr) GetChildren() []Node { return []Node{e.Table} }
func (e *FieldExpr) exprNode()           {}

// CallExpr is a function call or method call. The node carries no
// expansion marker: the compiler expands its results from the call's
// position (the last expr in an arg list, a return list, a table
// constructor, or an assignment RHS).
type CallExpr struct {
	base
	Callee Expr
	Args   []Expr
}

func NewCallExpr(pos Position, callee Expr, args []Expr) *CallExpr {
	return &CallExpr{base: base{KindCallExpr, pos}, Callee: callee, Args: args}
}
func (c *CallExpr) GetChildren() []Node {
	out := make([]Node, 0, len(c.Args)+1)
	out = append(out, c.Callee)
	for _, a := range c.Args {
		out = append(out, a)
	}
	return out
}
func (c *CallExpr) exprNode() {}

// TableField is one entry of a table constructor. A nil Key means a
// positional (array-part) entry.
type TableField struct {
	Key   Expr
	Value Expr
}

// TableConstructor is `{ ... }`.
type TableConstructor struct {
	base
	Fields []TableField
}

func NewTableConstructor(pos Position, fields []TableField) *TableConstructor {
	return &TableConstructor{base: base{KindTableConstructor, pos}, Fields: fields}
}
func (t *TableConstructor) GetChildren() []Node {
	var out []Node
	for _, f := range t.Fields {
		if f.Key != nil {
			out = append(out, f.Key)
		}
		out = append(out, f.Value)
	}
	return out
}
func (t *TableConstructor) exprNode() {}

// FunctionExpr is a function literal: parameter list, vararg flag, body.
// Name is set for `function foo(...) ... end` declarations (used for
// traceback display names); anonymous function literals leave it empty.
type FunctionExpr struct {
	base
	Name     string
	Params   []string
	IsVararg bool
	Body     *Block
}

func NewFunctionExpr(pos Position, name string, params []string, isVararg bool, body *Block) *FunctionExpr {
	return &FunctionExpr{base: base{KindFunctionExpr, pos}, Name: name, Params: params, IsVararg: isVararg, Body: body}
}
func (f *FunctionExpr) GetChildren() []Node { return []Node{f.Body} }
func (f *FunctionExpr) exprNode()           {}

// LocalStmt is `local a, b, c = e1, e2, e3`.
type LocalStmt struct {
	base
	Names []string
	Exprs []Expr
}

func NewLocalStmt(pos Position, names []string, exprs []Expr) *LocalStmt {
	return &LocalStmt{base: base{KindLocalStmt, pos}, Names: names, Exprs: exprs}
}
func (s *LocalStmt) GetChildren() []Node {
	out := make([]Node, len(s.Exprs))
	for i, e := range s.Exprs {
		out[i] = e
	}
	return out
}
func (s *LocalStmt) stmtNode() {}

// AssignStmt is `a, b, c = e1, e2, e3` for already-declared targets
// (identifiers, index expressions, or field expressions).
type AssignStmt struct {
	base
	Targets []Expr
	Exprs   []Expr
}

func NewAssignStmt(pos Position, targets, exprs []Expr) *AssignStmt {
	return &AssignStmt{base: base{KindAssignStmt, pos}, Targets: targets, Exprs: exprs}
}
func (s *AssignStmt) GetChildren() []Node {
	out := append([]Node{}, exprsToNodes(s.Targets)...)
	return append(out, exprsToNodes(s.Exprs)...)
}
func (s *AssignStmt) stmtNode() {}

func exprsToNodes(es []Expr) []Node {
	out := make([]Node, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// NumericForStmt is `for i = start, limit, step do body end`.
type NumericForStmt struct {
	base
	Var          string
	Start, Limit Expr
	Step         Expr // nil means literal 1
	Body         *Block
}

func NewNumericForStmt(pos Position, v string, start, limit, step Expr, body *Block) *NumericForStmt {
	return &NumericForStmt{base: base{KindNumericForStmt, pos}, Var: v, Start: start, Limit: limit, Step: step, Body: body}
}
func (s *NumericForStmt) GetChildren() []Node {
	nodes := []Node{s.Start, s.Limit}
	if s.Step != nil {
		nodes = append(nodes, s.Step)
	}
	return append(nodes, s.Body)
}
func (s *NumericForStmt) stmtNode() {}

// GenericForStmt is `for k, v in iter, state, ctrl do body end`.
type GenericForStmt struct {
	base
	Names []string
	Exprs []Expr // iterator, state, initial control
	Body  *Block
}

func NewGenericForStmt(pos Position, names []string, exprs []Expr, body *Block) *GenericForStmt {
	return &GenericForStmt{base: base{KindGenericForStmt, pos}, Names: names, Exprs: exprs, Body: body}
}
func (s *GenericForStmt) GetChildren() []Node {
	return append(exprsToNodes(s.Exprs), s.Body)
}
func (s *GenericForStmt) stmtNode() {}

// WhileStmt is `while cond do body end`.
type WhileStmt struct {
	base
	Cond Expr
	Body *Block
}

func NewWhileStmt(pos Position, cond Expr, body *Block) *WhileStmt {
	return &WhileStmt{base: base{KindWhileStmt, pos}, Cond: cond, Body: body}
}
func (s *WhileStmt) GetChildren() []Node { return []Node{s.Cond, s.Body} }
func (s *WhileStmt) stmtNode()           {}

// RepeatStmt is `repeat body until cond` — cond is in scope of body's
// locals, unlike while.
type RepeatStmt struct {
	base
	Body *Block
	Cond Expr
}

func NewRepeatStmt(pos Position, body *Block, cond Expr) *RepeatStmt {
	return &RepeatStmt{base: base{KindRepeatStmt, pos}, Body: body, Cond: cond}
}
func (s *RepeatStmt) GetChildren() []Node { return []Node{s.Body, s.Cond} }
func (s *RepeatStmt) stmtNode()           {}

// IfClause is one `if`/`elseif` arm.
type IfClause struct {
	Cond Expr
	Body *Block
}

// IfStmt is `if c1 then b1 elseif c2 then b2 else be end`.
type IfStmt struct {
	base
	Clauses []IfClause
	Else    *Block // nil if no else branch
}

func NewIfStmt(pos Position, clauses []IfClause, elseBlock *Block) *IfStmt {
	return &IfStmt{base: base{KindIfStmt, pos}, Clauses: clauses, Else: elseBlock}
}
func (s *IfStmt) GetChildren() []Node {
	var out []Node
	for _, c := range s.Clauses {
		out = append(out, c.Cond, c.Body)
	}
	if s.Else != nil {
		out = append(out, s.Else)
	}
	return out
}
func (s *IfStmt) stmtNode() {}

// GotoStmt is `goto label`.
type GotoStmt struct {
	base
	Label string
}

func NewGotoStmt(pos Position, label string) *GotoStmt {
	return &GotoStmt{base: base{KindGotoStmt, pos}, Label: label}
}
func (s *GotoStmt) GetChildren() []Node { return nil }
func (s *GotoStmt) stmtNode()           {}

// LabelStmt is `::label::`.
type LabelStmt struct {
	base
	Name string
}

func NewLabelStmt(pos Position, name string) *LabelStmt {
	return &LabelStmt{base: base{KindLabelStmt, pos}, Name: name}
}
func (s *LabelStmt) GetChildren() []Node { return nil }
func (s *LabelStmt) stmtNode()           {}

// ReturnStmt is `return e1, e2, ...`.
type ReturnStmt struct {
	base
	Exprs []Expr
}

func NewReturnStmt(pos Position, exprs []Expr) *ReturnStmt {
	return &ReturnStmt{base: base{KindReturnStmt, pos}, Exprs: exprs}
}
func (s *ReturnStmt) GetChildren() []Node { return exprsToNodes(s.Exprs) }
func (s *ReturnStmt) stmtNode()           {}

// BreakStmt is `break`.
type BreakStmt struct{ base }

func NewBreakStmt(pos Position) *BreakStmt { return &BreakStmt{base{KindBreakStmt, pos}} }
func (s *BreakStmt) GetChildren() []Node   { return nil }
func (s *BreakStmt) stmtNode()             {}

// ExprStmt is an expression used as a statement (a bare call).
type ExprStmt struct {
	base
	X Expr
}

func NewExprStmt(pos Position, x Expr) *ExprStmt {
	return &ExprStmt{base: base{KindExprStmt, pos}, X: x}
}
func (s *ExprStmt) GetChildren() []Node { return []Node{s.X} }
func (s *ExprStmt) stmtNode()           {}
