package compiler

import "github.com/AarenWang/haifa-go/ast"

// envName is the synthetic local the root chunk binds to the global
// table, threaded into every nested function that touches a free name
// exactly like any other captured local -- spec.md's "global
// environment is just a table" becomes, in this compiler, an ordinary
// upvalue chain rooted at one cell nobody but generated code ever sees.
const envName = "_ENV"

// scopeInfo is the per-function result of the free-variable analysis
// pass: which of its own locals must be boxed into Cells because some
// nested function reaches into them, and which outer names it must
// itself receive as upvalues, grounded on the teacher's compiler/
// compiler.go Scope{variables, parent, nextSlot} shape, generalized
// from slot-based locals to a name-based capture analysis since this
// compiler's registers are symbolic rather than numbered slots.
type scopeInfo struct {
	parent   *scopeInfo
	locals   map[string]bool
	captured map[string]bool

	external     []string // names this function needs from its parent, in first-use order
	externalSeen map[string]bool
}

func newScopeInfo(parent *scopeInfo) *scopeInfo {
	return &scopeInfo{
		parent:       parent,
		locals:       make(map[string]bool),
		captured:     make(map[string]bool),
		externalSeen: make(map[string]bool),
	}
}

// analyzeScopes walks the whole chunk once, producing a scopeInfo for
// the root chunk and for every nested function literal, keyed by AST
// node identity so the codegen pass can look each one up when it
// reaches the corresponding node.
func analyzeScopes(chunk *ast.Chunk) map[ast.Node]*scopeInfo {
	root := newScopeInfo(nil)
	root.locals[envName] = true
	out := map[ast.Node]*scopeInfo{chunk: root}
	for _, stmt := range chunk.Body {
		analyzeStmt(stmt, root, out)
	}
	return out
}

func analyzeStmt(node ast.Stmt, s *scopeInfo, out map[ast.Node]*scopeInfo) {
	switch n := node.(type) {
	case *ast.LocalStmt:
		for _, e := range n.Exprs {
			analyzeExpr(e, s, out)
		}
		for _, name := range n.Names {
			s.locals[name] = true
		}
	case *ast.AssignStmt:
		for _, t := range n.Targets {
			analyzeExpr(t, s, out)
		}
		for _, e := range n.Exprs {
			analyzeExpr(e, s, out)
		}
	case *ast.NumericForStmt:
		analyzeExpr(n.Start, s, out)
		analyzeExpr(n.Limit, s, out)
		if n.Step != nil {
			analyzeExpr(n.Step, s, out)
		}
		s.locals[n.Var] = true
		analyzeBlock(n.Body, s, out)
	case *ast.GenericForStmt:
		for _, e := range n.Exprs {
			analyzeExpr(e, s, out)
		}
		for _, name := range n.Names {
			s.locals[name] = true
		}
		analyzeBlock(n.Body, s, out)
	case *ast.WhileStmt:
		analyzeExpr(n.Cond, s, out)
		analyzeBlock(n.Body, s, out)
	case *ast.RepeatStmt:
		analyzeBlock(n.Body, s, out)
		analyzeExpr(n.Cond, s, out)
	case *ast.IfStmt:
		for _, c := range n.Clauses {
			analyzeExpr(c.Cond, s, out)
			analyzeBlock(c.Body, s, out)
		}
		if n.Else != nil {
			analyzeBlock(n.Else, s, out)
		}
	case *ast.ReturnStmt:
		for _, e := range n.Exprs {
			analyzeExpr(e, s, out)
		}
	case *ast.ExprStmt:
		analyzeExpr(n.X, s, out)
	case *ast.Block:
		analyzeBlock(n, s, out)
	case *ast.GotoStmt, *ast.LabelStmt, *ast.BreakStmt:
		// no variable references
	default:
		for _, c := range node.GetChildren() {
			if e, ok := c.(ast.Expr); ok {
				analyzeExpr(e, s, out)
			}
		}
	}
}

func analyzeBlock(b *ast.Block, s *scopeInfo, out map[ast.Node]*scopeInfo) {
	for _, stmt := range b.Body {
		analyzeStmt(stmt, s, out)
	}
}

func analyzeExpr(node ast.Expr, s *scopeInfo, out map[ast.Node]*scopeInfo) {
	if node == nil {
		return
	}
	switch n := node.(type) {
	case *ast.Identifier:
		resolveIdentifierUse(n.Name, s)
	case *ast.FunctionExpr:
		child := newScopeInfo(s)
		for _, p := range n.Params {
			child.locals[p] = true
		}
		out[n] = child
		analyzeBlock(n.Body, child, out)
	case *ast.BinaryExpr:
		analyzeExpr(n.Left, s, out)
		analyzeExpr(n.Right, s, out)
	case *ast.UnaryExpr:
		analyzeExpr(n.Operand, s, out)
	case *ast.IndexExpr:
		analyzeExpr(n.Table, s, out)
		analyzeExpr(n.Key, s, out)
	case *ast.FieldExpr:
		analyzeExpr(n.Table, s, out)
	case *ast.CallExpr:
		analyzeExpr(n.Callee, s, out)
		for _, a := range n.Args {
			analyzeExpr(a, s, out)
		}
	case *ast.TableConstructor:
		for _, f := range n.Fields {
			if f.Key != nil {
				analyzeExpr(f.Key, s, out)
			}
			analyzeExpr(f.Value, s, out)
		}
	case *ast.Literal, *ast.VarargExpr:
		// no variable references
	default:
		for _, c := range node.GetChildren() {
			if e, ok := c.(ast.Expr); ok {
				analyzeExpr(e, s, out)
			}
		}
	}
}

// resolveIdentifierUse walks the scope chain from s outward looking for
// a declaration of name. If found at some ancestor, every scope strictly
// between s and the owner (inclusive of s) now needs name threaded in
// as an upvalue, and the owner must box its local into a Cell. If name
// is never declared anywhere, it falls back to the same mechanism via
// envName, turning the reference into an indexed lookup on the root
// _ENV table instead of leaving it unresolved.
func resolveIdentifierUse(name string, s *scopeInfo) {
	var chain []*scopeInfo
	cur := s
	for cur != nil {
		if cur.locals[name] {
			if cur != s {
				cur.captured[name] = true
			}
			for _, mid := range chain {
				mid.addExternal(name)
			}
			return
		}
		chain = append(chain, cur)
		cur = cur.parent
	}
	if name == envName {
		return
	}
	resolveIdentifierUse(envName, s)
}

func (s *scopeInfo) addExternal(name string) {
	if s.externalSeen[name] {
		return
	}
	s.externalSeen[name] = true
	s.external = append(s.external, name)
}
