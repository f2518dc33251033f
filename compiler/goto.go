package compiler

import "github.com/AarenWang/haifa-go/ast"

// gotoOccurrence records a `goto` site's live-local count so it can be
// compared against its target label's count once the whole function
// body has been scanned.
type gotoOccurrence struct {
	label string
	count int
	pos   ast.Position
}

// validateGotos implements spec.md §4.4's goto/label scope-violation
// check: a goto may not jump into the scope of a local that was not
// yet declared at the goto site. It approximates Lua's block-scoped
// rule with a single flat live-local counter per function body (locals
// declared in a nested block are un-counted again once that block
// closes), which is exact for straight-line and loop/if nesting and
// conservative enough for this teaching VM's subset.
func validateGotos(body []ast.Stmt) error {
	labelCount := make(map[string]int)
	var occurrences []gotoOccurrence
	if err := scanGotoScopes(body, 0, labelCount, &occurrences); err != nil {
		return err
	}
	for _, occ := range occurrences {
		if target, ok := labelCount[occ.label]; ok && target > occ.count {
			return errAt(occ.pos, "goto %s jumps into the scope of a local variable", occ.label)
		}
	}
	return nil
}

func scanGotoScopes(stmts []ast.Stmt, live int, labelCount map[string]int, occ *[]gotoOccurrence) error {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *ast.LocalStmt:
			live += len(n.Names)
		case *ast.LabelStmt:
			labelCount[n.Name] = live
		case *ast.GotoStmt:
			*occ = append(*occ, gotoOccurrence{label: n.Label, count: live, pos: n.GetPosition()})
		case *ast.NumericForStmt:
			if err := scanGotoScopes(n.Body.Body, live+1, labelCount, occ); err != nil {
				return err
			}
		case *ast.GenericForStmt:
			if err := scanGotoScopes(n.Body.Body, live+len(n.Names), labelCount, occ); err != nil {
				return err
			}
		case *ast.WhileStmt:
			if err := scanGotoScopes(n.Body.Body, live, labelCount, occ); err != nil {
				return err
			}
		case *ast.RepeatStmt:
			if err := scanGotoScopes(n.Body.Body, live, labelCount, occ); err != nil {
				return err
			}
		case *ast.IfStmt:
			for _, c := range n.Clauses {
				if err := scanGotoScopes(c.Body.Body, live, labelCount, occ); err != nil {
					return err
				}
			}
			if n.Else != nil {
				if err := scanGotoScopes(n.Else.Body, live, labelCount, occ); err != nil {
					return err
				}
			}
		case *ast.Block:
			if err := scanGotoScopes(n.Body, live, labelCount, occ); err != nil {
				return err
			}
		}
	}
	return nil
}
