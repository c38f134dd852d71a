package analysis

import "tensorc/internal/ir"

// VariesWithLoop decides whether e's value varies with iter's index: it
// does unless every atom of e's linear form is either a constant or a
// variable/load provably independent of iter. Loads are conservatively
// treated as varying whenever any of their indices vary, since the
// variance analysis does not itself prove the loaded value is invariant.
func VariesWithLoop(e ir.Expr, iter string) bool {
	return varies(e, iter, map[ir.Expr]bool{})
}

func varies(e ir.Expr, iter string, seen map[ir.Expr]bool) bool {
	if e == nil {
		return false
	}
	if seen[e] {
		return false
	}
	seen[e] = true
	switch n := e.(type) {
	case *ir.VarExpr:
		return n.Name == iter
	case *ir.IntConst, *ir.FloatConst, *ir.BoolConst:
		return false
	case *ir.LoadExpr:
		for _, idx := range n.Indices {
			if varies(idx, iter, seen) {
				return true
			}
		}
		return false
	case *ir.BinaryExpr:
		return varies(n.LHS, iter, seen) || varies(n.RHS, iter, seen)
	case *ir.MinMaxExpr:
		return varies(n.LHS, iter, seen) || varies(n.RHS, iter, seen)
	case *ir.CompareExpr:
		return varies(n.LHS, iter, seen) || varies(n.RHS, iter, seen)
	case *ir.LogicalExpr:
		return varies(n.LHS, iter, seen) || (n.RHS != nil && varies(n.RHS, iter, seen))
	case *ir.UnaryExpr:
		return varies(n.Arg, iter, seen)
	case *ir.IfExpr:
		return varies(n.Cond, iter, seen) || varies(n.Then, iter, seen) || varies(n.Else, iter, seen)
	case *ir.CastExpr:
		return varies(n.Arg, iter, seen)
	case *ir.IntrinsicExpr:
		for _, a := range n.Args {
			if varies(a, iter, seen) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// StmtVariesWithLoop decides whether executing s could observe a different
// value across iterations of iter: true if any condition, index, or
// written expression it contains varies with iter. No pass calls it:
// merge-and-hoist-if decides hoisting with VariesWithLoop on the If's
// condition alone.
func StmtVariesWithLoop(s ir.Stmt, iter string) bool {
	v := &varianceVisitor{iter: iter}
	v.Self = v
	v.VisitStmt(s)
	return v.found
}

type varianceVisitor struct {
	ir.BaseVisitor
	iter  string
	found bool
}

func (v *varianceVisitor) VisitExpr(e ir.Expr) {
	if v.found || e == nil {
		return
	}
	if varies(e, v.iter, map[ir.Expr]bool{}) {
		v.found = true
		return
	}
	v.BaseVisitor.VisitExpr(e)
}

func (v *varianceVisitor) VisitStmt(s ir.Stmt) {
	if v.found || s == nil {
		return
	}
	v.BaseVisitor.VisitStmt(s)
}
