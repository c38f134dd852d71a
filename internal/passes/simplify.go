package passes

import "tensorc/internal/ir"

// Simplify runs the algebraic rewrite to a fixpoint, the spec's `simplify`
// pass (§4.4). The rewrites are purely structural: no bound inference is
// consulted, so facts that only loop ranges prove are not used. Each
// iteration rewrites every expression
// bottom-up with simplifyExpr; the outer RunToFixpoint driver detects when
// an iteration produces a structurally identical tree and stops.
func Simplify(s ir.Stmt) (ir.Stmt, error) {
	return RunToFixpoint(simplifyOnce, s, 64)
}

func simplifyOnce(s ir.Stmt) (ir.Stmt, error) {
	m := &simplifyMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type simplifyMutator struct {
	ir.BaseMutator
}

func (m *simplifyMutator) MutateExpr(e ir.Expr) ir.Expr {
	rebuilt := m.BaseMutator.MutateExpr(e)
	return simplifyExpr(rebuilt)
}

// simplifyExpr picks the structurally simplest equivalent form of a
// single, already-simplified-below expression node.
func simplifyExpr(e ir.Expr) ir.Expr {
	switch n := e.(type) {
	case *ir.BinaryExpr:
		return simplifyBinary(n)
	case *ir.CompareExpr:
		return simplifyCompare(n)
	case *ir.LogicalExpr:
		return simplifyLogical(n)
	case *ir.MinMaxExpr:
		return simplifyMinMax(n)
	case *ir.IfExpr:
		return simplifyIfExpr(n)
	case *ir.CastExpr:
		if n.DType == inferDType(n.Arg) {
			return n.Arg
		}
		return n
	default:
		return e
	}
}

func simplifyBinary(n *ir.BinaryExpr) ir.Expr {
	l, r := n.LHS, n.RHS
	if (n.Op == ir.Add || n.Op == ir.Mul) && canonicallyBefore(r, l) {
		l, r = r, l
		n = ir.NewBinary(n.Op, l, r)
	}
	switch n.Op {
	case ir.Add:
		if isZero(l) {
			return r
		}
		if isZero(r) {
			return l
		}
		if lc, ok := intOf(l); ok {
			if rc, ok := intOf(r); ok {
				return ir.NewIntConst(lc + rc)
			}
		}
	case ir.Sub:
		if isZero(r) {
			return l
		}
		if ir.EqualExpr(l, r, false) {
			return ir.NewIntConst(0)
		}
		if lc, ok := intOf(l); ok {
			if rc, ok := intOf(r); ok {
				return ir.NewIntConst(lc - rc)
			}
		}
		// (a + b) - b  ==  a
		if add, ok := l.(*ir.BinaryExpr); ok && add.Op == ir.Add {
			if ir.EqualExpr(add.RHS, r, false) {
				return add.LHS
			}
			if ir.EqualExpr(add.LHS, r, false) {
				return add.RHS
			}
		}
	case ir.Mul:
		if lc, ok := intOf(l); ok && lc == 0 {
			return ir.NewIntConst(0)
		}
		if rc, ok := intOf(r); ok && rc == 0 {
			return ir.NewIntConst(0)
		}
		if isOne(l) {
			return r
		}
		if isOne(r) {
			return l
		}
		if lc, ok := intOf(l); ok {
			if rc, ok := intOf(r); ok {
				return ir.NewIntConst(lc * rc)
			}
		}
	case ir.FloorDiv, ir.RealDiv, ir.RoundTowards0Div:
		if isOne(r) {
			return l
		}
	}
	return n
}

func simplifyCompare(n *ir.CompareExpr) ir.Expr {
	if lc, ok := intOf(n.LHS); ok {
		if rc, ok := intOf(n.RHS); ok {
			v := compareInts(n.Op, lc, rc)
			return ir.NewBoolConst(v)
		}
	}
	if ir.EqualExpr(n.LHS, n.RHS, false) {
		switch n.Op {
		case ir.LE, ir.GE, ir.EQ:
			return ir.NewBoolConst(true)
		case ir.LT, ir.GT, ir.NE:
			return ir.NewBoolConst(false)
		}
	}
	return n
}

func compareInts(op ir.CompareOp, a, b int64) bool {
	switch op {
	case ir.LT:
		return a < b
	case ir.LE:
		return a <= b
	case ir.GT:
		return a > b
	case ir.GE:
		return a >= b
	case ir.EQ:
		return a == b
	case ir.NE:
		return a != b
	default:
		return false
	}
}

func simplifyLogical(n *ir.LogicalExpr) ir.Expr {
	switch n.Op {
	case ir.LAnd:
		if isFalseConst(n.LHS) || isFalseConst(n.RHS) {
			return ir.NewBoolConst(false)
		}
		if isTrueConst(n.LHS) {
			return n.RHS
		}
		if isTrueConst(n.RHS) {
			return n.LHS
		}
	case ir.LOr:
		if isTrueConst(n.LHS) || isTrueConst(n.RHS) {
			return ir.NewBoolConst(true)
		}
		if isFalseConst(n.LHS) {
			return n.RHS
		}
		if isFalseConst(n.RHS) {
			return n.LHS
		}
	case ir.LNot:
		if b, ok := n.LHS.(*ir.BoolConst); ok {
			return ir.NewBoolConst(!b.Value)
		}
		if cmp, ok := n.LHS.(*ir.CompareExpr); ok {
			return ir.NewCompare(cmp.Op.Negate(), cmp.LHS, cmp.RHS)
		}
	}
	return n
}

func simplifyMinMax(n *ir.MinMaxExpr) ir.Expr {
	if ir.EqualExpr(n.LHS, n.RHS, false) {
		return n.LHS
	}
	if lc, ok := intOf(n.LHS); ok {
		if rc, ok := intOf(n.RHS); ok {
			if n.IsMax {
				if lc >= rc {
					return n.LHS
				}
				return n.RHS
			}
			if lc <= rc {
				return n.LHS
			}
			return n.RHS
		}
	}
	return n
}

func simplifyIfExpr(n *ir.IfExpr) ir.Expr {
	if b, ok := n.Cond.(*ir.BoolConst); ok {
		if b.Value {
			return n.Then
		}
		return n.Else
	}
	if ir.EqualExpr(n.Then, n.Else, false) {
		return n.Then
	}
	return n
}

// canonicallyBefore orders operands of a commutative op so repeated
// simplification converges instead of oscillating between "2*x" and
// "x*2": constants sort before non-constants, and ties break on the
// printed form so equal subtrees compare structurally equal regardless of
// which side they started on.
func canonicallyBefore(a, b ir.Expr) bool {
	_, aConst := intOf(a)
	_, bConst := intOf(b)
	if aConst != bConst {
		return aConst
	}
	return ir.PrintExpr(a) < ir.PrintExpr(b)
}

func isZero(e ir.Expr) bool {
	if v, ok := intOf(e); ok {
		return v == 0
	}
	if f, ok := e.(*ir.FloatConst); ok {
		return f.Value == 0
	}
	return false
}

func isOne(e ir.Expr) bool {
	if v, ok := intOf(e); ok {
		return v == 1
	}
	return false
}

func intOf(e ir.Expr) (int64, bool) {
	c, ok := e.(*ir.IntConst)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

func isTrueConst(e ir.Expr) bool  { b, ok := e.(*ir.BoolConst); return ok && b.Value }
func isFalseConst(e ir.Expr) bool { b, ok := e.(*ir.BoolConst); return ok && !b.Value }

func inferDType(e ir.Expr) ir.DataType {
	switch n := e.(type) {
	case *ir.FloatConst:
		return n.DType
	case *ir.IntConst:
		return ir.Int32
	case *ir.BoolConst:
		return ir.Bool
	default:
		return ir.Custom
	}
}
