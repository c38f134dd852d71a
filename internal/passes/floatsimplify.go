package passes

import "tensorc/internal/ir"

// FloatSimplify applies simplifications valid under the floating-point
// contract: no reassociation except the algebraic identities that hold
// bit-for-bit (x+0, x*1, x*0 is NOT folded for floats since x might be NaN
// or -0, unlike the integer case in Simplify). Associativity is assumed
// only where the caller has already marked an expression as a reduction
// (ReduceTo/ParallelReduction), which this pass does not reorder itself —
// it only removes provably-identity float operations.
func FloatSimplify(s ir.Stmt) (ir.Stmt, error) {
	m := &floatSimplifyMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type floatSimplifyMutator struct {
	ir.BaseMutator
}

func (m *floatSimplifyMutator) MutateExpr(e ir.Expr) ir.Expr {
	rebuilt := m.BaseMutator.MutateExpr(e)
	bin, ok := rebuilt.(*ir.BinaryExpr)
	if !ok {
		return rebuilt
	}
	if !isFloatExpr(bin.LHS) && !isFloatExpr(bin.RHS) {
		return rebuilt
	}
	switch bin.Op {
	case ir.Add:
		if isFloatZero(bin.RHS) {
			return bin.LHS
		}
		if isFloatZero(bin.LHS) {
			return bin.RHS
		}
	case ir.Mul:
		if isFloatOne(bin.RHS) {
			return bin.LHS
		}
		if isFloatOne(bin.LHS) {
			return bin.RHS
		}
	}
	return rebuilt
}

func isFloatExpr(e ir.Expr) bool {
	_, ok := e.(*ir.FloatConst)
	return ok
}

func isFloatZero(e ir.Expr) bool {
	f, ok := e.(*ir.FloatConst)
	return ok && f.Value == 0
}

func isFloatOne(e ir.Expr) bool {
	f, ok := e.(*ir.FloatConst)
	return ok && f.Value == 1
}
