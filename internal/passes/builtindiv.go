package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// UseBuiltinDiv rewrites a FloorDiv/CeilDiv whose operands are provably
// non-negative (and divisor provably positive) into the target's native
// round-towards-zero division, since floor and round-towards-zero agree
// when both operands are non-negative — sparing the emitter an explicit
// sign-correction branch around the division. Divisions left unproven
// keep their original operator.
func UseBuiltinDiv(s ir.Stmt) (ir.Stmt, error) {
	m := &useBuiltinDivMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type useBuiltinDivMutator struct {
	ir.BaseMutator
}

func (m *useBuiltinDivMutator) MutateExpr(e ir.Expr) ir.Expr {
	rebuilt := m.BaseMutator.MutateExpr(e)
	bin, ok := rebuilt.(*ir.BinaryExpr)
	if !ok {
		return rebuilt
	}
	if bin.Op != ir.FloorDiv && bin.Op != ir.CeilDiv {
		return rebuilt
	}
	if !provablyNonNegative(bin.LHS) || !provablyPositive(bin.RHS) {
		return rebuilt
	}
	if bin.Op == ir.FloorDiv {
		return ir.NewBinary(ir.RoundTowards0Div, bin.LHS, bin.RHS)
	}
	// CeilDiv(a, b) with a, b >= 0 is RoundTowards0Div(a + b - 1, b).
	bumped := ir.NewBinary(ir.Sub, ir.NewBinary(ir.Add, bin.LHS, bin.RHS), ir.NewIntConst(1))
	return ir.NewBinary(ir.RoundTowards0Div, bumped, bin.RHS)
}

func provablyNonNegative(e ir.Expr) bool {
	if c, ok := e.(*ir.IntConst); ok {
		return c.Value >= 0
	}
	lo, _ := analysis.Infer(e, nil)
	for _, l := range lo {
		if c, ok := l.(*ir.IntConst); ok && c.Value >= 0 {
			return true
		}
	}
	return false
}

func provablyPositive(e ir.Expr) bool {
	if c, ok := e.(*ir.IntConst); ok {
		return c.Value > 0
	}
	lo, _ := analysis.Infer(e, nil)
	for _, l := range lo {
		if c, ok := l.(*ir.IntConst); ok && c.Value > 0 {
			return true
		}
	}
	return false
}
