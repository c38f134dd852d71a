package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// MoveOutFirstOrLastIter peels a loop's first or last iteration when its
// body is an If guarded by exactly "iter == Begin" or "iter == End-1":
// the guarded branch runs once, substituted with the boundary value, and
// the loop is shrunk by one iteration running only the unguarded branch.
// Ungrounded loops (any other condition shape) are left untouched.
func MoveOutFirstOrLastIter(s ir.Stmt) (ir.Stmt, error) {
	m := &peelIterMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type peelIterMutator struct {
	ir.BaseMutator
}

func (m *peelIterMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	if f, ok := s.(*ir.For); ok {
		if peeled := tryPeel(f); peeled != nil {
			return m.MutateStmt(peeled)
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

// tryPeel returns a replacement StmtSeq when f's body is a recognizable
// boundary-guarded If, or nil when no peel applies.
func tryPeel(f *ir.For) ir.Stmt {
	ifs, ok := f.Body.(*ir.If)
	if !ok || ifs.Else == nil {
		return nil
	}
	which, ok := boundaryGuard(ifs.Cond, f)
	if !ok {
		return nil
	}
	switch which {
	case boundaryFirst:
		peeledBody := substituteIter(ifs.Then, f.Iter, f.Begin)
		rest := ir.NewFor(f.Iter, ir.NewBinary(ir.Add, f.Begin, ir.NewIntConst(1)), f.End, f.Step, ifs.Else)
		rest.Property = f.Property.Clone()
		return ir.NewStmtSeq(peeledBody, rest)
	case boundaryLast:
		lastVal := ir.NewBinary(ir.Sub, f.End, ir.NewIntConst(1))
		peeledBody := substituteIter(ifs.Then, f.Iter, lastVal)
		rest := ir.NewFor(f.Iter, f.Begin, lastVal, f.Step, ifs.Else)
		rest.Property = f.Property.Clone()
		return ir.NewStmtSeq(rest, peeledBody)
	}
	return nil
}

type boundaryKind int

const (
	boundaryNone boundaryKind = iota
	boundaryFirst
	boundaryLast
)

// boundaryGuard checks whether cond is exactly "iter == Begin" or
// "iter == End-1" (in either operand order), via the linear-form
// analyzer so syntactic variants of the same value compare equal.
func boundaryGuard(cond ir.Expr, f *ir.For) (boundaryKind, bool) {
	c, ok := cond.(*ir.CompareExpr)
	if !ok || c.Op != ir.EQ {
		return boundaryNone, false
	}
	lf := analysis.Analyze(ir.NewBinary(ir.Sub, c.LHS, c.RHS))
	if lf.Coefficient(f.Iter) != 1 && lf.Coefficient(f.Iter) != -1 {
		return boundaryNone, false
	}
	sign := lf.Coefficient(f.Iter)
	residual := lf.ResidualOf(f.Iter)
	if !residual.IsConstant() {
		return boundaryNone, false
	}
	// lf = sign*iter + residual.Const == 0  <=>  iter == -sign*residual.Const
	boundaryValue := -sign * residual.Const

	beginLF := analysis.Analyze(f.Begin)
	if beginLF.IsConstant() && beginLF.Const == boundaryValue {
		return boundaryFirst, true
	}
	endLF := analysis.Analyze(ir.NewBinary(ir.Sub, f.End, ir.NewIntConst(1)))
	if endLF.IsConstant() && endLF.Const == boundaryValue {
		return boundaryLast, true
	}
	return boundaryNone, false
}

func substituteIter(s ir.Stmt, name string, value ir.Expr) ir.Stmt {
	m := &iterSubstMutator{name: name, value: value}
	m.Self = m
	return m.MutateStmt(s)
}

type iterSubstMutator struct {
	ir.BaseMutator
	name  string
	value ir.Expr
}

func (m *iterSubstMutator) MutateExpr(e ir.Expr) ir.Expr {
	if v, ok := e.(*ir.VarExpr); ok && v.Name == m.name {
		return ir.DeepCopyExpr(m.value)
	}
	return m.BaseMutator.MutateExpr(e)
}
