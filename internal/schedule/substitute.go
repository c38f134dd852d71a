package schedule

import "tensorc/internal/ir"

// substituteVar replaces every VarExpr reference to name with replacement
// throughout s. Used by split/merge/fuse to remap an old iterator to a
// new expression built from the replacement loop variables.
func substituteVar(s ir.Stmt, name string, replacement ir.Expr) ir.Stmt {
	m := &substMutator{name: name, replacement: replacement}
	m.Self = m
	return m.MutateStmt(s)
}

type substMutator struct {
	ir.BaseMutator
	name        string
	replacement ir.Expr
}

func (m *substMutator) MutateExpr(e ir.Expr) ir.Expr {
	if v, ok := e.(*ir.VarExpr); ok && v.Name == m.name {
		return ir.DeepCopyExpr(m.replacement)
	}
	return m.BaseMutator.MutateExpr(e)
}
