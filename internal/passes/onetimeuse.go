package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// PropOneTimeUse inlines a Cache VarDef consumed by exactly one later read
// and then drops the now-dead definition, the composition the spec
// describes as a single pass rather than prop-const followed by
// remove-dead-var (it must check "exactly one read", which plain
// const-propagation does not).
func PropOneTimeUse(s ir.Stmt) (ir.Stmt, error) {
	m := &oneTimeUseMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type oneTimeUseMutator struct {
	ir.BaseMutator
}

func (m *oneTimeUseMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	def, ok := s.(*ir.VarDef)
	if !ok || def.Buffer.AType != ir.Cache {
		return m.BaseMutator.MutateStmt(s)
	}
	rw := analysis.ExtractRW(def.Body)
	reads := 0
	writes := 0
	var value ir.Expr
	var writeStmt ir.Stmt
	for _, a := range rw.Access {
		if a.Var != def.Name {
			continue
		}
		if a.IsWrite {
			writes++
			writeStmt = a.Stmt
			if st, ok := a.Stmt.(*ir.Store); ok {
				value = st.Expr
			}
		}
		if a.IsRead && !a.IsWrite {
			reads++
		}
	}
	if writes != 1 || reads != 1 || value == nil {
		return m.BaseMutator.MutateStmt(s)
	}
	withoutWrite := dropStmt(def.Body, writeStmt)
	inlined := inlineOneRead(withoutWrite, def.Name, value)
	return m.MutateStmt(inlined)
}

func dropStmt(s, target ir.Stmt) ir.Stmt {
	m := &dropStmtMutator{target: target}
	m.Self = m
	return m.MutateStmt(s)
}

type dropStmtMutator struct {
	ir.BaseMutator
	target ir.Stmt
}

func (m *dropStmtMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	if s.StmtID() == m.target.StmtID() {
		return ir.NewStmtSeq()
	}
	return m.BaseMutator.MutateStmt(s)
}

func inlineOneRead(s ir.Stmt, name string, value ir.Expr) ir.Stmt {
	m := &inlineReadMutator{name: name, value: value}
	m.Self = m
	return m.MutateStmt(s)
}

type inlineReadMutator struct {
	ir.BaseMutator
	name  string
	value ir.Expr
}

func (m *inlineReadMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.DeepCopyExpr(m.value)
	}
	return m.BaseMutator.MutateExpr(e)
}
