package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// RemoveWrites drops every Store/ReduceTo to a Cache variable whose
// VarDef body never reads it (writes with no observer). A variable read
// anywhere in its scope keeps all of its writes, and I/O variables are
// left alone.
func RemoveWrites(s ir.Stmt) (ir.Stmt, error) {
	m := &removeWritesMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type removeWritesMutator struct {
	ir.BaseMutator
}

func (m *removeWritesMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	if def, ok := s.(*ir.VarDef); ok && def.Buffer.AType == ir.Cache {
		rw := analysis.ExtractRW(def.Body)
		if !rw.Reads[def.Name] {
			newBody := dropWritesTo(def.Body, def.Name)
			r := ir.NewVarDef(def.Name, def.Buffer.Clone(), m.MutateStmt(newBody))
			ir.SetID(r, def.StmtID())
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func dropWritesTo(s ir.Stmt, name string) ir.Stmt {
	m := &dropWriteMutator{name: name}
	m.Self = m
	return m.MutateStmt(s)
}

type dropWriteMutator struct {
	ir.BaseMutator
	name string
}

func (m *dropWriteMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			return ir.NewStmtSeq()
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			return ir.NewStmtSeq()
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

// RemoveCyclicAssign rewrites `a = a` (a Store whose value is a Load of
// the same variable at the same indices) away entirely.
func RemoveCyclicAssign(s ir.Stmt) (ir.Stmt, error) {
	m := &cyclicAssignMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type cyclicAssignMutator struct {
	ir.BaseMutator
}

func (m *cyclicAssignMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	mutated := m.BaseMutator.MutateStmt(s)
	st, ok := mutated.(*ir.Store)
	if !ok {
		return mutated
	}
	load, ok := st.Expr.(*ir.LoadExpr)
	if !ok || load.Var != st.Var || !sameIndexList(load.Indices, st.Indices) {
		return mutated
	}
	return ir.NewStmtSeq()
}

func sameIndexList(a, b []ir.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ir.EqualExpr(a[i], b[i], false) {
			return false
		}
	}
	return true
}

// RemoveDeadVar drops a Cache VarDef whose body never reads or writes it
// at all (truly unused), leaving its body in place.
func RemoveDeadVar(s ir.Stmt) (ir.Stmt, error) {
	m := &deadVarMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type deadVarMutator struct {
	ir.BaseMutator
}

func (m *deadVarMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	if def, ok := s.(*ir.VarDef); ok && def.Buffer.AType == ir.Cache {
		rw := analysis.ExtractRW(def.Body)
		if !rw.Reads[def.Name] && !rw.Writes[def.Name] {
			return m.MutateStmt(def.Body)
		}
	}
	return m.BaseMutator.MutateStmt(s)
}
