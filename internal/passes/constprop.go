package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// ScalarPropConst inlines a by-value (rank-0) VarDef's value at reads when
// the VarDef's body contains exactly one write to it, counted from the
// body's read/write set: every read the traversal reaches after that
// write is substituted, reads reached before it are left alone. The
// dependency finder is not consulted.
func ScalarPropConst(s ir.Stmt) (ir.Stmt, error) {
	return propConst(s, true)
}

// TensorPropConst is ScalarPropConst generalized to tensor elements: a
// Load is replaced by the value of the unique prior Store to the same
// (provably identical) indices.
func TensorPropConst(s ir.Stmt) (ir.Stmt, error) {
	return propConst(s, false)
}

func propConst(s ir.Stmt, scalarOnly bool) (ir.Stmt, error) {
	m := &propConstMutator{scalarOnly: scalarOnly, values: map[string]ir.Expr{}, multi: map[string]bool{}}
	m.Self = m
	return m.MutateStmt(s), nil
}

type propConstMutator struct {
	ir.BaseMutator
	scalarOnly bool
	values     map[string]ir.Expr
	multi      map[string]bool // names written more than once: never safe to propagate
}

func (m *propConstMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.VarDef:
		if m.scalarOnly && n.Buffer.Tensor.Rank() != 0 {
			return m.BaseMutator.MutateStmt(s)
		}
		rw := analysis.ExtractRW(n.Body)
		writeCount := 0
		for _, a := range rw.Access {
			if a.Var == n.Name && a.IsWrite {
				writeCount++
			}
		}
		prevMulti := m.multi[n.Name]
		m.multi[n.Name] = writeCount > 1
		newBody := m.BaseMutator.MutateStmt(n.Body)
		m.multi[n.Name] = prevMulti
		delete(m.values, n.Name)
		r := ir.NewVarDef(n.Name, n.Buffer.Clone(), newBody)
		ir.SetID(r, n.StmtID())
		return r
	case *ir.Store:
		r := m.BaseMutator.MutateStmt(s).(*ir.Store)
		if !m.multi[n.Var] && len(n.Indices) == 0 {
			m.values[n.Var] = r.Expr
		} else if !m.multi[n.Var] {
			m.values[n.Var+"@"+ir.PrintExpr(andJoin(n.Indices))] = r.Expr
		}
		return r
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *propConstMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok {
		key := l.Var
		if len(l.Indices) > 0 {
			key = l.Var + "@" + ir.PrintExpr(andJoin(l.Indices))
		}
		if v, ok := m.values[key]; ok && !m.multi[l.Var] {
			return ir.DeepCopyExpr(v)
		}
	}
	return m.BaseMutator.MutateExpr(e)
}

// andJoin packs an index list into one Expr purely so it can be printed as
// a single cache key; it is never emitted into the tree.
func andJoin(indices []ir.Expr) ir.Expr {
	if len(indices) == 0 {
		return ir.NewIntConst(0)
	}
	e := indices[0]
	for _, idx := range indices[1:] {
		e = ir.NewBinary(ir.Add, e, idx)
	}
	return e
}
