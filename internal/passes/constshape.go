package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// MakeConstShape replaces every buffer-shape dimension the linear analyzer
// can prove constant with a literal IntConst, so the lowering driver can
// allocate those buffers statically instead of falling back to a
// dynamically-sized allocation.
func MakeConstShape(s ir.Stmt) (ir.Stmt, error) {
	m := &constShapeMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

// MakeConstShapeFor returns a Pass that only applies the MakeConstShape
// rewrite to buffers whose memory type is one of mtypes, used by the GPU
// lowering branch to restrict the rewrite to {GPUShared, GPULocal}.
func MakeConstShapeFor(mtypes ...ir.MemType) Pass {
	allow := map[ir.MemType]bool{}
	for _, mt := range mtypes {
		allow[mt] = true
	}
	return func(s ir.Stmt) (ir.Stmt, error) {
		m := &constShapeMutator{allow: allow}
		m.Self = m
		return m.MutateStmt(s), nil
	}
}

type constShapeMutator struct {
	ir.BaseMutator
	allow map[ir.MemType]bool
}

func (m *constShapeMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	def, ok := s.(*ir.VarDef)
	if !ok {
		return m.BaseMutator.MutateStmt(s)
	}
	if m.allow != nil && !m.allow[def.Buffer.MType] {
		newBody := m.MutateStmt(def.Body)
		r := ir.NewVarDef(def.Name, def.Buffer.Clone(), newBody)
		ir.SetID(r, def.StmtID())
		return r
	}
	newBuf := def.Buffer.Clone()
	changed := false
	for i, dim := range newBuf.Tensor.Shape {
		if _, isConst := dim.(*ir.IntConst); isConst {
			continue
		}
		lf := analysis.Analyze(dim)
		if lf.IsConstant() {
			newBuf.Tensor.Shape[i] = ir.NewIntConst(lf.Const)
			changed = true
		}
	}
	newBody := m.MutateStmt(def.Body)
	if !changed {
		r := ir.NewVarDef(def.Name, def.Buffer.Clone(), newBody)
		ir.SetID(r, def.StmtID())
		return r
	}
	r := ir.NewVarDef(def.Name, newBuf, newBody)
	ir.SetID(r, def.StmtID())
	return r
}
