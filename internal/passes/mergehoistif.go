package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// MergeIf fuses two adjacent If statements guarded by the same condition
// into one, so later passes see one branch to reason about instead of two.
func MergeIf(s ir.Stmt) (ir.Stmt, error) {
	m := &mergeIfMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type mergeIfMutator struct {
	ir.BaseMutator
}

func (m *mergeIfMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	seq, ok := s.(*ir.StmtSeq)
	if !ok {
		return m.BaseMutator.MutateStmt(s)
	}
	mutatedKids := make([]ir.Stmt, len(seq.Stmts))
	for i, c := range seq.Stmts {
		mutatedKids[i] = m.MutateStmt(c)
	}
	out := []ir.Stmt{}
	for i := 0; i < len(mutatedKids); i++ {
		cur := mutatedKids[i]
		if a, ok := cur.(*ir.If); ok && i+1 < len(mutatedKids) {
			if b, ok := mutatedKids[i+1].(*ir.If); ok && ir.EqualExpr(a.Cond, b.Cond, false) {
				out = append(out, ir.NewIf(a.Cond, seqOf(a.Then, b.Then), seqOfElse(a.Else, b.Else)))
				i++
				continue
			}
		}
		out = append(out, cur)
	}
	return ir.NewStmtSeq(out...)
}

func seqOf(a, b ir.Stmt) ir.Stmt {
	return ir.NewStmtSeq(a, b)
}

func seqOfElse(a, b ir.Stmt) ir.Stmt {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return ir.NewStmtSeq(a, b)
}

// HoistIf lifts an If whose condition does not vary across a loop's
// iterations above the loop, splitting the loop into a then-branch copy
// and an else-branch copy rather than re-testing the condition on every
// iteration.
func HoistIf(s ir.Stmt) (ir.Stmt, error) {
	m := &hoistIfMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type hoistIfMutator struct {
	ir.BaseMutator
}

func (m *hoistIfMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	f, ok := s.(*ir.For)
	if !ok {
		return m.BaseMutator.MutateStmt(s)
	}
	mutatedBody := m.MutateStmt(f.Body)
	ifStmt, ok := mutatedBody.(*ir.If)
	if !ok || analysis.VariesWithLoop(ifStmt.Cond, f.Iter) {
		return rebuildFor(f, mutatedBody)
	}
	thenFor := rebuildFor(f, ifStmt.Then)
	if ifStmt.Else == nil {
		return ir.NewIf(ifStmt.Cond, thenFor, nil)
	}
	elseFor := rebuildFor(f, ifStmt.Else)
	return ir.NewIf(ifStmt.Cond, thenFor, elseFor)
}

func rebuildFor(f *ir.For, body ir.Stmt) *ir.For {
	r := ir.NewFor(f.Iter, f.Begin, f.End, f.Step, body)
	r.Property = f.Property.Clone()
	return r
}
