package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// SinkVar narrows a Cache VarDef's scope to the minimal contiguous run of
// sibling statements that actually reference it, when its body is a
// StmtSeq: statements before the first use and after the last use move
// outside the VarDef.
func SinkVar(s ir.Stmt) (ir.Stmt, error) {
	m := &sinkVarMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type sinkVarMutator struct {
	ir.BaseMutator
}

func (m *sinkVarMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	def, ok := s.(*ir.VarDef)
	if !ok || def.Buffer.AType != ir.Cache {
		return m.BaseMutator.MutateStmt(s)
	}
	seq, ok := def.Body.(*ir.StmtSeq)
	if !ok {
		return m.BaseMutator.MutateStmt(s)
	}
	first, last := -1, -1
	for i, c := range seq.Stmts {
		rw := analysis.ExtractRW(c)
		if rw.Reads[def.Name] || rw.Writes[def.Name] {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		// Unused entirely: leave for remove-dead-var to clean up.
		return m.BaseMutator.MutateStmt(s)
	}
	if first == 0 && last == len(seq.Stmts)-1 {
		return m.BaseMutator.MutateStmt(s)
	}
	before := seq.Stmts[:first]
	inner := seq.Stmts[first : last+1]
	after := seq.Stmts[last+1:]
	sunk := ir.NewVarDef(def.Name, def.Buffer.Clone(), ir.NewStmtSeq(inner...))
	out := append(append(append([]ir.Stmt{}, before...), sunk), after...)
	return m.MutateStmt(ir.NewStmtSeq(out...))
}

// ShrinkVar narrows each surviving dimension of a Cache buffer to the
// tightest range the analyzer can prove from its accesses' literal
// constant offsets, rewriting every index to subtract the new lower
// bound. Dimensions indexed by a non-constant-offset expression are left
// at their declared size (a sound no-op for that dimension).
func ShrinkVar(s ir.Stmt) (ir.Stmt, error) {
	m := &shrinkVarMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type shrinkVarMutator struct {
	ir.BaseMutator
}

func (m *shrinkVarMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	def, ok := s.(*ir.VarDef)
	if !ok || def.Buffer.AType != ir.Cache {
		return m.BaseMutator.MutateStmt(s)
	}
	rank := def.Buffer.Tensor.Rank()
	lows := make([]int64, rank)
	highs := make([]int64, rank)
	known := make([]bool, rank)
	dynamic := make([]bool, rank)
	anyKnown := false
	walkAccesses(def.Body, def.Name, func(indices []ir.Expr) {
		for d, idx := range indices {
			lf := analysis.Analyze(idx)
			if !lf.IsConstant() {
				dynamic[d] = true
				continue
			}
			v := lf.Const
			if !known[d] {
				lows[d], highs[d] = v, v
				known[d] = true
				anyKnown = true
			} else {
				if v < lows[d] {
					lows[d] = v
				}
				if v > highs[d] {
					highs[d] = v
				}
			}
		}
	})
	anyKnown = false
	for d := range known {
		if dynamic[d] {
			known[d] = false
		}
		anyKnown = anyKnown || known[d]
	}
	if !anyKnown {
		return m.BaseMutator.MutateStmt(s)
	}
	newBuf := def.Buffer.Clone()
	for d := 0; d < rank; d++ {
		if !known[d] {
			continue
		}
		newBuf.Tensor.Shape[d] = ir.NewIntConst(highs[d] - lows[d] + 1)
	}
	newBody := shiftAccesses(def.Body, def.Name, lows, known)
	r := ir.NewVarDef(def.Name, newBuf, m.MutateStmt(newBody))
	ir.SetID(r, def.StmtID())
	return r
}

func walkAccesses(s ir.Stmt, name string, fn func(indices []ir.Expr)) {
	rw := analysis.ExtractRW(s)
	for _, a := range rw.Access {
		if a.Var == name {
			fn(a.Indices)
		}
	}
}

func shiftAccesses(s ir.Stmt, name string, lows []int64, known []bool) ir.Stmt {
	m := &shiftMutator{name: name, lows: lows, known: known}
	m.Self = m
	return m.MutateStmt(s)
}

type shiftMutator struct {
	ir.BaseMutator
	name  string
	lows  []int64
	known []bool
}

func (m *shiftMutator) shift(indices []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, len(indices))
	for d, idx := range indices {
		if d < len(m.known) && m.known[d] && m.lows[d] != 0 {
			out[d] = ir.NewBinary(ir.Sub, m.MutateExpr(idx), ir.NewIntConst(m.lows[d]))
		} else {
			out[d] = m.MutateExpr(idx)
		}
	}
	return out
}

func (m *shiftMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			r := ir.NewStore(n.Var, m.shift(n.Indices), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			r := ir.NewReduceTo(n.Var, m.shift(n.Indices), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *shiftMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.NewLoad(l.Var, m.shift(l.Indices)...)
	}
	return m.BaseMutator.MutateExpr(e)
}

// ShrinkFor narrows a For loop's [Begin, End) to the tightest range an
// Assume forming the loop's entire body proves sufficient (a single
// comparison of the iterator with a bound), consuming that Assume in the
// process (the assumption becomes the loop's own range instead of a
// runtime-irrelevant fact sitting beside it).
func ShrinkFor(s ir.Stmt) (ir.Stmt, error) {
	m := &shrinkForMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type shrinkForMutator struct {
	ir.BaseMutator
}

func (m *shrinkForMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	f, ok := s.(*ir.For)
	if !ok {
		return m.BaseMutator.MutateStmt(s)
	}
	if assume, ok := f.Body.(*ir.Assume); ok {
		if lo, hi, ok := iterRangeFromCond(assume.Cond, f.Iter); ok {
			newBegin := tighterLower(f.Begin, lo)
			newEnd := tighterUpper(f.End, hi)
			r := ir.NewFor(f.Iter, newBegin, newEnd, f.Step, m.MutateStmt(assume.Body))
			ir.SetID(r, f.StmtID())
			r.Property = f.Property.Clone()
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func iterRangeFromCond(cond ir.Expr, iter string) (lo, hi ir.Expr, ok bool) {
	cmp, ok := cond.(*ir.CompareExpr)
	if !ok {
		return nil, nil, false
	}
	v, onLeft := cmp.LHS.(*ir.VarExpr)
	if onLeft && v.Name == iter {
		switch cmp.Op {
		case ir.GE:
			return cmp.RHS, nil, true
		case ir.LT:
			return nil, cmp.RHS, true
		}
	}
	if v, onRight := cmp.RHS.(*ir.VarExpr); onRight && v.Name == iter {
		switch cmp.Op {
		case ir.LE:
			return cmp.LHS, nil, true
		case ir.GT:
			return nil, cmp.LHS, true
		}
	}
	return nil, nil, false
}

func tighterLower(cur, candidate ir.Expr) ir.Expr {
	if candidate == nil {
		return cur
	}
	return ir.NewMax(cur, candidate)
}

func tighterUpper(cur, candidate ir.Expr) ir.Expr {
	if candidate == nil {
		return cur
	}
	return ir.NewMin(cur, candidate)
}
