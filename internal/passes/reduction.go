package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// MakeReduction rewrites a self-referential Store — `a[idx] = a[idx] OP
// expr` — into the dedicated ReduceTo statement, making the reduction
// explicit so later passes (and the lowering driver's atomic/parallel
// handling) don't need to re-derive it from the expression shape.
func MakeReduction(s ir.Stmt) (ir.Stmt, error) {
	m := &makeReductionMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type makeReductionMutator struct {
	ir.BaseMutator
}

func (m *makeReductionMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	rebuilt := m.BaseMutator.MutateStmt(s)
	st, ok := rebuilt.(*ir.Store)
	if !ok {
		return rebuilt
	}
	op, operand, ok := matchSelfReduce(st)
	if !ok {
		return rebuilt
	}
	r := ir.NewReduceTo(st.Var, st.Indices, op, operand)
	ir.SetID(r, st.StmtID())
	return r
}

// matchSelfReduce recognizes `a[idx] OP= expr` where OP is one of the
// reduction operators, in either operand order for commutative ops.
func matchSelfReduce(st *ir.Store) (ir.ReduceOp, ir.Expr, bool) {
	bin, ok := st.Expr.(*ir.BinaryExpr)
	if !ok {
		return 0, nil, false
	}
	isSelf := func(e ir.Expr) bool {
		l, ok := e.(*ir.LoadExpr)
		return ok && l.Var == st.Var && sameIndexList(l.Indices, st.Indices)
	}
	switch bin.Op {
	case ir.Add:
		if isSelf(bin.LHS) {
			return ir.ReduceAdd, bin.RHS, true
		}
		if isSelf(bin.RHS) {
			return ir.ReduceAdd, bin.LHS, true
		}
	case ir.Mul:
		if isSelf(bin.LHS) {
			return ir.ReduceMul, bin.RHS, true
		}
		if isSelf(bin.RHS) {
			return ir.ReduceMul, bin.LHS, true
		}
	}
	if mm, ok := st.Expr.(*ir.MinMaxExpr); ok {
		if isSelf(mm.LHS) {
			return reduceOpOf(mm.IsMax), mm.RHS, true
		}
		if isSelf(mm.RHS) {
			return reduceOpOf(mm.IsMax), mm.LHS, true
		}
	}
	return 0, nil, false
}

func reduceOpOf(isMax bool) ir.ReduceOp {
	if isMax {
		return ir.ReduceMax
	}
	return ir.ReduceMin
}

// UndoMakeReduction is MakeReduction's inverse, expanding a ReduceTo back
// into an explicit self-referential Store. Used by targets/passes that
// need to reason about the access in plain load/store terms.
func UndoMakeReduction(s ir.Stmt) (ir.Stmt, error) {
	m := &undoReductionMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type undoReductionMutator struct {
	ir.BaseMutator
}

func (m *undoReductionMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	rebuilt := m.BaseMutator.MutateStmt(s)
	rt, ok := rebuilt.(*ir.ReduceTo)
	if !ok {
		return rebuilt
	}
	self := ir.NewLoad(rt.Var, rt.Indices...)
	var expr ir.Expr
	switch rt.Op {
	case ir.ReduceAdd:
		expr = ir.NewBinary(ir.Add, self, rt.Expr)
	case ir.ReduceMul:
		expr = ir.NewBinary(ir.Mul, self, rt.Expr)
	case ir.ReduceMax:
		expr = ir.NewMax(self, rt.Expr)
	case ir.ReduceMin:
		expr = ir.NewMin(self, rt.Expr)
	default:
		expr = rt.Expr
	}
	r := ir.NewStore(rt.Var, rt.Indices, expr)
	ir.SetID(r, rt.StmtID())
	return r
}

// MakeParallelReduction registers each ReduceTo reached inside a
// Parallel-scoped For loop as a ParallelReduction on that loop's
// ForProperty, computing each index's accessed range with analysis.Infer
// on the index expression (no loop ranges supplied), and marking the
// reduction Atomic whenever its indices vary with the loop's own iterator
// or the loop is bound to a thread-block axis (so distinct iterations can
// land on the same slot and must serialize).
func MakeParallelReduction(s ir.Stmt) (ir.Stmt, error) {
	m := &makeParallelReductionMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type makeParallelReductionMutator struct {
	ir.BaseMutator
}

func (m *makeParallelReductionMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	f, ok := s.(*ir.For)
	if !ok || f.Property == nil || f.Property.ParallelScope == ir.Serial {
		return m.BaseMutator.MutateStmt(s)
	}
	newBody := m.MutateStmt(f.Body)
	r := rebuildFor(f, newBody)
	collectReductions(newBody, r)
	return r
}

func collectReductions(s ir.Stmt, f *ir.For) {
	v := &reduceCollector{loop: f}
	v.Self = v
	ir.Walk(v, s)
}

type reduceCollector struct {
	ir.BaseVisitor
	loop *ir.For
}

func (v *reduceCollector) VisitStmt(s ir.Stmt) {
	if rt, ok := s.(*ir.ReduceTo); ok {
		varies := false
		for _, idx := range rt.Indices {
			if analysis.VariesWithLoop(idx, v.loop.Iter) {
				varies = true
				break
			}
		}
		switch v.loop.Property.ParallelScope {
		case ir.BlockIdxX, ir.BlockIdxY, ir.BlockIdxZ:
			varies = true
		}
		pr := ir.ParallelReduction{
			Op:     rt.Op,
			Var:    rt.Var,
			Begins: make([]ir.Expr, len(rt.Indices)),
			Ends:   make([]ir.Expr, len(rt.Indices)),
			Atomic: varies,
		}
		for i, idx := range rt.Indices {
			lo, hi := analysis.Infer(idx, nil)
			if len(lo) > 0 {
				pr.Begins[i] = lo[0]
			}
			if len(hi) > 0 {
				pr.Ends[i] = hi[0]
			}
		}
		v.loop.Property.AddReduction(pr)
		rt.Atomic = varies
	}
	v.BaseVisitor.VisitStmt(s)
}
