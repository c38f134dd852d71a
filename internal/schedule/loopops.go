package schedule

import (
	"fmt"

	"tensorc/internal/analysis"
	"tensorc/internal/cerrors"
	"tensorc/internal/ir"
)

// SplitResult carries the two new loop IDs a successful Split produces.
type SplitResult struct {
	Outer, Inner ir.ID
}

// Split replaces the For with id with two nested loops — outer and inner
// — whose product range equals the original. Exactly one of factor/nparts
// must be given (nparts>0 selects nparts mode; factor>0 selects factor
// mode). shift offsets the inner loop's start within the tile, folded
// back into the substituted iterator value.
func (s *Schedule) Split(id ir.ID, factor, nparts int64, shift int64) (SplitResult, error) {
	op := fmt.Sprintf("split(%s, factor=%d, nparts=%d, shift=%d)", id, factor, nparts, shift)
	if factor <= 0 && nparts <= 0 {
		return SplitResult{}, cerrors.New(cerrors.InvalidSchedule, op, "one of factor or nparts must be positive")
	}
	var outerID, innerID ir.ID
	err := s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		f, err := findFor(tree, id)
		if err != nil {
			return nil, err
		}
		var factorExpr, outerLenExpr ir.Expr
		if factor > 0 {
			factorExpr = ir.NewIntConst(factor)
			outerLenExpr = ir.NewBinary(ir.CeilDiv, f.Len, factorExpr)
		} else {
			outerLenExpr = ir.NewIntConst(nparts)
			factorExpr = ir.NewBinary(ir.CeilDiv, f.Len, outerLenExpr)
		}
		outerIter := ir.DerivedName(f.Iter, "o")
		innerIter := ir.DerivedName(f.Iter, "i")
		outerVar := ir.NewVar(outerIter)
		innerVar := ir.NewVar(innerIter)
		value := ir.NewBinary(ir.Add, f.Begin,
			ir.NewBinary(ir.Add, ir.NewBinary(ir.Mul, outerVar, factorExpr), ir.NewBinary(ir.Sub, innerVar, ir.NewIntConst(shift))))
		newBody := substituteVar(f.Body, f.Iter, value)
		inner := ir.NewFor(innerIter, ir.NewIntConst(shift), ir.NewBinary(ir.Add, factorExpr, ir.NewIntConst(shift)), ir.NewIntConst(1), newBody)
		inner.Property = f.Property.Clone()
		outer := ir.NewFor(outerIter, ir.NewIntConst(0), outerLenExpr, ir.NewIntConst(1), inner)
		outerID, innerID = outer.StmtID(), inner.StmtID()
		return ir.ReplaceByID(tree, id, func(ir.Stmt) ir.Stmt { return outer }), nil
	})
	if err != nil {
		return SplitResult{}, err
	}
	return SplitResult{Outer: outerID, Inner: innerID}, nil
}

// Merge collapses two adjacent perfectly-nested loops (loop2 is loop1's
// sole body) into one loop iterating the product range, remapping
// iterators via divide/mod. Both loops must start at a literal 0 with
// literal unit step — the common case generated by Split; anything else
// is an impermissible-nesting failure.
func (s *Schedule) Merge(loop1, loop2 ir.ID) (ir.ID, error) {
	op := fmt.Sprintf("merge(%s, %s)", loop1, loop2)
	var mergedID ir.ID
	err := s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		outer, err := findFor(tree, loop1)
		if err != nil {
			return nil, err
		}
		inner, ok := outer.Body.(*ir.For)
		if !ok || inner.StmtID() != loop2 {
			return nil, fmt.Errorf("%s is not the sole body of %s", loop2, loop1)
		}
		if !isZeroStep1(outer) || !isZeroStep1(inner) {
			return nil, fmt.Errorf("impermissible nesting: both loops must start at 0 with unit step")
		}
		mergedIter := ir.DerivedName(outer.Iter+"_"+inner.Iter, "m")
		mergedVar := ir.NewVar(mergedIter)
		outerVal := ir.NewBinary(ir.FloorDiv, mergedVar, inner.Len)
		innerVal := ir.NewBinary(ir.Mod, mergedVar, inner.Len)
		body := substituteVar(inner.Body, inner.Iter, innerVal)
		body = substituteVar(body, outer.Iter, outerVal)
		mergedLen := ir.NewBinary(ir.Mul, outer.Len, inner.Len)
		merged := ir.NewFor(mergedIter, ir.NewIntConst(0), mergedLen, ir.NewIntConst(1), body)
		merged.Property = outer.Property.Clone()
		mergedID = merged.StmtID()
		return ir.ReplaceByID(tree, loop1, func(ir.Stmt) ir.Stmt { return merged }), nil
	})
	if err != nil {
		return "", err
	}
	return mergedID, nil
}

func isZeroStep1(f *ir.For) bool {
	b, ok := f.Begin.(*ir.IntConst)
	if !ok || b.Value != 0 {
		return false
	}
	st, ok := f.Step.(*ir.IntConst)
	return ok && st.Value == 1
}

// FissionSide selects which side of the split the splitter statement
// itself belongs to.
type FissionSide int

const (
	Before FissionSide = iota
	After
)

// FissionResult carries the IDs of the two new loops.
type FissionResult struct {
	First, Second ir.ID
}

// Fission splits loop's body at splitter into two loops of identical
// bounds. When loop's body is a VarDef wrapping a StmtSeq, the VarDef is
// hoisted to enclose both resulting loops instead of being duplicated.
// If the hoisted variable is used on both sides of the split (the
// shared-scratch-variable case from the spec's fission scenario), one
// value per iteration must survive from the first loop into the second,
// so the buffer gains a leading dimension sized to the loop's trip
// count and every access is rewritten to index it by the loop iterator.
func (s *Schedule) Fission(loop ir.ID, side FissionSide, splitter ir.ID, suffix0, suffix1 string) (FissionResult, error) {
	op := fmt.Sprintf("fission(%s, splitter=%s)", loop, splitter)
	var res FissionResult
	err := s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		f, err := findFor(tree, loop)
		if err != nil {
			return nil, err
		}
		var def *ir.VarDef
		inner := f.Body
		if vd, ok := f.Body.(*ir.VarDef); ok {
			def = vd
			inner = vd.Body
		}
		seq, ok := inner.(*ir.StmtSeq)
		if !ok {
			return nil, fmt.Errorf("loop body is not a statement sequence")
		}
		idx := -1
		for i, c := range seq.Stmts {
			if c.StmtID() == splitter {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("splitter %s not found in loop body", splitter)
		}
		cut := idx
		if side == After {
			cut = idx + 1
		}
		firstStmts := seq.Stmts[:cut]
		secondStmts := seq.Stmts[cut:]
		if len(firstStmts) == 0 || len(secondStmts) == 0 {
			return nil, fmt.Errorf("splitter produces an empty half")
		}
		var promotedBuf *ir.Buffer
		if def != nil {
			firstUses, secondUses := usesVar(firstStmts, def.Name), usesVar(secondStmts, def.Name)
			if firstUses && secondUses {
				promotedBuf = def.Buffer.Clone()
				promotedBuf.Tensor.Shape = append([]ir.Expr{ir.DeepCopyExpr(f.Len)}, promotedBuf.Tensor.Shape...)
				firstStmts = prefixVarAccesses(firstStmts, def.Name, ir.NewVar(f.Iter))
				secondStmts = prefixVarAccesses(secondStmts, def.Name, ir.NewVar(f.Iter))
			}
		}
		first := ir.NewFor(f.Iter, f.Begin, f.End, f.Step, ir.NewStmtSeq(firstStmts...))
		first.Property = f.Property.Clone()
		ir.SetID(first, first.StmtID().WithSuffix(suffix0))
		second := ir.NewFor(f.Iter, f.Begin, f.End, f.Step, ir.NewStmtSeq(secondStmts...))
		second.Property = f.Property.Clone()
		ir.SetID(second, second.StmtID().WithSuffix(suffix1))
		res = FissionResult{First: first.StmtID(), Second: second.StmtID()}
		var replacement ir.Stmt
		if def != nil {
			buf := promotedBuf
			if buf == nil {
				buf = def.Buffer.Clone()
			}
			replacement = ir.NewVarDef(def.Name, buf, ir.NewStmtSeq(first, second))
		} else {
			replacement = ir.NewStmtSeq(first, second)
		}
		return ir.ReplaceByID(tree, loop, func(ir.Stmt) ir.Stmt { return replacement }), nil
	})
	if err != nil {
		return FissionResult{}, err
	}
	return res, nil
}

// prefixVarAccesses rewrites every Store/ReduceTo/Load touching name so
// it gains prefix as a new leading index, turning a scalar (or lower-
// rank) access into one indexed by the loop iterator the promoted
// dimension now ranges over.
func prefixVarAccesses(stmts []ir.Stmt, name string, prefix ir.Expr) []ir.Stmt {
	m := &prefixVarMutator{name: name, prefix: prefix}
	m.Self = m
	out := make([]ir.Stmt, len(stmts))
	for i, st := range stmts {
		out[i] = m.MutateStmt(st)
	}
	return out
}

type prefixVarMutator struct {
	ir.BaseMutator
	name   string
	prefix ir.Expr
}

func (m *prefixVarMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			r := ir.NewStore(n.Var, append([]ir.Expr{ir.DeepCopyExpr(m.prefix)}, m.mutateAll(n.Indices)...), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			r := ir.NewReduceTo(n.Var, append([]ir.Expr{ir.DeepCopyExpr(m.prefix)}, m.mutateAll(n.Indices)...), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *prefixVarMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.NewLoad(l.Var, append([]ir.Expr{ir.DeepCopyExpr(m.prefix)}, m.mutateAll(l.Indices)...)...)
	}
	return m.BaseMutator.MutateExpr(e)
}

func (m *prefixVarMutator) mutateAll(es []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, len(es))
	for i, e := range es {
		out[i] = m.MutateExpr(e)
	}
	return out
}

func usesVar(stmts []ir.Stmt, name string) bool {
	for _, st := range stmts {
		rw := analysis.ExtractRW(st)
		if rw.Reads[name] || rw.Writes[name] {
			return true
		}
	}
	return false
}

// Fuse concatenates two loops with identical bounds into one, remapping
// loop1's iterator to loop0's. strict requires the bounds to be
// syntactically identical; otherwise the bound analyzer's constant-form
// equality is used.
func (s *Schedule) Fuse(loop0, loop1 ir.ID, strict bool) (ir.ID, error) {
	op := fmt.Sprintf("fuse(%s, %s, strict=%v)", loop0, loop1, strict)
	var fusedID ir.ID
	err := s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		f0, err := findFor(tree, loop0)
		if err != nil {
			return nil, err
		}
		f1, err := findFor(tree, loop1)
		if err != nil {
			return nil, err
		}
		if !boundsEqual(f0, f1, strict) {
			return nil, fmt.Errorf("non-matching bounds")
		}
		body1 := substituteVar(f1.Body, f1.Iter, ir.NewVar(f0.Iter))
		fused := ir.NewFor(f0.Iter, f0.Begin, f0.End, f0.Step, ir.NewStmtSeq(f0.Body, body1))
		fused.Property = f0.Property.Clone()
		fusedID = fused.StmtID()
		replaced := ir.ReplaceByID(tree, loop0, func(ir.Stmt) ir.Stmt { return fused })
		return dropStmt(replaced, f1), nil
	})
	if err != nil {
		return "", err
	}
	return fusedID, nil
}

func boundsEqual(a, b *ir.For, strict bool) bool {
	if strict {
		return ir.EqualExpr(a.Begin, b.Begin, false) && ir.EqualExpr(a.End, b.End, false) && ir.EqualExpr(a.Step, b.Step, false)
	}
	la, lb := analysis.Analyze(a.Len), analysis.Analyze(b.Len)
	return la.IsConstant() && lb.IsConstant() && la.Const == lb.Const
}

// Swap reorders the direct children of the StmtSeq containing every ID in
// order, to the given order. Rejects when any pair whose relative order
// changes has overlapping read/write sets.
func (s *Schedule) Swap(order []ir.ID) error {
	op := fmt.Sprintf("swap(%v)", order)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		seqID := ir.FindByID(tree, order[0])
		if seqID == nil {
			return nil, fmt.Errorf("%s not found", order[0])
		}
		parent := ir.Parent(tree, order[0])
		seq, ok := parent.(*ir.StmtSeq)
		if !ok {
			return nil, fmt.Errorf("%s is not a child of a statement sequence", order[0])
		}
		byID := map[ir.ID]ir.Stmt{}
		for _, c := range seq.Stmts {
			byID[c.StmtID()] = c
		}
		if len(order) != len(seq.Stmts) {
			return nil, fmt.Errorf("order must permute all %d siblings", len(seq.Stmts))
		}
		newOrder := make([]ir.Stmt, len(order))
		for i, id := range order {
			st, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%s is not a sibling in this sequence", id)
			}
			newOrder[i] = st
		}
		if err := checkSwapLegality(seq.Stmts, newOrder); err != nil {
			return nil, err
		}
		return ir.ReplaceByID(tree, seq.StmtID(), func(ir.Stmt) ir.Stmt { return ir.NewStmtSeq(newOrder...) }), nil
	})
}

func checkSwapLegality(oldOrder, newOrder []ir.Stmt) error {
	pos := map[ir.ID]int{}
	for i, s := range oldOrder {
		pos[s.StmtID()] = i
	}
	for i := 0; i < len(newOrder); i++ {
		for j := i + 1; j < len(newOrder); j++ {
			a, b := newOrder[i], newOrder[j]
			if pos[a.StmtID()] < pos[b.StmtID()] {
				continue // relative order unchanged
			}
			rwA, rwB := analysis.ExtractRW(a), analysis.ExtractRW(b)
			for v := range rwA.Writes {
				if rwB.Reads[v] || rwB.Writes[v] {
					return fmt.Errorf("dependency violation: %s and %s both touch %q", a.StmtID(), b.StmtID(), v)
				}
			}
			for v := range rwA.Reads {
				if rwB.Writes[v] {
					return fmt.Errorf("dependency violation: %s and %s both touch %q", a.StmtID(), b.StmtID(), v)
				}
			}
		}
	}
	return nil
}

// Reorder transposes a perfectly-nested chain of For loops (each the sole
// body of the previous) into the given order, rejecting when any
// reordered loop has a dependency that varies across its own iterations
// (a loop-carried dependency — reordering would change which iteration of
// that loop observes which value).
func (s *Schedule) Reorder(order []ir.ID) error {
	op := fmt.Sprintf("reorder(%v)", order)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		loops := map[ir.ID]*ir.For{}
		for _, id := range order {
			f, err := findFor(tree, id)
			if err != nil {
				return nil, err
			}
			loops[id] = f
		}
		outer := loops[order[0]]
		chain := []*ir.For{outer}
		cur := outer
		for len(chain) < len(order) {
			next, ok := cur.Body.(*ir.For)
			if !ok {
				return nil, fmt.Errorf("loops are not perfectly nested")
			}
			chain = append(chain, next)
			cur = next
		}
		innerBody := cur.Body
		for _, f := range chain {
			dirs := map[string]analysis.Direction{f.Iter: analysis.Different}
			if deps := analysis.FindDependencies(innerBody, dirs); len(deps) > 0 {
				return nil, fmt.Errorf("loop-carried dependency on %s", f.Iter)
			}
		}
		body := innerBody
		for i := len(order) - 1; i >= 0; i-- {
			f := loops[order[i]]
			wrapped := ir.NewFor(f.Iter, f.Begin, f.End, f.Step, body)
			ir.SetID(wrapped, f.StmtID())
			wrapped.Property = f.Property.Clone()
			body = wrapped
		}
		return ir.ReplaceByID(tree, outer.StmtID(), func(ir.Stmt) ir.Stmt { return body }), nil
	})
}

// MoveToSide selects whether stmt is moved to immediately before or after
// dst.
type MoveToSide int

const (
	MoveBefore MoveToSide = iota
	MoveAfter
)

// MoveTo relocates stmt to immediately before/after dst using repeated
// sibling swaps when both share a StmtSeq parent. Moves that must cross a
// For or VarDef boundary (requiring fission/hoisting per the spec's full
// algorithm) are not implemented and fail with "unsupported move".
func (s *Schedule) MoveTo(stmt ir.ID, side MoveToSide, dst ir.ID) error {
	op := fmt.Sprintf("move-to(%s, %s)", stmt, dst)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		pStmt, pDst := ir.Parent(tree, stmt), ir.Parent(tree, dst)
		seq, ok := pStmt.(*ir.StmtSeq)
		if !ok || pDst == nil || pDst.StmtID() != pStmt.StmtID() {
			return nil, fmt.Errorf("unsupported move: stmt and dst are not siblings in the same statement sequence")
		}
		order := make([]ir.ID, 0, len(seq.Stmts))
		var moving ir.Stmt
		for _, c := range seq.Stmts {
			if c.StmtID() == stmt {
				moving = c
				continue
			}
			order = append(order, c.StmtID())
		}
		if moving == nil {
			return nil, fmt.Errorf("%s not found among %s's siblings", stmt, dst)
		}
		out := make([]ir.ID, 0, len(order)+1)
		for _, id := range order {
			if id == dst && side == MoveBefore {
				out = append(out, stmt)
			}
			out = append(out, id)
			if id == dst && side == MoveAfter {
				out = append(out, stmt)
			}
		}
		byID := map[ir.ID]ir.Stmt{moving.StmtID(): moving}
		for _, c := range seq.Stmts {
			byID[c.StmtID()] = c
		}
		newOrder := make([]ir.Stmt, len(out))
		for i, id := range out {
			newOrder[i] = byID[id]
		}
		if err := checkSwapLegality(seq.Stmts, newOrder); err != nil {
			return nil, err
		}
		return ir.ReplaceByID(tree, seq.StmtID(), func(ir.Stmt) ir.Stmt { return ir.NewStmtSeq(newOrder...) }), nil
	})
}

func dropStmt(tree ir.Stmt, target ir.Stmt) ir.Stmt {
	return ir.ReplaceByID(tree, target.StmtID(), func(ir.Stmt) ir.Stmt { return ir.NewStmtSeq() })
}
