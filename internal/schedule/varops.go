package schedule

import (
	"fmt"

	"tensorc/internal/ir"
)

// CacheResult carries the handles a successful Cache/CacheReduction
// produces: the synthesized fill/flush statements and the new cache
// variable's own VarDef.
type CacheResult struct {
	Fill, Flush ir.ID
	CacheVar    string
	CacheDef    ir.ID
}

// Cache introduces a fresh buffer of mtype local to stmt, redirecting
// every access to var within stmt to the new buffer, filling it from var
// on entry and flushing it back to var on exit.
func (s *Schedule) Cache(stmt ir.ID, varName string, mtype ir.MemType) (CacheResult, error) {
	op := fmt.Sprintf("cache(%s, %s, %s)", stmt, varName, mtype)
	var res CacheResult
	err := s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		target := ir.FindByID(tree, stmt)
		if target == nil {
			return nil, fmt.Errorf("%s not found", stmt)
		}
		def := enclosingVarDef(tree, varName)
		if def == nil {
			return nil, fmt.Errorf("stmt is outside the VarDef of %s", varName)
		}
		cacheName := ir.DerivedName(varName, "cache")
		buf := ir.NewBuffer(def.Buffer.Tensor, ir.Cache, mtype)
		redirected := redirectVar(target, varName, cacheName)
		fill := ir.NewStore(cacheName, zeroIndices(def.Buffer.Tensor.Rank()), ir.NewLoad(varName, zeroIndices(def.Buffer.Tensor.Rank())...))
		flush := ir.NewStore(varName, zeroIndices(def.Buffer.Tensor.Rank()), ir.NewLoad(cacheName, zeroIndices(def.Buffer.Tensor.Rank())...))
		cacheDef := ir.NewVarDef(cacheName, buf, ir.NewStmtSeq(fill, redirected, flush))
		res = CacheResult{Fill: fill.StmtID(), Flush: flush.StmtID(), CacheVar: cacheName, CacheDef: cacheDef.StmtID()}
		return ir.ReplaceByID(tree, stmt, func(ir.Stmt) ir.Stmt { return cacheDef }), nil
	})
	if err != nil {
		return CacheResult{}, err
	}
	return res, nil
}

// CacheReduction is Cache specialized for a stmt containing only
// reduction writes: the new buffer is initialized to the reduction's
// neutral element and flushed by reducing back into var, instead of a
// plain load/store fill and flush.
func (s *Schedule) CacheReduction(stmt ir.ID, varName string, mtype ir.MemType) (CacheResult, error) {
	op := fmt.Sprintf("cache-reduction(%s, %s, %s)", stmt, varName, mtype)
	var res CacheResult
	err := s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		target := ir.FindByID(tree, stmt)
		if target == nil {
			return nil, fmt.Errorf("%s not found", stmt)
		}
		def := enclosingVarDef(tree, varName)
		if def == nil {
			return nil, fmt.Errorf("stmt is outside the VarDef of %s", varName)
		}
		op, ok := soleReductionOp(target, varName)
		if !ok {
			return nil, fmt.Errorf("non-reduction writes present to %s", varName)
		}
		cacheName := ir.DerivedName(varName, "cache")
		buf := ir.NewBuffer(def.Buffer.Tensor, ir.Cache, mtype)
		redirected := redirectVar(target, varName, cacheName)
		idx := zeroIndices(def.Buffer.Tensor.Rank())
		init := ir.NewStore(cacheName, idx, op.Neutral(def.Buffer.Tensor.DType))
		flush := ir.NewReduceTo(varName, idx, op, ir.NewLoad(cacheName, idx...))
		cacheDef := ir.NewVarDef(cacheName, buf, ir.NewStmtSeq(init, redirected, flush))
		res = CacheResult{Fill: init.StmtID(), Flush: flush.StmtID(), CacheVar: cacheName, CacheDef: cacheDef.StmtID()}
		return ir.ReplaceByID(tree, stmt, func(ir.Stmt) ir.Stmt { return cacheDef }), nil
	})
	if err != nil {
		return CacheResult{}, err
	}
	return res, nil
}

func zeroIndices(rank int) []ir.Expr {
	out := make([]ir.Expr, rank)
	for i := range out {
		out[i] = ir.NewIntConst(0)
	}
	return out
}

func enclosingVarDef(tree ir.Stmt, name string) *ir.VarDef {
	defs := ir.Find(tree, func(s ir.Stmt) bool {
		d, ok := s.(*ir.VarDef)
		return ok && d.Name == name
	})
	if len(defs) == 0 {
		return nil
	}
	return defs[0].(*ir.VarDef)
}

func soleReductionOp(s ir.Stmt, varName string) (ir.ReduceOp, bool) {
	var found ir.ReduceOp
	set := false
	ok := true
	v := &reduceOpFinder{varName: varName, found: &found, set: &set, ok: &ok}
	v.Self = v
	ir.Walk(v, s)
	return found, ok && set
}

type reduceOpFinder struct {
	ir.BaseVisitor
	varName string
	found   *ir.ReduceOp
	set     *bool
	ok      *bool
}

func (v *reduceOpFinder) VisitStmt(s ir.Stmt) {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == v.varName {
			*v.ok = false
		}
	case *ir.ReduceTo:
		if n.Var == v.varName {
			if *v.set && *v.found != n.Op {
				*v.ok = false
			}
			*v.found = n.Op
			*v.set = true
		}
	}
	v.BaseVisitor.VisitStmt(s)
}

func redirectVar(s ir.Stmt, from, to string) ir.Stmt {
	m := &redirectMutator{from: from, to: to}
	m.Self = m
	return m.MutateStmt(s)
}

type redirectMutator struct {
	ir.BaseMutator
	from, to string
}

func (m *redirectMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.from {
			r := ir.NewStore(m.to, mutateExprList(m, n.Indices), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.from {
			r := ir.NewReduceTo(m.to, mutateExprList(m, n.Indices), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *redirectMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.from {
		return ir.NewLoad(m.to, mutateExprList(m, l.Indices)...)
	}
	return m.BaseMutator.MutateExpr(e)
}

func mutateExprList(m ir.Mutator, es []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, len(es))
	for i, e := range es {
		out[i] = m.MutateExpr(e)
	}
	return out
}

// SetMemType rewrites a Cache VarDef's memory type.
func (s *Schedule) SetMemType(def ir.ID, mtype ir.MemType) error {
	op := fmt.Sprintf("set-mem-type(%s, %s)", def, mtype)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		d, err := findVarDef(tree, def)
		if err != nil {
			return nil, err
		}
		if d.Buffer.AType != ir.Cache {
			return nil, fmt.Errorf("cannot change memory type of an I/O variable")
		}
		newBuf := d.Buffer.Clone()
		newBuf.MType = mtype
		return ir.ReplaceByID(tree, def, func(ir.Stmt) ir.Stmt {
			r := ir.NewVarDef(d.Name, newBuf, d.Body)
			ir.SetID(r, d.StmtID())
			return r
		}), nil
	})
}

// VarSplitMode selects how VarSplit pads a partial final tile.
type VarSplitMode int

const (
	FixedSize VarSplitMode = iota
	RelaxedSize
)

// VarSplit splits the dim-th axis of def's buffer into two axes whose
// product covers the original extent. FixedSize pads the new shape to an
// exact multiple of factor; RelaxedSize leaves the last tile partial and
// is rejected for I/O variables (the caller has no control over their
// external layout).
func (s *Schedule) VarSplit(def ir.ID, dim int, mode VarSplitMode, factor, nparts int64) error {
	op := fmt.Sprintf("var-split(%s, dim=%d)", def, dim)
	if factor <= 0 && nparts <= 0 {
		return fmt.Errorf("%s: factor or nparts required", op)
	}
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		d, err := findVarDef(tree, def)
		if err != nil {
			return nil, err
		}
		if mode == RelaxedSize && d.Buffer.AType != ir.Cache {
			return nil, fmt.Errorf("RelaxedSize is not allowed on an I/O variable")
		}
		if dim < 0 || dim >= d.Buffer.Tensor.Rank() {
			return nil, fmt.Errorf("dim %d out of range", dim)
		}
		orig := d.Buffer.Tensor.Shape[dim]
		var factorExpr, outerExpr ir.Expr
		if factor > 0 {
			factorExpr = ir.NewIntConst(factor)
			if mode == FixedSize {
				outerExpr = ir.NewBinary(ir.CeilDiv, orig, factorExpr)
			} else {
				outerExpr = ir.NewBinary(ir.FloorDiv, orig, factorExpr)
			}
		} else {
			outerExpr = ir.NewIntConst(nparts)
			factorExpr = ir.NewBinary(ir.CeilDiv, orig, outerExpr)
		}
		newBuf := d.Buffer.Clone()
		newShape := make([]ir.Expr, 0, len(newBuf.Tensor.Shape)+1)
		newShape = append(newShape, newBuf.Tensor.Shape[:dim]...)
		newShape = append(newShape, outerExpr, factorExpr)
		newShape = append(newShape, newBuf.Tensor.Shape[dim+1:]...)
		newBuf.Tensor.Shape = newShape
		newBody := splitAccessDim(d.Body, d.Name, dim, factorExpr)
		r := ir.NewVarDef(d.Name, newBuf, newBody)
		ir.SetID(r, d.StmtID())
		return ir.ReplaceByID(tree, def, func(ir.Stmt) ir.Stmt { return r }), nil
	})
}

func splitAccessDim(s ir.Stmt, name string, dim int, factor ir.Expr) ir.Stmt {
	m := &splitDimMutator{name: name, dim: dim, factor: factor}
	m.Self = m
	return m.MutateStmt(s)
}

type splitDimMutator struct {
	ir.BaseMutator
	name   string
	dim    int
	factor ir.Expr
}

func (m *splitDimMutator) reindex(indices []ir.Expr) []ir.Expr {
	if m.dim >= len(indices) {
		return indices
	}
	idx := indices[m.dim]
	outer := ir.NewBinary(ir.FloorDiv, idx, m.factor)
	innerIdx := ir.NewBinary(ir.Mod, idx, m.factor)
	out := append([]ir.Expr{}, indices[:m.dim]...)
	out = append(out, outer, innerIdx)
	out = append(out, indices[m.dim+1:]...)
	return out
}

func (m *splitDimMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			r := ir.NewStore(n.Var, m.reindex(mutateExprList(m, n.Indices)), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			r := ir.NewReduceTo(n.Var, m.reindex(mutateExprList(m, n.Indices)), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *splitDimMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.NewLoad(l.Var, m.reindex(mutateExprList(m, l.Indices))...)
	}
	return m.BaseMutator.MutateExpr(e)
}

// VarMerge merges axes dim and dim+1 of def's buffer into one axis.
func (s *Schedule) VarMerge(def ir.ID, dim int) error {
	op := fmt.Sprintf("var-merge(%s, dim=%d)", def, dim)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		d, err := findVarDef(tree, def)
		if err != nil {
			return nil, err
		}
		shape := d.Buffer.Tensor.Shape
		if dim < 0 || dim >= len(shape)-1 {
			return nil, fmt.Errorf("dim %d out of range for rank %d", dim, len(shape))
		}
		inner := shape[dim+1]
		newBuf := d.Buffer.Clone()
		newShape := append([]ir.Expr{}, shape[:dim]...)
		newShape = append(newShape, ir.NewBinary(ir.Mul, shape[dim], shape[dim+1]))
		newShape = append(newShape, shape[dim+2:]...)
		newBuf.Tensor.Shape = newShape
		newBody := mergeAccessDim(d.Body, d.Name, dim, inner)
		r := ir.NewVarDef(d.Name, newBuf, newBody)
		ir.SetID(r, d.StmtID())
		return ir.ReplaceByID(tree, def, func(ir.Stmt) ir.Stmt { return r }), nil
	})
}

func mergeAccessDim(s ir.Stmt, name string, dim int, innerExtent ir.Expr) ir.Stmt {
	m := &mergeDimMutator{name: name, dim: dim, innerExtent: innerExtent}
	m.Self = m
	return m.MutateStmt(s)
}

type mergeDimMutator struct {
	ir.BaseMutator
	name        string
	dim         int
	innerExtent ir.Expr
}

func (m *mergeDimMutator) reindex(indices []ir.Expr) []ir.Expr {
	if m.dim+1 >= len(indices) {
		return indices
	}
	merged := ir.NewBinary(ir.Add, ir.NewBinary(ir.Mul, indices[m.dim], m.innerExtent), indices[m.dim+1])
	out := append([]ir.Expr{}, indices[:m.dim]...)
	out = append(out, merged)
	out = append(out, indices[m.dim+2:]...)
	return out
}

func (m *mergeDimMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			r := ir.NewStore(n.Var, m.reindex(mutateExprList(m, n.Indices)), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			r := ir.NewReduceTo(n.Var, m.reindex(mutateExprList(m, n.Indices)), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *mergeDimMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.NewLoad(l.Var, m.reindex(mutateExprList(m, l.Indices))...)
	}
	return m.BaseMutator.MutateExpr(e)
}

// VarReorder permutes def's buffer shape and every access's indices by
// order (a permutation of 0..rank-1). Rejected for I/O variables, whose
// external layout the caller does not control.
func (s *Schedule) VarReorder(def ir.ID, order []int) error {
	op := fmt.Sprintf("var-reorder(%s, %v)", def, order)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		d, err := findVarDef(tree, def)
		if err != nil {
			return nil, err
		}
		if d.Buffer.AType != ir.Cache {
			return nil, fmt.Errorf("var-reorder is not allowed on an I/O variable")
		}
		if !isPermutation(order, d.Buffer.Tensor.Rank()) {
			return nil, fmt.Errorf("order is not a permutation of rank %d", d.Buffer.Tensor.Rank())
		}
		newBuf := d.Buffer.Clone()
		newShape := make([]ir.Expr, len(order))
		for i, p := range order {
			newShape[i] = d.Buffer.Tensor.Shape[p]
		}
		newBuf.Tensor.Shape = newShape
		newBody := reorderAccessDims(d.Body, d.Name, order)
		r := ir.NewVarDef(d.Name, newBuf, newBody)
		ir.SetID(r, d.StmtID())
		return ir.ReplaceByID(tree, def, func(ir.Stmt) ir.Stmt { return r }), nil
	})
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, p := range order {
		if p < 0 || p >= n || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

func reorderAccessDims(s ir.Stmt, name string, order []int) ir.Stmt {
	m := &reorderDimMutator{name: name, order: order}
	m.Self = m
	return m.MutateStmt(s)
}

type reorderDimMutator struct {
	ir.BaseMutator
	name  string
	order []int
}

func (m *reorderDimMutator) reindex(indices []ir.Expr) []ir.Expr {
	if len(indices) != len(m.order) {
		return indices
	}
	out := make([]ir.Expr, len(indices))
	for i, p := range m.order {
		out[i] = indices[p]
	}
	return out
}

func (m *reorderDimMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			r := ir.NewStore(n.Var, m.reindex(mutateExprList(m, n.Indices)), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			r := ir.NewReduceTo(n.Var, m.reindex(mutateExprList(m, n.Indices)), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *reorderDimMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.NewLoad(l.Var, m.reindex(mutateExprList(m, l.Indices))...)
	}
	return m.BaseMutator.MutateExpr(e)
}
