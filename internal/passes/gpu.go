package passes

import (
	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// syncThreadsTemplate is the intrinsic call MakeSync inserts; the CUDA
// target backend recognizes it and emits __syncthreads() verbatim.
const syncThreadsTemplate = "__syncthreads()"

// LowerParallelReduction expands every Atomic ParallelReduction recorded
// on a GPU-scoped For loop's property (non-atomic ones are left as they
// are) into an explicit local-then-atomic
// pattern: initialize a per-thread partial at the reduction's neutral
// element, fold ReduceTo into the partial during the loop, and emit one
// atomic ReduceTo of the partial into the shared target after the loop —
// replacing a plain per-iteration atomic with one atomic per thread.
func LowerParallelReduction(s ir.Stmt) (ir.Stmt, error) {
	m := &lowerParReduceMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type lowerParReduceMutator struct {
	ir.BaseMutator
}

func (m *lowerParReduceMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	f, ok := s.(*ir.For)
	if !ok || f.Property == nil || len(f.Property.Reductions) == 0 || !f.Property.ParallelScope.IsGPUThread() {
		return m.BaseMutator.MutateStmt(s)
	}
	body := m.MutateStmt(f.Body)
	var wrap func(ir.Stmt) ir.Stmt
	finals := []ir.Stmt{}
	for _, red := range f.Property.Reductions {
		if !red.Atomic {
			continue
		}
		partialName := ir.DerivedName(red.Var, "partial")
		dt := ir.Float32
		tensor := ir.Tensor{DType: dt}
		buf := ir.NewBuffer(tensor, ir.Cache, ir.ByValue)
		init := ir.NewStore(partialName, nil, red.Op.Neutral(dt))
		body = replaceReduceWithPartial(body, red.Var, partialName, red.Op)
		finalWrite := ir.NewReduceTo(red.Var, indicesFromRange(red.Begins), red.Op, ir.NewLoad(partialName))
		finals = append(finals, finalWrite)
		prevWrap := wrap
		name, b := partialName, buf
		wrap = func(inner ir.Stmt) ir.Stmt {
			defStmt := ir.NewVarDef(name, b, ir.NewStmtSeq(init, inner))
			if prevWrap != nil {
				return prevWrap(defStmt)
			}
			return defStmt
		}
	}
	newFor := rebuildFor(f, body)
	if len(finals) == 0 {
		return newFor
	}
	result := ir.NewStmtSeq(append([]ir.Stmt{newFor}, finals...)...)
	if wrap != nil {
		return wrap(result)
	}
	return result
}

func indicesFromRange(begins []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, len(begins))
	copy(out, begins)
	return out
}

func replaceReduceWithPartial(s ir.Stmt, target, partial string, op ir.ReduceOp) ir.Stmt {
	m := &partialReduceMutator{target: target, partial: partial, op: op}
	m.Self = m
	return m.MutateStmt(s)
}

type partialReduceMutator struct {
	ir.BaseMutator
	target, partial string
	op              ir.ReduceOp
}

func (m *partialReduceMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	if rt, ok := s.(*ir.ReduceTo); ok && rt.Var == m.target && rt.Op == m.op {
		r := ir.NewReduceTo(m.partial, nil, m.op, m.MutateExpr(rt.Expr))
		ir.SetID(r, rt.StmtID())
		return r
	}
	return m.BaseMutator.MutateStmt(s)
}

// MultiplexBuffers widens a GPUShared Cache buffer so each thread along
// the enclosing thread-scoped For loop gets its own slice, turning
// cross-thread aliasing (every thread sharing one slot) into per-thread
// storage the rest of the pipeline can treat uniformly.
func MultiplexBuffers(s ir.Stmt) (ir.Stmt, error) {
	m := &multiplexMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type multiplexMutator struct {
	ir.BaseMutator
	threadIter string
	threadLen  ir.Expr
}

func (m *multiplexMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	if f, ok := s.(*ir.For); ok && f.Property != nil && f.Property.ParallelScope.IsGPUThread() {
		prevIter, prevLen := m.threadIter, m.threadLen
		m.threadIter, m.threadLen = f.Iter, f.Len
		body := m.MutateStmt(f.Body)
		m.threadIter, m.threadLen = prevIter, prevLen
		return rebuildFor(f, body)
	}
	if def, ok := s.(*ir.VarDef); ok && def.Buffer.MType == ir.GPUShared && m.threadIter != "" {
		newBuf := def.Buffer.Clone()
		newBuf.Tensor.Shape = append([]ir.Expr{m.threadLen}, newBuf.Tensor.Shape...)
		newBody := prefixAccesses(def.Body, def.Name, ir.NewVar(m.threadIter))
		r := ir.NewVarDef(def.Name, newBuf, m.MutateStmt(newBody))
		ir.SetID(r, def.StmtID())
		return r
	}
	return m.BaseMutator.MutateStmt(s)
}

// SimplexBuffers is MultiplexBuffers' inverse: it drops the leading
// per-thread axis multiplexing added, once a later pass (or the target)
// has proven the buffer is only ever touched within a single thread's
// lifetime and the extra axis serves no purpose.
func SimplexBuffers(s ir.Stmt) (ir.Stmt, error) {
	m := &simplexMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type simplexMutator struct {
	ir.BaseMutator
}

func (m *simplexMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	def, ok := s.(*ir.VarDef)
	if !ok || def.Buffer.MType != ir.GPUShared || len(def.Buffer.Tensor.Shape) == 0 {
		return m.BaseMutator.MutateStmt(s)
	}
	newBuf := def.Buffer.Clone()
	newBuf.Tensor.Shape = newBuf.Tensor.Shape[1:]
	newBody := dropLeadingAccessIndex(def.Body, def.Name)
	r := ir.NewVarDef(def.Name, newBuf, m.MutateStmt(newBody))
	ir.SetID(r, def.StmtID())
	return r
}

func prefixAccesses(s ir.Stmt, name string, prefix ir.Expr) ir.Stmt {
	m := &prefixMutator{name: name, prefix: prefix}
	m.Self = m
	return m.MutateStmt(s)
}

type prefixMutator struct {
	ir.BaseMutator
	name   string
	prefix ir.Expr
}

func (m *prefixMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			r := ir.NewStore(n.Var, append([]ir.Expr{m.prefix}, mutateAll(m, n.Indices)...), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			r := ir.NewReduceTo(n.Var, append([]ir.Expr{m.prefix}, mutateAll(m, n.Indices)...), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *prefixMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.NewLoad(l.Var, append([]ir.Expr{m.prefix}, mutateAll(m, l.Indices)...)...)
	}
	return m.BaseMutator.MutateExpr(e)
}

func mutateAll(m *prefixMutator, es []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, len(es))
	for i, e := range es {
		out[i] = m.MutateExpr(e)
	}
	return out
}

func dropLeadingAccessIndex(s ir.Stmt, name string) ir.Stmt {
	m := &dropLeadMutator{name: name}
	m.Self = m
	return m.MutateStmt(s)
}

type dropLeadMutator struct {
	ir.BaseMutator
	name string
}

func (m *dropLeadMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name && len(n.Indices) > 0 {
			r := ir.NewStore(n.Var, n.Indices[1:], m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name && len(n.Indices) > 0 {
			r := ir.NewReduceTo(n.Var, n.Indices[1:], n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *dropLeadMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name && len(l.Indices) > 0 {
		return ir.NewLoad(l.Var, l.Indices[1:]...)
	}
	return m.BaseMutator.MutateExpr(e)
}

// NormalizeThreads rewrites a GPU thread-scoped For loop to start its
// iterator at 0, folding a non-zero Begin into an offset added at every
// use so thread-index math downstream can assume 0-based indices.
func NormalizeThreads(s ir.Stmt) (ir.Stmt, error) {
	m := &normalizeThreadsMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type normalizeThreadsMutator struct {
	ir.BaseMutator
}

func (m *normalizeThreadsMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	f, ok := s.(*ir.For)
	if !ok || f.Property == nil || !f.Property.ParallelScope.IsGPUThread() {
		return m.BaseMutator.MutateStmt(s)
	}
	if c, ok := f.Begin.(*ir.IntConst); ok && c.Value == 0 {
		return rebuildFor(f, m.MutateStmt(f.Body))
	}
	offset := f.Begin
	newEnd := ir.NewBinary(ir.Sub, f.End, offset)
	shifted := shiftIterReads(f.Body, f.Iter, offset)
	r := ir.NewFor(f.Iter, ir.NewIntConst(0), newEnd, f.Step, m.MutateStmt(shifted))
	r.Property = f.Property.Clone()
	return r
}

func shiftIterReads(s ir.Stmt, iter string, offset ir.Expr) ir.Stmt {
	m := &shiftIterMutator{iter: iter, offset: offset}
	m.Self = m
	return m.MutateStmt(s)
}

type shiftIterMutator struct {
	ir.BaseMutator
	iter   string
	offset ir.Expr
}

func (m *shiftIterMutator) MutateExpr(e ir.Expr) ir.Expr {
	if v, ok := e.(*ir.VarExpr); ok && v.Name == m.iter {
		return ir.NewBinary(ir.Add, v, m.offset)
	}
	return m.BaseMutator.MutateExpr(e)
}

// MakeSync inserts a __syncthreads() barrier before a statement that reads
// a variable written by an earlier sibling in the same StmtSeq, the
// minimal correctness fix for shared memory hand-off within a thread
// block. Every StmtSeq is treated alike and writes to any variable count:
// neither the buffer's memory type nor whether the sequence runs inside a
// thread block is checked. Each inserted barrier clears the pending writes.
func MakeSync(s ir.Stmt) (ir.Stmt, error) {
	m := &makeSyncMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type makeSyncMutator struct {
	ir.BaseMutator
}

func (m *makeSyncMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	seq, ok := s.(*ir.StmtSeq)
	if !ok {
		return m.BaseMutator.MutateStmt(s)
	}
	out := []ir.Stmt{}
	writesSeen := map[string]bool{}
	for _, c := range seq.Stmts {
		mutated := m.MutateStmt(c)
		if needsSyncBefore(mutated, writesSeen) {
			out = append(out, ir.NewEval(ir.NewIntrinsic(syncThreadsTemplate, ir.Int32)))
			writesSeen = map[string]bool{}
		}
		out = append(out, mutated)
		recordSharedWrites(mutated, writesSeen)
	}
	return ir.NewStmtSeq(out...)
}

func needsSyncBefore(s ir.Stmt, writes map[string]bool) bool {
	if len(writes) == 0 {
		return false
	}
	found := false
	v := &readFinder{writes: writes, found: &found}
	v.Self = v
	ir.Walk(v, s)
	return found
}

type readFinder struct {
	ir.BaseVisitor
	writes map[string]bool
	found  *bool
}

func (v *readFinder) VisitExpr(e ir.Expr) {
	if l, ok := e.(*ir.LoadExpr); ok && v.writes[l.Var] {
		*v.found = true
	}
	v.BaseVisitor.VisitExpr(e)
}

func recordSharedWrites(s ir.Stmt, writes map[string]bool) {
	v := &writeRecorder{writes: writes}
	v.Self = v
	ir.Walk(v, s)
}

type writeRecorder struct {
	ir.BaseVisitor
	writes map[string]bool
}

func (v *writeRecorder) VisitStmt(s ir.Stmt) {
	switch n := s.(type) {
	case *ir.Store:
		v.writes[n.Var] = true
	case *ir.ReduceTo:
		v.writes[n.Var] = true
	}
	v.BaseVisitor.VisitStmt(s)
}

// Make1DVar flattens a GPUShared/GPULocal buffer of rank > 1 into an
// equivalent rank-1 buffer, row-major, since most backend shared-memory
// declarations are most portably expressed as a flat array.
func Make1DVar(s ir.Stmt) (ir.Stmt, error) {
	m := &make1DVarMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type make1DVarMutator struct {
	ir.BaseMutator
}

func (m *make1DVarMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	def, ok := s.(*ir.VarDef)
	if !ok || (def.Buffer.MType != ir.GPUShared && def.Buffer.MType != ir.GPULocal) || def.Buffer.Tensor.Rank() <= 1 {
		return m.BaseMutator.MutateStmt(s)
	}
	shape := def.Buffer.Tensor.Shape
	flatSize := shape[0]
	for _, d := range shape[1:] {
		flatSize = ir.NewBinary(ir.Mul, flatSize, d)
	}
	newBuf := def.Buffer.Clone()
	newBuf.Tensor.Shape = []ir.Expr{flatSize}
	newBody := flattenAccesses(def.Body, def.Name, shape)
	r := ir.NewVarDef(def.Name, newBuf, m.MutateStmt(newBody))
	ir.SetID(r, def.StmtID())
	return r
}

func flattenAccesses(s ir.Stmt, name string, shape []ir.Expr) ir.Stmt {
	m := &flattenMutator{name: name, shape: shape}
	m.Self = m
	return m.MutateStmt(s)
}

type flattenMutator struct {
	ir.BaseMutator
	name  string
	shape []ir.Expr
}

func (m *flattenMutator) flat(indices []ir.Expr) []ir.Expr {
	if len(indices) != len(m.shape) {
		return indices
	}
	idx := indices[0]
	for i := 1; i < len(indices); i++ {
		idx = ir.NewBinary(ir.Add, ir.NewBinary(ir.Mul, idx, m.shape[i]), indices[i])
	}
	return []ir.Expr{m.MutateExpr(idx)}
}

func (m *flattenMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	switch n := s.(type) {
	case *ir.Store:
		if n.Var == m.name {
			r := ir.NewStore(n.Var, m.flat(n.Indices), m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			return r
		}
	case *ir.ReduceTo:
		if n.Var == m.name {
			r := ir.NewReduceTo(n.Var, m.flat(n.Indices), n.Op, m.MutateExpr(n.Expr))
			ir.SetID(r, n.StmtID())
			r.Atomic = n.Atomic
			return r
		}
	}
	return m.BaseMutator.MutateStmt(s)
}

func (m *flattenMutator) MutateExpr(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.LoadExpr); ok && l.Var == m.name {
		return ir.NewLoad(l.Var, m.flat(l.Indices)...)
	}
	return m.BaseMutator.MutateExpr(e)
}

// LowerVector is the hand-off point where a For loop marked
// ForProperty.Vectorize stops being plain sequential IR and becomes the
// target backend's responsibility to emit as SIMD. It only proves the
// marking is still legal — unit step, and no loop-carried dependency
// within the body — downgrading Vectorize back to false when a prior
// pass invalidated the legality a scheduling operation once checked.
// The actual vector instruction selection happens in the target code
// generator, not in this tree-to-tree pass.
func LowerVector(s ir.Stmt) (ir.Stmt, error) {
	m := &lowerVectorMutator{}
	m.Self = m
	return m.MutateStmt(s), nil
}

type lowerVectorMutator struct {
	ir.BaseMutator
}

// vectorWidths are the candidate SIMD widths §4.5 lists; the trip count
// must be provably divisible by one of them or vectorization has no
// applicable width and is downgraded.
var vectorWidths = []int64{4, 2}

func (m *lowerVectorMutator) MutateStmt(s ir.Stmt) ir.Stmt {
	f, ok := s.(*ir.For)
	if !ok || f.Property == nil || !f.Property.Vectorize {
		return m.BaseMutator.MutateStmt(s)
	}
	body := m.MutateStmt(f.Body)
	r := rebuildFor(f, body)
	if c, ok := f.Step.(*ir.IntConst); !ok || c.Value != 1 {
		r.Property.Vectorize = false
		return r
	}
	if deps := analysis.FindDependencies(body, map[string]analysis.Direction{f.Iter: analysis.Different}); len(deps) > 0 {
		r.Property.Vectorize = false
		return r
	}
	if !divisibleByCandidateWidth(f.Len) {
		r.Property.Vectorize = false
	}
	return r
}

// divisibleByCandidateWidth reports whether len's trip count is a known
// constant evenly divisible by one of vectorWidths; an unresolvable or
// indivisible length means no candidate width applies.
func divisibleByCandidateWidth(tripLen ir.Expr) bool {
	lf := analysis.Analyze(tripLen)
	if !lf.IsConstant() {
		return false
	}
	for _, w := range vectorWidths {
		if lf.Const%w == 0 {
			return true
		}
	}
	return false
}
