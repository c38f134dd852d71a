package schedule

import (
	"fmt"

	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// MatmulInfo describes a recognized C = beta*C + A*B pattern, the
// information as-matmul needs to synthesize an intrinsic call.
type MatmulInfo struct {
	A, B, C                string
	M, N, K                int64
	BatchDims              []int64
	Beta                   float64
	LeadingDimA, LeadingDimB, LeadingDimC int64
}

// AsMatmul recognizes loop as the root of a perfectly-nested loop pattern
// computing C = A*B (optionally batched, optionally accumulating into a
// pre-existing C), per §4.5's as-matmul algorithm, and replaces the whole
// nest with a single intrinsic call encoding the inferred dimensions,
// leading dimensions, and beta coefficient.
func (s *Schedule) AsMatmul(loop ir.ID) (MatmulInfo, error) {
	op := fmt.Sprintf("as-matmul(%s)", loop)
	var info MatmulInfo
	err := s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		f, err := findFor(tree, loop)
		if err != nil {
			return nil, err
		}
		nest, inner := collectPerfectNest(f)
		store, reduce, ok := soleAccumulation(inner)
		if !ok {
			return nil, fmt.Errorf("body is not a single C = A*B accumulation")
		}
		var cVar string
		var cIdx []ir.Expr
		var rhs ir.Expr
		isReduce := reduce != nil
		if isReduce {
			cVar, cIdx, rhs = reduce.Var, reduce.Indices, reduce.Expr
			if reduce.Op != ir.ReduceAdd {
				return nil, fmt.Errorf("reduction operator is not Add")
			}
		} else {
			cVar, cIdx, rhs = store.Var, store.Indices, store.Expr
		}
		mulA, mulB, ok := asMul(rhs)
		if !ok {
			return nil, fmt.Errorf("pattern mismatch: expected a product of two loads")
		}
		aLoad, ok := mulA.(*ir.LoadExpr)
		if !ok {
			return nil, fmt.Errorf("left operand is not a tensor load")
		}
		bLoad, ok := mulB.(*ir.LoadExpr)
		if !ok {
			return nil, fmt.Errorf("right operand is not a tensor load")
		}

		roleC := map[string]bool{}
		for _, idx := range cIdx {
			name, err := soleUnitIterator(idx, nest)
			if err != nil {
				return nil, err
			}
			roleC[name] = true
		}
		roleA := map[string]bool{}
		for _, idx := range aLoad.Indices {
			name, err := soleUnitIterator(idx, nest)
			if err != nil {
				return nil, err
			}
			roleA[name] = true
		}
		roleB := map[string]bool{}
		for _, idx := range bLoad.Indices {
			name, err := soleUnitIterator(idx, nest)
			if err != nil {
				return nil, err
			}
			roleB[name] = true
		}

		var mIter, nIter, kIter string
		var batch []string
		for _, l := range nest {
			it := l.Iter
			inA, inB, inC := roleA[it], roleB[it], roleC[it]
			switch {
			case inA && inC && !inB:
				if mIter != "" {
					return nil, fmt.Errorf("more than one M dimension")
				}
				mIter = it
			case inB && inC && !inA:
				if nIter != "" {
					return nil, fmt.Errorf("more than one N dimension")
				}
				nIter = it
			case inA && inB && !inC:
				if kIter != "" {
					return nil, fmt.Errorf("more than one K dimension")
				}
				kIter = it
			case inA && inB && inC:
				batch = append(batch, it)
			default:
				return nil, fmt.Errorf("iterator %s does not fit the M/N/K/batch roles", it)
			}
		}
		if mIter == "" || nIter == "" || kIter == "" {
			return nil, fmt.Errorf("could not identify all of M, N, K dimensions")
		}

		m := tripCount(nest, mIter)
		n := tripCount(nest, nIter)
		k := tripCount(nest, kIter)
		if m < 0 || n < 0 || k < 0 {
			return nil, fmt.Errorf("loop trip counts are not compile-time constants")
		}
		var batchDims []int64
		for _, b := range batch {
			bc := tripCount(nest, b)
			if bc < 0 {
				return nil, fmt.Errorf("batch trip count is not a compile-time constant")
			}
			batchDims = append(batchDims, bc)
		}

		beta := 1.0
		if !isReduce {
			beta = 0.0
		} else if priorZeroInit(tree, cVar, cIdx) {
			beta = 0.0
		}

		info = MatmulInfo{
			A: aLoad.Var, B: bLoad.Var, C: cVar,
			M: m, N: n, K: k, BatchDims: batchDims, Beta: beta,
			LeadingDimA: k, LeadingDimB: n, LeadingDimC: n,
		}

		args := []ir.Expr{
			ir.NewIntConst(m), ir.NewIntConst(n), ir.NewIntConst(k),
			ir.NewFloatConst(beta, ir.Float64),
		}
		intr := ir.NewIntrinsic(fmt.Sprintf("matmul(%s,%s,%s,%%,%%,%%,%%)", cVar, aLoad.Var, bLoad.Var), ir.Float32, args...)
		intr.HasSideEffect = true
		call := ir.NewEval(intr)
		return ir.ReplaceByID(tree, loop, func(ir.Stmt) ir.Stmt { return call }), nil
	})
	if err != nil {
		return MatmulInfo{}, err
	}
	return info, nil
}

func collectPerfectNest(f *ir.For) ([]*ir.For, ir.Stmt) {
	nest := []*ir.For{f}
	cur := f.Body
	for {
		if inner, ok := cur.(*ir.For); ok {
			nest = append(nest, inner)
			cur = inner.Body
			continue
		}
		return nest, cur
	}
}

func soleAccumulation(s ir.Stmt) (*ir.Store, *ir.ReduceTo, bool) {
	switch n := s.(type) {
	case *ir.Store:
		return n, nil, true
	case *ir.ReduceTo:
		return nil, n, true
	default:
		return nil, nil, false
	}
}

func asMul(e ir.Expr) (ir.Expr, ir.Expr, bool) {
	b, ok := e.(*ir.BinaryExpr)
	if !ok || b.Op != ir.Mul {
		return nil, nil, false
	}
	return b.LHS, b.RHS, true
}

// soleUnitIterator checks that idx is of the form ±1*i + (invariant),
// where i is one of nest's iterators and the residual references none of
// the other nest iterators, returning i's name.
func soleUnitIterator(idx ir.Expr, nest []*ir.For) (string, error) {
	lf := analysis.Analyze(idx)
	var found string
	for _, l := range nest {
		c := lf.Coefficient(l.Iter)
		if c == 0 {
			continue
		}
		if c != 1 && c != -1 {
			return "", fmt.Errorf("index coefficient of %s is not +-1", l.Iter)
		}
		if found != "" {
			return "", fmt.Errorf("index mixes more than one loop iterator")
		}
		found = l.Iter
	}
	if found == "" {
		return "", fmt.Errorf("index does not reference any nest iterator")
	}
	residual := lf.ResidualOf(found)
	for _, l := range nest {
		if l.Iter == found {
			continue
		}
		if residual.Coefficient(l.Iter) != 0 {
			return "", fmt.Errorf("index is not outer-loop-invariant")
		}
	}
	return found, nil
}

func tripCount(nest []*ir.For, iter string) int64 {
	for _, l := range nest {
		if l.Iter != iter {
			continue
		}
		lf := analysis.Analyze(l.Len)
		if !lf.IsConstant() {
			return -1
		}
		return lf.Const
	}
	return -1
}

// priorZeroInit reports whether varName at indices (ignoring any K/batch
// offset, since the init covers the whole reduction) is preceded, within
// its enclosing StmtSeq, by a Store of a zero constant to the same
// variable — the signal that beta should be 0 rather than 1.
func priorZeroInit(tree ir.Stmt, varName string, indices []ir.Expr) bool {
	found := false
	seq := ir.Find(tree, func(s ir.Stmt) bool {
		sq, ok := s.(*ir.StmtSeq)
		return ok && containsVarDefOrFor(sq, varName)
	})
	for _, s := range seq {
		sq := s.(*ir.StmtSeq)
		for _, child := range sq.Stmts {
			if st, ok := child.(*ir.Store); ok && st.Var == varName && isZeroConst(st.Expr) {
				found = true
			}
		}
	}
	return found
}

func containsVarDefOrFor(s ir.Stmt, varName string) bool {
	matches := ir.Find(s, func(n ir.Stmt) bool {
		st, ok := n.(*ir.Store)
		return ok && st.Var == varName
	})
	return len(matches) > 0
}

func isZeroConst(e ir.Expr) bool {
	switch n := e.(type) {
	case *ir.IntConst:
		return n.Value == 0
	case *ir.FloatConst:
		return n.Value == 0
	default:
		return false
	}
}
