package schedule

import (
	"fmt"

	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

// Parallelize marks loop to run under scope, after checking that no
// cross-iteration dependency forbids it (a loop-carried hazard other than
// a recognized reduction makes the loop unsafe to run out of order).
func (s *Schedule) Parallelize(loop ir.ID, scope ir.ParallelScope) error {
	op := fmt.Sprintf("parallelize(%s, %s)", loop, scope)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		f, err := findFor(tree, loop)
		if err != nil {
			return nil, err
		}
		deps := analysis.FindDependencies(f.Body, map[string]analysis.Direction{f.Iter: analysis.Different})
		for _, d := range deps {
			if !reductionCovers(f, d.Later.Var) {
				return nil, fmt.Errorf("loop-carried dependency on %s forbids parallelize", d.Later.Var)
			}
		}
		newProp := f.Property.Clone()
		newProp.ParallelScope = scope
		r := ir.NewFor(f.Iter, f.Begin, f.End, f.Step, f.Body)
		ir.SetID(r, f.StmtID())
		r.Property = newProp
		return ir.ReplaceByID(tree, loop, func(ir.Stmt) ir.Stmt { return r }), nil
	})
}

func reductionCovers(f *ir.For, varName string) bool {
	for _, red := range f.Property.Reductions {
		if red.Var == varName {
			return true
		}
	}
	return false
}

// Unroll marks loop for full unrolling. Rejected when the loop's trip
// count cannot be proven to be a compile-time constant, since an unroller
// has to materialize exactly that many copies of the body.
func (s *Schedule) Unroll(loop ir.ID) error {
	op := fmt.Sprintf("unroll(%s)", loop)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		f, err := findFor(tree, loop)
		if err != nil {
			return nil, err
		}
		lf := analysis.Analyze(f.Len)
		if lf == nil || len(lf.Terms) != 0 {
			return nil, fmt.Errorf("trip count of %s is not a compile-time constant", loop)
		}
		newProp := f.Property.Clone()
		newProp.Unroll = true
		r := ir.NewFor(f.Iter, f.Begin, f.End, f.Step, f.Body)
		ir.SetID(r, f.StmtID())
		r.Property = newProp
		return ir.ReplaceByID(tree, loop, func(ir.Stmt) ir.Stmt { return r }), nil
	})
}

// Vectorize marks loop as a vectorization candidate. Legality (no
// loop-carried dependency on the iterator, a constant trip count) is
// re-checked by the lowering driver's lower-vector pass, which may
// silently downgrade an illegal vectorize rather than reject it outright
// here — annotate-time legality is therefore a necessary but not
// sufficient condition, matching §4.6's two-stage design.
func (s *Schedule) Vectorize(loop ir.ID) error {
	op := fmt.Sprintf("vectorize(%s)", loop)
	return s.apply(op, func(tree ir.Stmt) (ir.Stmt, error) {
		f, err := findFor(tree, loop)
		if err != nil {
			return nil, err
		}
		deps := analysis.FindDependencies(f.Body, map[string]analysis.Direction{f.Iter: analysis.Different})
		if len(deps) > 0 {
			return nil, fmt.Errorf("loop-carried dependency forbids vectorize")
		}
		newProp := f.Property.Clone()
		newProp.Vectorize = true
		r := ir.NewFor(f.Iter, f.Begin, f.End, f.Step, f.Body)
		ir.SetID(r, f.StmtID())
		r.Property = newProp
		return ir.ReplaceByID(tree, loop, func(ir.Stmt) ir.Stmt { return r }), nil
	})
}
