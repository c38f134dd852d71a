// Package lower implements C6: the fixed composition of C4's passes that
// canonicalizes a tree and specializes it for a chosen target. Lower is
// the sole entry point a Schedule's final Ast() is handed to before
// target emission.
package lower

import (
	"tensorc/internal/cerrors"
	"tensorc/internal/ir"
	"tensorc/internal/passes"
	"tensorc/internal/target"
)

const fixpointLimit = 64

// Lower runs the fixed lowering pipeline over tree, branching on tgt's
// kind for the GPU/CPU-specific tail, per §4.6.
func Lower(tree ir.Stmt, tgt target.Target) (ir.Stmt, error) {
	cur := tree

	common := []passes.Named{
		{Name: "scalar-prop-const", Run: passes.ScalarPropConst},
		{Name: "remove-dead-var", Run: passes.RemoveDeadVar},
		{Name: "prop-one-time-use", Run: passes.PropOneTimeUse},
		{Name: "float-simplify", Run: passes.FloatSimplify},
		{Name: "simplify", Run: fixpoint(passes.Simplify)},
		{Name: "move-out-first-or-last-iter", Run: passes.MoveOutFirstOrLastIter},
		{Name: "sink-var", Run: passes.SinkVar},
		{Name: "shrink-var", Run: passes.ShrinkVar},
		{Name: "merge-and-hoist-if", Run: mergeAndHoistIf},
		{Name: "tensor-prop-const", Run: passes.TensorPropConst},
		{Name: "remove-writes", Run: passes.RemoveWrites},
		{Name: "remove-cyclic-assign", Run: passes.RemoveCyclicAssign},
		{Name: "remove-dead-var-2", Run: passes.RemoveDeadVar},
		{Name: "make-parallel-reduction", Run: passes.MakeParallelReduction},
		{Name: "shrink-for", Run: passes.ShrinkFor},
	}

	for _, n := range common {
		next, err := n.Run(cur)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.InvalidProgram, n.Name, err, "lowering pipeline step failed")
		}
		cur = next
	}

	var branch []passes.Named
	if tgt.IsGPU() {
		branch = []passes.Named{
			{Name: "lower-parallel-reduction", Run: passes.LowerParallelReduction},
			{Name: "multiplex-buffers", Run: passes.MultiplexBuffers},
			{Name: "simplex-buffers", Run: passes.SimplexBuffers},
			{Name: "make-const-shape", Run: passes.MakeConstShapeFor(ir.GPUShared, ir.GPULocal)},
			{Name: "normalize-threads", Run: passes.NormalizeThreads},
			{Name: "make-sync", Run: passes.MakeSync},
			{Name: "make-1d-var", Run: passes.Make1DVar},
			{Name: "lower-vector", Run: passes.LowerVector},
		}
	} else {
		branch = []passes.Named{
			{Name: "lower-parallel-reduction-cpu", Run: passes.LowerParallelReductionCPU},
		}
	}
	for _, n := range branch {
		next, err := n.Run(cur)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.InvalidProgram, n.Name, err, "target-specific lowering step failed")
		}
		cur = next
	}

	final, err := passes.UseBuiltinDiv(cur)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidProgram, "use-builtin-div", err, "final lowering step failed")
	}
	return final, nil
}

func mergeAndHoistIf(s ir.Stmt) (ir.Stmt, error) {
	return fixpoint(func(s ir.Stmt) (ir.Stmt, error) {
		merged, err := passes.MergeIf(s)
		if err != nil {
			return nil, err
		}
		return passes.HoistIf(merged)
	})(s)
}

func fixpoint(p passes.Pass) passes.Pass {
	return func(s ir.Stmt) (ir.Stmt, error) {
		return passes.RunToFixpoint(p, s, fixpointLimit)
	}
}
