package passes

import "tensorc/internal/ir"

// LowerParallelReductionCPU is the OpenMP-targeted counterpart of
// LowerParallelReduction: a CPU reduction marked Atomic is already
// expressible as a single `#pragma omp atomic`-guarded ReduceTo by the
// target emitter (out of scope per the core/emitter split), so unlike the
// GPU branch there is no per-thread-partial buffer to materialize here.
// This pass only validates that every Reduction an OpenMP-scoped loop
// carries has a concrete operator the emitter recognizes, leaving the
// tree itself unchanged.
func LowerParallelReductionCPU(s ir.Stmt) (ir.Stmt, error) {
	v := &cpuReduceValidator{}
	v.Self = v
	ir.Walk(v, s)
	if v.err != nil {
		return nil, v.err
	}
	return s, nil
}

type cpuReduceValidator struct {
	ir.BaseVisitor
	err error
}

func (v *cpuReduceValidator) VisitStmt(s ir.Stmt) {
	if v.err != nil {
		return
	}
	if f, ok := s.(*ir.For); ok && f.Property != nil && f.Property.ParallelScope == ir.OpenMP {
		for _, red := range f.Property.Reductions {
			switch red.Op {
			case ir.ReduceAdd, ir.ReduceMul, ir.ReduceMin, ir.ReduceMax, ir.ReduceLAnd, ir.ReduceLOr:
			default:
				v.err = &unsupportedReductionError{op: red.Op}
				return
			}
		}
	}
	v.BaseVisitor.VisitStmt(s)
}

type unsupportedReductionError struct {
	op ir.ReduceOp
}

func (e *unsupportedReductionError) Error() string {
	return "unsupported reduction operator for OpenMP lowering"
}
