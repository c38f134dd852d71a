package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/ir"
	"tensorc/internal/passes"
)

func openMPReductionLoop(op ir.ReduceOp) *ir.For {
	body := ir.NewReduceTo("acc", nil, op, ir.NewLoad("A", ir.NewVar("i")))
	f := ir.NewFor("i", ir.NewIntConst(0), ir.NewIntConst(100), ir.NewIntConst(1), body)
	f.Property.ParallelScope = ir.OpenMP
	f.Property.AddReduction(ir.ParallelReduction{Op: op, Var: "acc"})
	return f
}

func TestLowerParallelReductionCPUAcceptsRecognizedOp(t *testing.T) {
	f := openMPReductionLoop(ir.ReduceAdd)
	out, err := passes.LowerParallelReductionCPU(f)
	require.NoError(t, err)
	assert.Same(t, ir.Stmt(f), out, "the CPU pass must not rewrite the tree")
}

func TestLowerParallelReductionCPULeavesNonOpenMPLoopsAlone(t *testing.T) {
	body := ir.NewReduceTo("acc", nil, ir.ReduceAdd, ir.NewLoad("A", ir.NewVar("i")))
	f := ir.NewFor("i", ir.NewIntConst(0), ir.NewIntConst(100), ir.NewIntConst(1), body)

	out, err := passes.LowerParallelReductionCPU(f)
	require.NoError(t, err)
	assert.Same(t, ir.Stmt(f), out)
}
