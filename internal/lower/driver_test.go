package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tensorc/internal/ir"
	"tensorc/internal/lower"
	"tensorc/internal/target"
)

func buildElementwiseAdd(n int64) ir.Stmt {
	body := ir.NewStore("C", []ir.Expr{ir.NewVar("i")},
		ir.NewBinary(ir.Add,
			ir.NewLoad("A", ir.NewVar("i")),
			ir.NewLoad("B", ir.NewVar("i"))))
	loop := ir.NewFor("i", ir.NewIntConst(0), ir.NewIntConst(n), ir.NewIntConst(1), body)

	shape := []ir.Expr{ir.NewIntConst(n)}
	cDef := ir.NewVarDef("C", ir.NewBuffer(ir.Tensor{Shape: shape, DType: ir.Float32}, ir.Output, ir.CPUMem), loop)
	bDef := ir.NewVarDef("B", ir.NewBuffer(ir.Tensor{Shape: shape, DType: ir.Float32}, ir.Input, ir.CPUMem), cDef)
	aDef := ir.NewVarDef("A", ir.NewBuffer(ir.Tensor{Shape: shape, DType: ir.Float32}, ir.Input, ir.CPUMem), bDef)
	return aDef
}

func TestLowerCPU(t *testing.T) {
	tree := buildElementwiseAdd(128)
	out, err := lower.Lower(tree, target.NewCPU())
	require.NoError(t, err)
	require.NotNil(t, out)
}

func TestLowerGPU(t *testing.T) {
	tree := buildElementwiseAdd(128)
	out, err := lower.Lower(tree, target.NewGPU(target.GPUAttrs{
		Arch: "sm_80", WarpSize: 32, MaxThreadsPerBlock: 1024, SharedMemBytes: 49152,
	}))
	require.NoError(t, err)
	require.NotNil(t, out)
}
