package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/analysis"
	"tensorc/internal/ir"
)

func TestAnalyzeConstant(t *testing.T) {
	lf := analysis.Analyze(ir.NewIntConst(7))
	require.NotNil(t, lf)
	assert.True(t, lf.IsConstant())
	assert.Equal(t, int64(7), lf.Const)
}

func TestAnalyzeSingleVar(t *testing.T) {
	lf := analysis.Analyze(ir.NewVar("i"))
	require.NotNil(t, lf)
	assert.False(t, lf.IsConstant())
	assert.Equal(t, int64(1), lf.Coefficient("i"))
}

func TestAnalyzeAffineCombination(t *testing.T) {
	// 2*i + 3
	e := ir.NewBinary(ir.Add, ir.NewBinary(ir.Mul, ir.NewIntConst(2), ir.NewVar("i")), ir.NewIntConst(3))
	lf := analysis.Analyze(e)
	require.NotNil(t, lf)
	assert.Equal(t, int64(2), lf.Coefficient("i"))
	assert.Equal(t, int64(3), lf.Const)
}

func TestResidualOfDropsNamedAtom(t *testing.T) {
	// i + j
	e := ir.NewBinary(ir.Add, ir.NewVar("i"), ir.NewVar("j"))
	lf := analysis.Analyze(e)
	residual := lf.ResidualOf("i")
	assert.Equal(t, int64(0), residual.Coefficient("i"))
	assert.Equal(t, int64(1), residual.Coefficient("j"))
}

func TestFindDependenciesDetectsCrossIterationHazard(t *testing.T) {
	// for i in 0..10 { C[i] = A[i]; x = C[i-1] } -- a write to C[i] that a
	// later iteration's read of C[i-1] can observe, requested under a
	// Different direction constraint on i.
	write := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, ir.NewLoad("A", ir.NewVar("i")))
	read := ir.NewStore("x", nil, ir.NewLoad("C", ir.NewBinary(ir.Sub, ir.NewVar("i"), ir.NewIntConst(1))))
	body := ir.NewStmtSeq(write, read)
	loop := ir.NewFor("i", ir.NewIntConst(0), ir.NewIntConst(10), ir.NewIntConst(1), body)

	deps := analysis.FindDependencies(loop, map[string]analysis.Direction{"i": analysis.Different})
	assert.NotEmpty(t, deps)
}
