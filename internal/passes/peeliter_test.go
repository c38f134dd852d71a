package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/ir"
	"tensorc/internal/passes"
)

func TestMoveOutFirstOrLastIterPeelsFirstIteration(t *testing.T) {
	// for i in 0..10 { if i == 0 { C[i] = 1 } else { C[i] = C[i-1] + 1 } }
	then := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, ir.NewIntConst(1))
	els := ir.NewStore("C", []ir.Expr{ir.NewVar("i")},
		ir.NewBinary(ir.Add, ir.NewLoad("C", ir.NewBinary(ir.Sub, ir.NewVar("i"), ir.NewIntConst(1))), ir.NewIntConst(1)))
	guarded := ir.NewIf(ir.NewCompare(ir.EQ, ir.NewVar("i"), ir.NewIntConst(0)), then, els)
	loop := ir.NewFor("i", ir.NewIntConst(0), ir.NewIntConst(10), ir.NewIntConst(1), guarded)

	out, err := passes.MoveOutFirstOrLastIter(loop)
	require.NoError(t, err)

	seq, ok := out.(*ir.StmtSeq)
	require.True(t, ok, "expected a peeled statement sequence, got %T", out)
	assert.Len(t, seq.Stmts, 2)

	rest, ok := seq.Stmts[1].(*ir.For)
	require.True(t, ok)
	assert.Equal(t, "i", rest.Iter)
}

func TestMoveOutFirstOrLastIterLeavesUnrecognizedGuardUntouched(t *testing.T) {
	then := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, ir.NewIntConst(1))
	els := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, ir.NewIntConst(2))
	// Guard on an unrelated variable, not the loop's own iterator.
	guarded := ir.NewIf(ir.NewCompare(ir.EQ, ir.NewVar("flag"), ir.NewIntConst(0)), then, els)
	loop := ir.NewFor("i", ir.NewIntConst(0), ir.NewIntConst(10), ir.NewIntConst(1), guarded)

	out, err := passes.MoveOutFirstOrLastIter(loop)
	require.NoError(t, err)

	f, ok := out.(*ir.For)
	require.True(t, ok, "expected the loop left untouched, got %T", out)
	assert.Equal(t, "i", f.Iter)
}
