package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/ir"
)

func buildSimpleLoop() *ir.For {
	// for i in 0..10 { C[i] = A[i] + B[i] }
	body := ir.NewStore("C", []ir.Expr{ir.NewVar("i")},
		ir.NewBinary(ir.Add,
			ir.NewLoad("A", ir.NewVar("i")),
			ir.NewLoad("B", ir.NewVar("i"))))
	return ir.NewFor("i", ir.NewIntConst(0), ir.NewIntConst(10), ir.NewIntConst(1), body)
}

func TestNewForComputesLen(t *testing.T) {
	f := buildSimpleLoop()
	require.NotNil(t, f.Len)
}

func TestFindByID(t *testing.T) {
	f := buildSimpleLoop()
	seq := ir.NewStmtSeq(f)

	found := ir.FindByID(seq, f.StmtID())
	require.NotNil(t, found)
	assert.Equal(t, f.StmtID(), found.StmtID())

	assert.Nil(t, ir.FindByID(seq, ir.ID("no-such-id")))
}

func TestFind(t *testing.T) {
	f := buildSimpleLoop()
	seq := ir.NewStmtSeq(f)

	stores := ir.Find(seq, func(s ir.Stmt) bool {
		_, ok := s.(*ir.Store)
		return ok
	})
	assert.Len(t, stores, 1)
}

func TestReplaceByID(t *testing.T) {
	f := buildSimpleLoop()
	seq := ir.NewStmtSeq(f)

	replaced := ir.ReplaceByID(seq, f.StmtID(), func(ir.Stmt) ir.Stmt {
		return ir.NewStmtSeq()
	})
	stores := ir.Find(replaced, func(s ir.Stmt) bool {
		_, ok := s.(*ir.Store)
		return ok
	})
	assert.Empty(t, stores)
}

func TestParent(t *testing.T) {
	f := buildSimpleLoop()
	seq := ir.NewStmtSeq(f)

	p := ir.Parent(seq, f.StmtID())
	require.NotNil(t, p)
	assert.Equal(t, seq.StmtID(), p.StmtID())
}

func TestSetID(t *testing.T) {
	f := buildSimpleLoop()
	ir.SetID(f, ir.ID("custom-id"))
	assert.Equal(t, ir.ID("custom-id"), f.StmtID())
}

func TestDeepCopyIsIndependent(t *testing.T) {
	f := buildSimpleLoop()
	cp := ir.DeepCopy(f).(*ir.For)
	cp.Iter = "j"
	assert.Equal(t, "i", f.Iter)
	assert.Equal(t, "j", cp.Iter)
}

func TestPrintRendersLoop(t *testing.T) {
	f := buildSimpleLoop()
	out := ir.Print(f)
	assert.Contains(t, out, "i")
	assert.Contains(t, out, "C")
}
