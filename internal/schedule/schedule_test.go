package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/ir"
	"tensorc/internal/schedule"
)

func dim(n int64) ir.Expr { return ir.NewIntConst(n) }

// buildMatmulProgram constructs:
//
//	var A[M][K] f32 (input)
//	var B[K][N] f32 (input)
//	var C[M][N] f32 (output)
//	for i in 0..M
//	  for j in 0..N
//	    for k in 0..K
//	      C[i][j] += A[i][k] * B[k][j]
func buildMatmulProgram(m, n, k int64) ir.Stmt {
	reduce := ir.NewReduceTo("C", []ir.Expr{ir.NewVar("i"), ir.NewVar("j")}, ir.ReduceAdd,
		ir.NewBinary(ir.Mul,
			ir.NewLoad("A", ir.NewVar("i"), ir.NewVar("k")),
			ir.NewLoad("B", ir.NewVar("k"), ir.NewVar("j"))))
	kLoop := ir.NewFor("k", dim(0), dim(k), dim(1), reduce)
	jLoop := ir.NewFor("j", dim(0), dim(n), dim(1), kLoop)
	iLoop := ir.NewFor("i", dim(0), dim(m), dim(1), jLoop)

	cDef := ir.NewVarDef("C", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{dim(m), dim(n)}, DType: ir.Float32}, ir.Output, ir.CPUMem), iLoop)
	bDef := ir.NewVarDef("B", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{dim(k), dim(n)}, DType: ir.Float32}, ir.Input, ir.CPUMem), cDef)
	aDef := ir.NewVarDef("A", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{dim(m), dim(k)}, DType: ir.Float32}, ir.Input, ir.CPUMem), bDef)
	return aDef
}

func findForByIter(tree ir.Stmt, iter string) ir.ID {
	var found ir.ID
	matches := ir.Find(tree, func(s ir.Stmt) bool {
		f, ok := s.(*ir.For)
		return ok && f.Iter == iter
	})
	if len(matches) == 1 {
		found = matches[0].StmtID()
	}
	return found
}

func TestSplit(t *testing.T) {
	tree := buildMatmulProgram(128, 128, 128)
	s := schedule.New(tree, schedule.Quiet)

	iLoop := findForByIter(s.Ast(), "i")
	require.NotEmpty(t, iLoop)

	res, err := s.Split(iLoop, 32, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Outer)
	assert.NotEmpty(t, res.Inner)
	assert.Contains(t, s.History(), "split("+string(iLoop)+", factor=32, nparts=0, shift=0)")
}

func TestSplitRejectsNoFactorOrParts(t *testing.T) {
	tree := buildMatmulProgram(128, 128, 128)
	s := schedule.New(tree, schedule.Quiet)
	iLoop := findForByIter(s.Ast(), "i")

	_, err := s.Split(iLoop, 0, 0, 0)
	assert.Error(t, err)
}

func TestParallelize(t *testing.T) {
	tree := buildMatmulProgram(64, 64, 64)
	s := schedule.New(tree, schedule.Quiet)
	iLoop := findForByIter(s.Ast(), "i")

	err := s.Parallelize(iLoop, ir.OpenMP)
	require.NoError(t, err)
}

func TestAsMatmulRecognizesCanonicalNest(t *testing.T) {
	tree := buildMatmulProgram(64, 32, 16)
	s := schedule.New(tree, schedule.Quiet)
	iLoop := findForByIter(s.Ast(), "i")

	info, err := s.AsMatmul(iLoop)
	require.NoError(t, err)
	assert.Equal(t, int64(64), info.M)
	assert.Equal(t, int64(32), info.N)
	assert.Equal(t, int64(16), info.K)
	assert.Equal(t, "A", info.A)
	assert.Equal(t, "B", info.B)
	assert.Equal(t, "C", info.C)
	assert.Equal(t, int64(16), info.LeadingDimA, "A is M x K row-major: row stride is K")
	assert.Equal(t, int64(32), info.LeadingDimB, "B is K x N row-major: row stride is N")
	assert.Equal(t, int64(32), info.LeadingDimC, "C is M x N row-major: row stride is N")
}

// buildSharedScratchProgram constructs:
//
//	var A[N] f32 (input)
//	var B[N] f32 (output)
//	var C[N] f32 (output)
//	for i in 0..N
//	  var t: f32 (cache)
//	    t = A[i]
//	    B[i] = t
//	    C[i] = t
func buildSharedScratchProgram(n int64) (ir.Stmt, ir.ID, ir.ID) {
	store := ir.NewStore("t", nil, ir.NewLoad("A", ir.NewVar("i")))
	useB := ir.NewStore("B", []ir.Expr{ir.NewVar("i")}, ir.NewLoad("t"))
	useC := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, ir.NewLoad("t"))
	body := ir.NewStmtSeq(store, useB, useC)
	tDef := ir.NewVarDef("t", ir.NewBuffer(ir.Tensor{DType: ir.Float32}, ir.Cache, ir.CPUMem), body)
	loop := ir.NewFor("i", dim(0), dim(n), dim(1), tDef)

	cDef := ir.NewVarDef("C", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{dim(n)}, DType: ir.Float32}, ir.Output, ir.CPUMem), loop)
	bDef := ir.NewVarDef("B", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{dim(n)}, DType: ir.Float32}, ir.Output, ir.CPUMem), cDef)
	aDef := ir.NewVarDef("A", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{dim(n)}, DType: ir.Float32}, ir.Input, ir.CPUMem), bDef)
	return aDef, useB.StmtID(), loop.StmtID()
}

func TestFissionPromotesSharedScratchDimension(t *testing.T) {
	tree, splitter, loopID := buildSharedScratchProgram(8)
	s := schedule.New(tree, schedule.Quiet)

	res, err := s.Fission(loopID, schedule.After, splitter, "0", "1")
	require.NoError(t, err)

	defs := ir.Find(s.Ast(), func(st ir.Stmt) bool {
		vd, ok := st.(*ir.VarDef)
		return ok && vd.Name == "t"
	})
	require.Len(t, defs, 1)
	tDef := defs[0].(*ir.VarDef)
	require.Len(t, tDef.Buffer.Tensor.Shape, 1, "promoted scratch must gain exactly one dimension")

	stores := ir.Find(s.Ast(), func(st ir.Stmt) bool {
		_, ok := st.(*ir.Store)
		return ok
	})
	sawPromotedWrite, sawPromotedRead := false, false
	for _, st := range stores {
		store := st.(*ir.Store)
		if store.Var == "t" {
			require.Len(t, store.Indices, 1, "store to promoted scratch must carry the loop iterator as an index")
			sawPromotedWrite = true
		}
		if load, ok := store.Expr.(*ir.LoadExpr); ok && load.Var == "t" {
			require.Len(t, load.Indices, 1, "load of promoted scratch must carry the loop iterator as an index")
			sawPromotedRead = true
		}
	}
	assert.True(t, sawPromotedWrite)
	assert.True(t, sawPromotedRead)
	assert.NotEmpty(t, res.First)
	assert.NotEmpty(t, res.Second)
}

func TestUnrollRejectsNonConstantTripCount(t *testing.T) {
	body := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, ir.NewLoad("A", ir.NewVar("i")))
	loop := ir.NewFor("i", ir.NewIntConst(0), ir.NewVar("n"), ir.NewIntConst(1), body)
	def := ir.NewVarDef("C", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{ir.NewVar("n")}, DType: ir.Float32}, ir.Output, ir.CPUMem), loop)
	aDef := ir.NewVarDef("A", ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{ir.NewVar("n")}, DType: ir.Float32}, ir.Input, ir.CPUMem), def)

	s := schedule.New(aDef, schedule.Quiet)
	loopID := findForByIter(s.Ast(), "i")

	err := s.Unroll(loopID)
	assert.Error(t, err)
}
