package autoschedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/autoschedule"
	"tensorc/internal/ir"
	"tensorc/internal/schedule"
)

func dim(n int64) ir.Expr { return ir.NewIntConst(n) }

func buildElementwiseProgram(n int64) ir.Stmt {
	body := ir.NewStore("C", []ir.Expr{ir.NewVar("i")},
		ir.NewBinary(ir.Add, ir.NewLoad("A", ir.NewVar("i")), ir.NewLoad("B", ir.NewVar("i"))))
	loop := ir.NewFor("i", dim(0), dim(n), dim(1), body)
	shape := []ir.Expr{dim(n)}
	cDef := ir.NewVarDef("C", ir.NewBuffer(ir.Tensor{Shape: shape, DType: ir.Float32}, ir.Output, ir.CPUMem), loop)
	bDef := ir.NewVarDef("B", ir.NewBuffer(ir.Tensor{Shape: shape, DType: ir.Float32}, ir.Input, ir.CPUMem), cDef)
	return ir.NewVarDef("A", ir.NewBuffer(ir.Tensor{Shape: shape, DType: ir.Float32}, ir.Input, ir.CPUMem), bDef)
}

func findLoops(tree ir.Stmt) []ir.ID {
	var out []ir.ID
	for _, s := range ir.Find(tree, func(s ir.Stmt) bool { _, ok := s.(*ir.For); return ok }) {
		out = append(out, s.StmtID())
	}
	return out
}

func findVars(tree ir.Stmt) []ir.ID {
	var out []ir.ID
	for _, s := range ir.Find(tree, func(s ir.Stmt) bool { _, ok := s.(*ir.VarDef); return ok }) {
		out = append(out, s.StmtID())
	}
	return out
}

func TestSketchHasPartAndClone(t *testing.T) {
	tree := buildElementwiseProgram(64)
	sk := &autoschedule.Sketch{Sched: schedule.New(tree, schedule.Quiet)}
	assert.False(t, sk.HasPart(autoschedule.Unroll))

	sk.Parts = append(sk.Parts, autoschedule.SketchPart{Kind: autoschedule.Unroll, Target: "loop"})
	assert.True(t, sk.HasPart(autoschedule.Unroll))

	clone := sk.Clone()
	clone.Parts = append(clone.Parts, autoschedule.SketchPart{Kind: autoschedule.Parallelize})
	assert.Len(t, sk.Parts, 1, "mutating the clone must not affect the original")
}

func TestDefaultCatalogParallelizeRule(t *testing.T) {
	tree := buildElementwiseProgram(64)
	sk := &autoschedule.Sketch{Sched: schedule.New(tree, schedule.Quiet)}

	catalog := autoschedule.DefaultCatalog(findLoops, findVars)
	var parallelizeRule autoschedule.Rule
	for _, r := range catalog {
		if r.Name() == "parallelize" {
			parallelizeRule = r
		}
	}
	require.NotNil(t, parallelizeRule)

	status, succs := parallelizeRule.GenPart(sk)
	assert.Equal(t, autoschedule.Apply, status)
	require.NotEmpty(t, succs)
	assert.True(t, succs[0].HasPart(autoschedule.Parallelize))
}

func TestInMemoryCacheRoundTrip(t *testing.T) {
	c := autoschedule.NewInMemoryCache()
	tag := autoschedule.NewTag()

	_, ok := c.Get(tag, "k1")
	assert.False(t, ok)

	c.Put(tag, "k1", 1.23)
	v, ok := c.Get(tag, "k1")
	require.True(t, ok)
	assert.Equal(t, 1.23, v)
}

func TestGetFlopCountsArithmeticOpsTimesTripCount(t *testing.T) {
	tree := buildElementwiseProgram(10)
	flop := autoschedule.GetFlop(tree)
	// One Add per iteration, 10 iterations.
	assert.Equal(t, int64(10), flop)
}

func TestSearchOneRoundProducesMeasuredSketches(t *testing.T) {
	tree := buildElementwiseProgram(32)
	catalog := autoschedule.DefaultCatalog(findLoops, findVars)

	measurer := func(scheds []*schedule.Schedule) []float64 {
		times := make([]float64, len(scheds))
		for i := range scheds {
			times[i] = float64(i + 1)
		}
		return times
	}

	se := autoschedule.NewSearch(tree, autoschedule.Config{
		Catalog:      catalog,
		Measurer:     measurer,
		MeasuredSize: 4,
	})

	candidates, err := se.SearchOneRound(4)
	require.NoError(t, err)
	assert.NotEmpty(t, candidates)

	best, err := se.GetBestSchedule()
	require.NoError(t, err)
	assert.NotNil(t, best)

	bestTime, err := se.GetBestTime()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bestTime, 0.0)
}
