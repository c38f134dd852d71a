package autoschedule

import (
	"sort"

	"tensorc/internal/analysis"
	"tensorc/internal/ir"
	"tensorc/internal/schedule"
)

// Predictor scores candidate sketches from their feature vectors, lowest
// score first, the caller-supplied oracle search_one_round ranks
// candidates with.
type Predictor func(features [][]float64) []float64

// Updater is invoked after every TestAndAdd measurement batch so the
// caller can retrain its predictor on (features, measured time) pairs.
type Updater func(features [][]float64, times []float64)

// Measurer is the external measurement back-end test_and_add hands
// candidate schedules to; it returns one execution time per sketch,
// ordered the same as the input slice.
type Measurer func(scheds []*schedule.Schedule) []float64

// Search holds the search loop's configuration, state, and collaborator
// callbacks in one explicit struct rather than captured closures, the
// same engine-struct shape the pack's own branch-and-bound search uses.
type Search struct {
	Tag Tag

	catalog      Catalog
	predictor    Predictor
	updater      Updater
	measurer     Measurer
	cache        MeasurementCache
	measuredSize int

	population []*Sketch
	// reservoir holds up to measuredSize best-known measured sketches,
	// sorted ascending by MeasuredTime.
	reservoir []*Sketch
}

// Config collects Search's construction parameters.
type Config struct {
	Catalog      Catalog
	Predictor    Predictor
	Updater      Updater
	Measurer     Measurer
	Cache        MeasurementCache
	MeasuredSize int
}

// NewSearch seeds a fresh Auto-Schedule instance from root with a new Tag.
func NewSearch(root ir.Stmt, cfg Config) *Search {
	cache := cfg.Cache
	if cache == nil {
		cache = NewInMemoryCache()
	}
	measuredSize := cfg.MeasuredSize
	if measuredSize <= 0 {
		measuredSize = 16
	}
	seed := &Sketch{Sched: schedule.New(root, schedule.Quiet)}
	return &Search{
		Tag:          NewTag(),
		catalog:      cfg.Catalog,
		predictor:    cfg.Predictor,
		updater:      cfg.Updater,
		measurer:     cfg.Measurer,
		cache:        cache,
		measuredSize: measuredSize,
		population:   []*Sketch{seed},
	}
}

// GetTag returns the namespace tag this instance's measurements are
// recorded under.
func (se *Search) GetTag() Tag { return se.Tag }

// SearchOneRound generates up to n new candidates — by applying gen_part
// to sketches lacking a part, by mutating existing annotations, and by
// crossing over pairs — ranks them with the predictor callback, and
// keeps the top-k into the measurement pool (which SearchOneRound then
// hands straight to TestAndAdd, matching §4.7's "generate, rank, measure"
// loop shape).
func (se *Search) SearchOneRound(n int) ([]*Sketch, error) {
	candidates := se.generate(n)
	if len(candidates) == 0 {
		return nil, nil
	}
	if se.predictor != nil {
		feats := make([][]float64, len(candidates))
		for i, c := range candidates {
			feats[i] = extractFeatures(c)
		}
		scores := se.predictor(feats)
		order := make([]int, len(candidates))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] < scores[order[j]] })
		ranked := make([]*Sketch, len(candidates))
		for i, k := range order {
			ranked[i] = candidates[k]
		}
		candidates = ranked
	}
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	se.TestAndAdd(candidates)
	return candidates, nil
}

// generate applies every catalog rule's GenPart to every current
// population member (i), mutates a sample of existing annotations (ii),
// and crosses over adjacent pairs of the current population (iii).
func (se *Search) generate(n int) []*Sketch {
	var out []*Sketch
	for _, sk := range se.population {
		for _, rule := range se.catalog {
			status, succs := rule.GenPart(sk)
			if status == Skip {
				continue
			}
			out = append(out, succs...)
			if status == ApplyAndSkipRest {
				break
			}
			if len(out) >= n {
				return out
			}
		}
	}
	out = append(out, se.mutate()...)
	out = append(out, se.crossover()...)
	return out
}

// mutate perturbs an existing sketch's numeric rule parameters (e.g. a
// tiling factor), producing a same-shape sketch with different schedule
// parameters for the predictor to rank against the un-mutated original.
func (se *Search) mutate() []*Sketch {
	var out []*Sketch
	for _, sk := range se.population {
		for _, part := range sk.Parts {
			if part.Kind != MultiLevelTilingWithFusion {
				continue
			}
			cand := sk.Clone()
			for i := range cand.Parts {
				if cand.Parts[i].Kind == MultiLevelTilingWithFusion {
					if f, ok := cand.Parts[i].Params["factor"]; ok {
						cand.Parts[i].Params["factor"] = f * 2
					}
				}
			}
			out = append(out, cand)
		}
	}
	return out
}

// crossover grafts the tail of one sketch's applied parts onto another's
// base Schedule, the §4.7 "crossing over pairs" candidate source.
func (se *Search) crossover() []*Sketch {
	var out []*Sketch
	for i := 0; i+1 < len(se.population); i += 2 {
		a, b := se.population[i], se.population[i+1]
		cand := a.Clone()
		cand.Parts = append(cand.Parts, b.Parts...)
		out = append(out, cand)
	}
	return out
}

// TestAndAdd evaluates sketches with the measurement back-end (consulting
// the cache first), invokes the updater callback with the resulting
// (features, times) pairs, folds newly-measured sketches into the
// reservoir, and returns the observed times in input order.
func (se *Search) TestAndAdd(sketches []*Sketch) []float64 {
	times := make([]float64, len(sketches))
	var toMeasure []*Sketch
	var toMeasureIdx []int
	for i, sk := range sketches {
		key := keyOf(sk)
		if t, ok := se.cache.Get(se.Tag, key); ok {
			times[i] = t
			sk.MeasuredTime = t
			sk.Measured = true
			continue
		}
		toMeasure = append(toMeasure, sk)
		toMeasureIdx = append(toMeasureIdx, i)
	}
	if len(toMeasure) > 0 && se.measurer != nil {
		scheds := make([]*schedule.Schedule, len(toMeasure))
		for i, sk := range toMeasure {
			scheds[i] = sk.Sched
		}
		measured := se.measurer(scheds)
		for i, sk := range toMeasure {
			t := measured[i]
			times[toMeasureIdx[i]] = t
			sk.MeasuredTime = t
			sk.Measured = true
			se.cache.Put(se.Tag, keyOf(sk), t)
		}
	}
	if se.updater != nil && len(toMeasure) > 0 {
		feats := make([][]float64, len(toMeasure))
		measuredTimes := make([]float64, len(toMeasure))
		for i, sk := range toMeasure {
			feats[i] = extractFeatures(sk)
			measuredTimes[i] = sk.MeasuredTime
		}
		se.updater(feats, measuredTimes)
	}
	se.addToReservoir(sketches)
	return times
}

func (se *Search) addToReservoir(sketches []*Sketch) {
	for _, sk := range sketches {
		if sk.Measured {
			se.reservoir = append(se.reservoir, sk)
		}
	}
	sort.SliceStable(se.reservoir, func(i, j int) bool {
		return se.reservoir[i].MeasuredTime < se.reservoir[j].MeasuredTime
	})
	if len(se.reservoir) > se.measuredSize {
		se.reservoir = se.reservoir[:se.measuredSize]
	}
	se.population = se.reservoir
}

// GetBestSchedule returns the schedule with the lowest observed time.
func (se *Search) GetBestSchedule() (*schedule.Schedule, error) {
	if len(se.reservoir) == 0 {
		return nil, errNoMeasuredSketch
	}
	return se.reservoir[0].Sched, nil
}

// GetBestTime returns the lowest observed execution time.
func (se *Search) GetBestTime() (float64, error) {
	if len(se.reservoir) == 0 {
		return 0, errNoMeasuredSketch
	}
	return se.reservoir[0].MeasuredTime, nil
}

// GetFlop estimates the floating-point operation count of tree: the
// product of every enclosing loop's statically-known trip count times
// the number of arithmetic operator nodes in the innermost body,
// summed over every Store/ReduceTo site. Loops whose trip count cannot
// be proven constant contribute a trip count of 1 (a conservative
// under-count, documented rather than silently wrong), since resolving
// them exactly requires the external solver this module treats as a
// collaborator, not a component (§1).
func GetFlop(tree ir.Stmt) int64 {
	counter := &flopCounter{}
	counter.Self = counter
	counter.loopStack = []int64{1}
	ir.Walk(counter, tree)
	return counter.total
}

type flopCounter struct {
	ir.BaseVisitor
	loopStack []int64
	total     int64
}

func (v *flopCounter) VisitStmt(s ir.Stmt) {
	switch n := s.(type) {
	case *ir.For:
		trip := int64(1)
		lf := analysis.Analyze(n.Len)
		if lf.IsConstant() && lf.Const > 0 {
			trip = lf.Const
		}
		v.loopStack = append(v.loopStack, v.loopStack[len(v.loopStack)-1]*trip)
		v.VisitStmt(n.Body)
		v.loopStack = v.loopStack[:len(v.loopStack)-1]
		return
	case *ir.Store:
		v.total += v.loopStack[len(v.loopStack)-1] * countOps(n.Expr)
	case *ir.ReduceTo:
		v.total += v.loopStack[len(v.loopStack)-1] * (1 + countOps(n.Expr))
	}
	v.BaseVisitor.VisitStmt(s)
}

func countOps(e ir.Expr) int64 {
	var n int64
	v := &opCounter{count: &n}
	v.Self = v
	v.VisitExpr(e)
	return n
}

type opCounter struct {
	ir.BaseVisitor
	count *int64
}

func (v *opCounter) VisitExpr(e ir.Expr) {
	switch e.(type) {
	case *ir.BinaryExpr, *ir.UnaryExpr, *ir.MinMaxExpr:
		*v.count++
	}
	v.BaseVisitor.VisitExpr(e)
}

func extractFeatures(sk *Sketch) []float64 {
	if len(sk.Features) > 0 {
		return sk.Features
	}
	flop := float64(GetFlop(sk.Sched.Ast()))
	feats := []float64{flop, float64(len(sk.Parts))}
	sk.Features = feats
	return feats
}

var errNoMeasuredSketch = searchError("no measured sketch available")

type searchError string

func (e searchError) Error() string { return string(e) }
