package autoschedule

import "tensorc/internal/ir"

// RuleStatus is the tri-valued legality verdict a Rule returns for a
// candidate sketch, per §4.7: Skip leaves the sketch unchanged and lets
// later rules run; Apply generates a new sketch and continues; Apply
// AndSkipRest generates a new sketch and prunes the remaining rules at
// this search step (used by a rule that fully determines a loop's fate,
// e.g. binding every thread axis of a GPU-targeted sketch).
type RuleStatus int

const (
	Skip RuleStatus = iota
	Apply
	ApplyAndSkipRest
)

// Rule is one entry of the rule catalog: it inspects a sketch and either
// declines (Skip), or produces one or more candidate successor sketches.
type Rule interface {
	Name() string
	// GenPart inspects sketch and proposes successor sketches (possibly
	// none, if Skip), along with the verdict that governs whether later
	// rules still run at this step.
	GenPart(sketch *Sketch) (RuleStatus, []*Sketch)
}

// Catalog is an ordered rule list; order matters because
// ApplyAndSkipRest short-circuits the rules after it.
type Catalog []Rule

// DefaultCatalog returns the rule set grounded on §4.7's named sketch
// parts: multi-level tiling with fusion, cache-read/write insertion,
// thread binding, parallelize, and unroll, each declining once a sketch
// already carries that part so the search explores breadth before depth.
func DefaultCatalog(loopFinder func(ir.Stmt) []ir.ID, varFinder func(ir.Stmt) []ir.ID) Catalog {
	return Catalog{
		&multiLevelTilingRule{loops: loopFinder},
		&cacheRule{kind: CacheRead, vars: varFinder},
		&cacheRule{kind: CacheWrite, vars: varFinder},
		&threadBindRule{loops: loopFinder},
		&parallelizeRule{loops: loopFinder},
		&unrollRule{loops: loopFinder},
	}
}

type multiLevelTilingRule struct {
	loops func(ir.Stmt) []ir.ID
}

func (r *multiLevelTilingRule) Name() string { return "multi-level-tiling-with-fusion" }

func (r *multiLevelTilingRule) GenPart(sk *Sketch) (RuleStatus, []*Sketch) {
	if sk.HasPart(MultiLevelTilingWithFusion) {
		return Skip, nil
	}
	var out []*Sketch
	for _, loop := range r.loops(sk.Sched.Ast()) {
		const tileFactor = 32
		cand := sk.Clone()
		if _, err := cand.Sched.Split(loop, tileFactor, 0, 0); err != nil {
			continue
		}
		cand.Parts = append(cand.Parts, SketchPart{
			Kind: MultiLevelTilingWithFusion, Target: string(loop),
			Params: map[string]int64{"factor": tileFactor},
		})
		out = append(out, cand)
	}
	if len(out) == 0 {
		return Skip, nil
	}
	return Apply, out
}

type cacheRule struct {
	kind SketchPartKind
	vars func(ir.Stmt) []ir.ID
}

func (r *cacheRule) Name() string { return r.kind.String() }

func (r *cacheRule) GenPart(sk *Sketch) (RuleStatus, []*Sketch) {
	if sk.HasPart(r.kind) {
		return Skip, nil
	}
	var out []*Sketch
	for _, v := range r.vars(sk.Sched.Ast()) {
		cand := sk.Clone()
		cand.Parts = append(cand.Parts, SketchPart{Kind: r.kind, Target: string(v)})
		out = append(out, cand)
	}
	if len(out) == 0 {
		return Skip, nil
	}
	return Apply, out
}

type threadBindRule struct {
	loops func(ir.Stmt) []ir.ID
}

func (r *threadBindRule) Name() string { return "thread-bind" }

func (r *threadBindRule) GenPart(sk *Sketch) (RuleStatus, []*Sketch) {
	if sk.HasPart(ThreadBind) {
		return Skip, nil
	}
	var out []*Sketch
	scopes := []ir.ParallelScope{ir.BlockIdxX, ir.ThreadIdxX}
	for i, loop := range r.loops(sk.Sched.Ast()) {
		if i >= len(scopes) {
			break
		}
		cand := sk.Clone()
		if err := cand.Sched.Parallelize(loop, scopes[i]); err != nil {
			continue
		}
		cand.Parts = append(cand.Parts, SketchPart{Kind: ThreadBind, Target: string(loop)})
		out = append(out, cand)
	}
	if len(out) == 0 {
		return Skip, nil
	}
	return ApplyAndSkipRest, out
}

type parallelizeRule struct {
	loops func(ir.Stmt) []ir.ID
}

func (r *parallelizeRule) Name() string { return "parallelize" }

func (r *parallelizeRule) GenPart(sk *Sketch) (RuleStatus, []*Sketch) {
	if sk.HasPart(Parallelize) || sk.HasPart(ThreadBind) {
		return Skip, nil
	}
	var out []*Sketch
	for _, loop := range r.loops(sk.Sched.Ast()) {
		cand := sk.Clone()
		if err := cand.Sched.Parallelize(loop, ir.OpenMP); err != nil {
			continue
		}
		cand.Parts = append(cand.Parts, SketchPart{Kind: Parallelize, Target: string(loop)})
		out = append(out, cand)
	}
	if len(out) == 0 {
		return Skip, nil
	}
	return Apply, out
}

type unrollRule struct {
	loops func(ir.Stmt) []ir.ID
}

func (r *unrollRule) Name() string { return "unroll" }

func (r *unrollRule) GenPart(sk *Sketch) (RuleStatus, []*Sketch) {
	if sk.HasPart(Unroll) {
		return Skip, nil
	}
	var out []*Sketch
	for _, loop := range r.loops(sk.Sched.Ast()) {
		cand := sk.Clone()
		if err := cand.Sched.Unroll(loop); err != nil {
			continue
		}
		cand.Parts = append(cand.Parts, SketchPart{Kind: Unroll, Target: string(loop)})
		out = append(out, cand)
	}
	if len(out) == 0 {
		return Skip, nil
	}
	return Apply, out
}
