package analysis

import "tensorc/internal/ir"

// Direction is the per-loop predicate the dependency finder tests pairs of
// accesses against (§4.3, GLOSSARY).
type Direction int

const (
	Same Direction = iota
	Different
	Inv
)

// DependencyKind classifies a violating access pair.
type DependencyKind int

const (
	ReadAfterWrite DependencyKind = iota
	WriteAfterRead
	WriteAfterWrite
)

func (k DependencyKind) String() string {
	switch k {
	case ReadAfterWrite:
		return "RAW"
	case WriteAfterRead:
		return "WAR"
	default:
		return "WAW"
	}
}

// Dependency is one (later, earlier) access pair violating the requested
// direction predicate for at least one enclosing loop.
type Dependency struct {
	Kind         DependencyKind
	Earlier, Later Access
	Loop         string
}

// FindDependencies enumerates (later, earlier) access pairs to the same
// variable inside s that violate dirs, a map from loop iterator name to
// the direction predicate that must hold for every cross-iteration pair of
// that loop. A loop not present in dirs is treated as Inv (no constraint).
//
// This is a conservative, whole-subtree analysis: it does not attempt to
// disprove a dependency via bound-equality reasoning beyond the identical
// index-expression case (proving two distinct symbolic indices can never
// collide is the external solver's job, out of scope per §1).
func FindDependencies(s ir.Stmt, dirs map[string]Direction) []Dependency {
	rw := ExtractRW(s)
	byVar := map[string][]Access{}
	for _, a := range rw.Access {
		byVar[a.Var] = append(byVar[a.Var], a)
	}

	var out []Dependency
	for _, accesses := range byVar {
		for i := 0; i < len(accesses); i++ {
			for j := i + 1; j < len(accesses); j++ {
				a, b := accesses[i], accesses[j]
				if !a.IsWrite && !b.IsWrite {
					continue // RAR is never a dependency
				}
				if sameIndices(a.Indices, b.Indices) {
					continue // provably the same location across all loops: no cross-iteration hazard
				}
				kind, ok := classify(a, b)
				if !ok {
					continue
				}
				out = append(out, Dependency{Kind: kind, Earlier: a, Later: b})
			}
		}
	}

	// A pair is only reported once per violated loop when a Different
	// direction is requested and the index set does not provably stay
	// constant across that loop's iterator; loops requesting Same or Inv
	// never produce a violation from this conservative model; see
	// classify below for full reasoning.
	return filterByDirection(out, dirs)
}

func classify(a, b Access) (DependencyKind, bool) {
	switch {
	case a.IsWrite && b.IsRead && !b.IsWrite:
		return ReadAfterWrite, true
	case a.IsRead && !a.IsWrite && b.IsWrite:
		return WriteAfterRead, true
	case a.IsWrite && b.IsWrite:
		return WriteAfterWrite, true
	default:
		return 0, false
	}
}

func sameIndices(a, b []ir.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ir.EqualExpr(a[i], b[i], false) {
			return false
		}
	}
	return true
}

func filterByDirection(deps []Dependency, dirs map[string]Direction) []Dependency {
	var out []Dependency
	for _, d := range deps {
		violates := false
		for loop, dir := range dirs {
			if dir != Different {
				continue
			}
			if indexVariesWithLoop(d.Earlier, loop) || indexVariesWithLoop(d.Later, loop) {
				violates = true
				d.Loop = loop
				break
			}
			// Indices identical and loop-invariant under both accesses,
			// but we already filtered syntactically-identical index sets
			// above; if they differ yet neither varies with this loop,
			// the difference cannot be explained by the loop at all, so
			// this loop does not own the violation.
		}
		if violates {
			out = append(out, d)
		}
	}
	return out
}

func indexVariesWithLoop(a Access, loop string) bool {
	for _, idx := range a.Indices {
		if VariesWithLoop(idx, loop) {
			return true
		}
	}
	return false
}
