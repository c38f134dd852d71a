// Package autoschedule implements C7: the auto-scheduler's search loop,
// composing Schedule transformations from a rule catalog under a
// feature/predictor oracle to find a good-performing schedule. Grounded
// on the teacher's explicit-struct-over-closures search engine idiom
// (seen across the pack's own branch-and-bound and matrix search code):
// state lives in a dedicated Search struct instead of captured closures,
// keeping dependencies explicit and the search deterministic.
package autoschedule

import "tensorc/internal/schedule"

// SketchPartKind is the closed set of rule-catalog part types §4.7 names.
type SketchPartKind int

const (
	MultiLevelTilingWithFusion SketchPartKind = iota
	CacheRead
	CacheWrite
	ThreadBind
	Parallelize
	Unroll
)

func (k SketchPartKind) String() string {
	switch k {
	case MultiLevelTilingWithFusion:
		return "MultiLevelTilingWithFusion"
	case CacheRead:
		return "CacheRead"
	case CacheWrite:
		return "CacheWrite"
	case ThreadBind:
		return "ThreadBind"
	case Parallelize:
		return "Parallelize"
	case Unroll:
		return "Unroll"
	default:
		return "?"
	}
}

// SketchPart is one annotated rule application recorded on a Sketch: the
// kind of transformation plus the loop/variable it targets and any
// parameters a mutation pass may later perturb.
type SketchPart struct {
	Kind   SketchPartKind
	Target string
	Params map[string]int64
}

// Sketch is a candidate point in the search space: the Schedule history
// that produced it, the feature vector the predictor scores, and the
// SketchParts applied so far (so gen_part can tell which rules still
// have no part on this sketch).
type Sketch struct {
	Sched    *schedule.Schedule
	Features []float64
	Parts    []SketchPart
	// MeasuredTime is the observed execution time once TestAndAdd has
	// measured this sketch; zero (unmeasured) sketches are never
	// returned by GetBestSchedule.
	MeasuredTime float64
	Measured     bool
}

// HasPart reports whether kind has already been applied to s (gen_part
// only generates a part for sketches lacking one of that kind).
func (s *Sketch) HasPart(kind SketchPartKind) bool {
	for _, p := range s.Parts {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// Clone returns a sketch with its own copy of the underlying Schedule so
// mutation/crossover never aliases another candidate's state.
func (s *Sketch) Clone() *Sketch {
	cp := *s
	cp.Sched = schedule.New(s.Sched.Ast(), schedule.Quiet)
	cp.Parts = append([]SketchPart(nil), s.Parts...)
	for i := range cp.Parts {
		if cp.Parts[i].Params != nil {
			params := make(map[string]int64, len(cp.Parts[i].Params))
			for k, v := range cp.Parts[i].Params {
				params[k] = v
			}
			cp.Parts[i].Params = params
		}
	}
	cp.Features = append([]float64(nil), s.Features...)
	return &cp
}
