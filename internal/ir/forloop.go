package ir

// ParallelScope selects a For loop's execution model.
type ParallelScope int

const (
	Serial ParallelScope = iota
	OpenMP
	BlockIdxX
	BlockIdxY
	BlockIdxZ
	ThreadIdxX
	ThreadIdxY
	ThreadIdxZ
	VirtualThread
)

func (p ParallelScope) String() string {
	switch p {
	case Serial:
		return "serial"
	case OpenMP:
		return "openmp"
	case BlockIdxX:
		return "blockIdx.x"
	case BlockIdxY:
		return "blockIdx.y"
	case BlockIdxZ:
		return "blockIdx.z"
	case ThreadIdxX:
		return "threadIdx.x"
	case ThreadIdxY:
		return "threadIdx.y"
	case ThreadIdxZ:
		return "threadIdx.z"
	case VirtualThread:
		return "vthread"
	default:
		return "?"
	}
}

// IsGPUThread reports whether the scope is a CUDA block/thread axis.
func (p ParallelScope) IsGPUThread() bool {
	switch p {
	case BlockIdxX, BlockIdxY, BlockIdxZ, ThreadIdxX, ThreadIdxY, ThreadIdxZ, VirtualThread:
		return true
	default:
		return false
	}
}

// ParallelReduction records one reduction carried by a parallel For loop's
// property bag: the operator, the target variable, and the per-dimension
// range the reduction spans.
type ParallelReduction struct {
	Op     ReduceOp
	Var    string
	Begins []Expr
	Ends   []Expr
	// Atomic is set by make-parallel-reduction when the reduced indices
	// vary with the loop iterator or the reduction crosses thread blocks,
	// forcing an atomic-marked reduction instead of a loop-local one.
	Atomic bool
}

// ForProperty is the property bag carried by every For loop (§3.4).
type ForProperty struct {
	ParallelScope ParallelScope
	Unroll        bool
	Vectorize     bool
	PreferLibs    bool

	Reductions []ParallelReduction

	// Independent lists variable names explicitly declared independent
	// across iterations of this loop (no cross-iteration dependency needs
	// checking for them).
	Independent []string

	// UnrolledWhile marks a loop that originated from lowering a
	// while-style iteration into a bounded For and must be treated as a
	// single unrolled unit by state-machine-style simplification. This
	// replaces the original implementation's magic-ID-substring special
	// case (§9 Design Notes/Open Questions (b)) with an explicit flag.
	UnrolledWhile bool
}

func (p *ForProperty) Clone() *ForProperty {
	if p == nil {
		return &ForProperty{}
	}
	cp := *p
	cp.Reductions = append([]ParallelReduction(nil), p.Reductions...)
	cp.Independent = append([]string(nil), p.Independent...)
	return &cp
}

// AddReduction declares r as carried by this loop, the effect of
// make-parallel-reduction (§4.4).
func (p *ForProperty) AddReduction(r ParallelReduction) {
	p.Reductions = append(p.Reductions, r)
}

// IsIndependent reports whether name was explicitly declared independent.
func (p *ForProperty) IsIndependent(name string) bool {
	for _, n := range p.Independent {
		if n == name {
			return true
		}
	}
	return false
}
