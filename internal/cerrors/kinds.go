// Package cerrors implements the structured error surface of §7: a closed
// set of error kinds, each carrying a human-readable message and the
// failing operation's textual signature, propagated outward rather than
// observed as partially-mutated state.
package cerrors

// Kind is the closed set of error kinds from §7.
type Kind int

const (
	// InvalidProgram: the IR violates a §3.5 invariant (nested same-name
	// define, indexing wrong rank, unresolved name).
	InvalidProgram Kind = iota
	// InvalidSchedule: a transformation was legal-looking but rejected by
	// legality analysis (dependency violation, pattern mismatch,
	// unprovable divisibility, irreducible as-matmul).
	InvalidSchedule
	// UnexpectedQuery: an introspection query had no or an ambiguous
	// match (find returning != 1 result).
	UnexpectedQuery
	// InternalAssertion: a broken invariant inside a pass; fatal, the
	// tree may be inconsistent.
	InternalAssertion
)

func (k Kind) String() string {
	switch k {
	case InvalidProgram:
		return "InvalidProgram"
	case InvalidSchedule:
		return "InvalidSchedule"
	case UnexpectedQuery:
		return "UnexpectedQuery"
	case InternalAssertion:
		return "InternalAssertion"
	default:
		return "UnknownError"
	}
}
