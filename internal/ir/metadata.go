package ir

// Metadata holds derived analysis attributes cached on an expression node:
// its structural hash, a normalized linear form, and inferred bounds. These
// are computed by internal/analysis and invalidated implicitly by any
// rewrite that produces a new node (a fresh node simply starts with a zero
// Metadata; nothing carries stale attributes forward).
type Metadata struct {
	hashValid bool
	hash      uint64

	// Linear is the cached canonical sum-of-products form, set by the
	// linear-expression analyzer. Opaque here (internal/ir cannot import
	// internal/analysis) — nil until analysis.Analyze populates it with a
	// *analysis.LinearForm.
	Linear any

	// Lower and Upper are cached symbolic bounds, set by bound inference.
	// Nil until computed.
	Lower []Expr
	Upper []Expr
}

// Invalidate clears every cached attribute. Passes call this on any node
// they rebuild in place (rare; most passes return new nodes instead, which
// start with a clean Metadata automatically).
func (m *Metadata) Invalidate() {
	*m = Metadata{}
}

func (m *Metadata) cachedHash() (uint64, bool) {
	if m == nil {
		return 0, false
	}
	return m.hash, m.hashValid
}

func (m *Metadata) setCachedHash(h uint64) {
	if m == nil {
		return
	}
	m.hash = h
	m.hashValid = true
}
