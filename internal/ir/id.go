package ir

import (
	"fmt"
	"sync/atomic"
)

// syntheticPrefix distinguishes process-generated IDs from user-supplied
// names so introspection (and serialization round-trips) can tell them
// apart without a side table.
const syntheticPrefix = "$"

// counter is the process-wide monotonic source of synthetic IDs. It is the
// only mutable state shared across IR trees; it is bumped with an atomic
// increment so concurrent front-ends building independent trees never
// collide.
var counter uint64

// ID identifies a statement node. Equality is string equality; no separate
// hash is computed or stored alongside the string.
type ID string

// NewID allocates a fresh synthetic ID.
func NewID() ID {
	n := atomic.AddUint64(&counter, 1)
	return ID(fmt.Sprintf("%s%d", syntheticPrefix, n))
}

// UserID wraps a user-supplied name as an ID. It is the caller's
// responsibility to avoid colliding with another ID in the same tree;
// Schedule operations validate this at rest (see symtab and §3.5).
func UserID(name string) ID {
	return ID(name)
}

// IsSynthetic reports whether id was produced by NewID rather than supplied
// by a caller.
func (id ID) IsSynthetic() bool {
	return len(id) > 0 && id[0] == syntheticPrefix[0]
}

// WithSuffix derives a child ID by appending a suffix, the convention used
// by split/fission/cache when a single node becomes two or more.
func (id ID) WithSuffix(suffix string) ID {
	return ID(string(id) + suffix)
}

func (id ID) String() string { return string(id) }

// ResetCounterForTest rewinds the global synthetic-ID counter. It exists
// only so tests can assert on exact generated IDs; production code never
// calls it.
func ResetCounterForTest() {
	atomic.StoreUint64(&counter, 0)
}
