package autoschedule

import "github.com/segmentio/ksuid"

// Tag namespaces one Auto-Schedule instance's measurement cache, mirroring
// the original auto-scheduler's persisted `tag` string used to keep
// on-disk measurement caches from colliding across runs. A KSUID is used
// instead of a counter or a raw timestamp so a round's tag is both
// sortable by creation time and collision-free without the module ever
// calling time.Now() directly — correlating measurement telemetry, never
// assigned to an IR node (those keep the monotonic-counter IDs of §3.1).
type Tag string

// NewTag mints a fresh Tag for a new Auto-Schedule instance or a new
// search_one_round invocation.
func NewTag() Tag { return Tag(ksuid.New().String()) }

// MeasurementKey identifies one measured sketch within a Tag's namespace:
// the sketch's applied-parts signature, since two sketches with identical
// parts produce identical generated code and need not be re-measured.
type MeasurementKey string

func keyOf(sk *Sketch) MeasurementKey {
	var b []byte
	for _, p := range sk.Parts {
		b = append(b, []byte(p.Kind.String()+":"+p.Target+";")...)
	}
	return MeasurementKey(b)
}

// MeasurementCache memoizes test_and_add results across search_one_round
// calls, the behavior implicit in the original's measured_size reservoir.
// The default is in-memory; a caller may plug in a persistent
// implementation (e.g. backed by a file keyed by Tag) without changing
// the search loop.
type MeasurementCache interface {
	Get(tag Tag, key MeasurementKey) (time float64, ok bool)
	Put(tag Tag, key MeasurementKey, time float64)
}

// InMemoryCache is the default MeasurementCache.
type InMemoryCache struct {
	entries map[Tag]map[MeasurementKey]float64
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: map[Tag]map[MeasurementKey]float64{}}
}

func (c *InMemoryCache) Get(tag Tag, key MeasurementKey) (float64, bool) {
	m, ok := c.entries[tag]
	if !ok {
		return 0, false
	}
	t, ok := m[key]
	return t, ok
}

func (c *InMemoryCache) Put(tag Tag, key MeasurementKey, t float64) {
	if c.entries[tag] == nil {
		c.entries[tag] = map[MeasurementKey]float64{}
	}
	c.entries[tag][key] = t
}
