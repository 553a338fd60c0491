package obs

import (
	"sync/atomic"
	"time"
)

// TraceGenerator hands out monotonically increasing trace IDs for journal
// headers.
type TraceGenerator struct {
	next atomic.Uint64
}

// NewTraceGenerator returns a generator seeded with the given value; zero
// seeds from the wall clock.
func NewTraceGenerator(seed uint64) *TraceGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	g := &TraceGenerator{}
	g.next.Store(seed)
	return g
}

// Next returns the next trace ID.
func (g *TraceGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return g.next.Add(1)
}
