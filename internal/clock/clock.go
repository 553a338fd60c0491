// Package clock supplies the executor's notion of time.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns the current time in Unix nanoseconds.
type Clock interface {
	Now() int64
}

// Wall reads the system clock.
type Wall struct{}

func (Wall) Now() int64 {
	return time.Now().UnixNano()
}

// Sim is driven by event timestamps. It never moves backwards: an older
// timestamp from a slower feed leaves it unchanged.
type Sim struct {
	now atomic.Int64
}

// NewSim creates a simulated clock starting at start.
func NewSim(start int64) *Sim {
	s := &Sim{}
	s.now.Store(start)
	return s
}

func (s *Sim) Now() int64 {
	return s.now.Load()
}

// Advance moves the clock to ts if ts is later and returns the resulting time.
func (s *Sim) Advance(ts int64) int64 {
	for {
		cur := s.now.Load()
		if ts <= cur {
			return cur
		}
		if s.now.CompareAndSwap(cur, ts) {
			return ts
		}
	}
}

// Advancer is implemented by clocks that follow event time.
type Advancer interface {
	Advance(ts int64) int64
}
