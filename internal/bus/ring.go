package bus

import (
	"math/bits"
	"runtime"
	"sync"
	"sync/atomic"

	"simexec/pkg/exception"
)

const cacheLineSize = 64

// InitialSequence is the value of a cursor before anything was published.
const InitialSequence int64 = -1

// Sequence is a cursor padded to its own cache line to avoid false sharing
// between producers and consumers.
type Sequence struct {
	_ [cacheLineSize - 8]byte
	v atomic.Int64
	_ [cacheLineSize - 8]byte
}

// NewSequence returns a cursor set to initial.
func NewSequence(initial int64) *Sequence {
	s := &Sequence{}
	s.v.Store(initial)
	return s
}

func (s *Sequence) Get() int64 {
	return s.v.Load()
}

func (s *Sequence) Set(v int64) {
	s.v.Store(v)
}

// Ring is a fixed-capacity circular buffer of pre-allocated slots.
//
// Producers claim sequences with Next/TryNext, fill the slots in place and
// make them visible with Publish. Any number of producers may claim
// concurrently; consumers observe sequences strictly in order and never
// see a slot before it is published. Attached consumer sequences gate the
// producers so an unconsumed slot is never overwritten.
type Ring[T any] struct {
	slots     []T
	available []atomic.Int32
	size      int64
	mask      int64
	shift     uint

	cursor      Sequence
	gatingCache Sequence

	mu      sync.Mutex
	gating  atomic.Pointer[[]*Sequence]
	waiters atomic.Pointer[[]WaitStrategy]
}

// NewRing allocates a ring with size slots. size must be a power of two.
func NewRing[T any](size int) (*Ring[T], error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, exception.ErrRingSizeNotPow2
	}
	r := &Ring[T]{
		slots:     make([]T, size),
		available: make([]atomic.Int32, size),
		size:      int64(size),
		mask:      int64(size - 1),
		shift:     uint(bits.TrailingZeros(uint(size))),
	}
	for i := range r.available {
		r.available[i].Store(-1)
	}
	r.cursor.Set(InitialSequence)
	r.gatingCache.Set(InitialSequence)
	gating := make([]*Sequence, 0)
	waiters := make([]WaitStrategy, 0)
	r.gating.Store(&gating)
	r.waiters.Store(&waiters)
	return r, nil
}

// Size returns the slot capacity.
func (r *Ring[T]) Size() int {
	return int(r.size)
}

// Cursor returns the highest claimed sequence. Claimed is not published;
// use HighestPublished to find what is readable.
func (r *Ring[T]) Cursor() int64 {
	return r.cursor.Get()
}

// Get returns the slot for seq. The slot belongs to the producer that
// claimed seq until it is published.
func (r *Ring[T]) Get(seq int64) *T {
	return &r.slots[seq&r.mask]
}

// Attach registers a consumer cursor and its wait strategy. The cursor is
// moved to the current ring position so the consumer starts with the next
// claimed sequence.
func (r *Ring[T]) Attach(seq *Sequence, wait WaitStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq.Set(r.cursor.Get())

	gating := append(append([]*Sequence{}, *r.gating.Load()...), seq)
	r.gating.Store(&gating)
	if wait != nil {
		waiters := append(append([]WaitStrategy{}, *r.waiters.Load()...), wait)
		r.waiters.Store(&waiters)
	}
}

// Detach removes a consumer cursor so it no longer gates producers.
func (r *Ring[T]) Detach(seq *Sequence) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.gating.Load()
	gating := make([]*Sequence, 0, len(current))
	for _, s := range current {
		if s != seq {
			gating = append(gating, s)
		}
	}
	r.gating.Store(&gating)
}

// Next claims the next n sequences and returns the highest one, spinning
// while the ring is full.
func (r *Ring[T]) Next(n int64) (int64, error) {
	if n < 1 || n > r.size {
		return 0, exception.ErrRingInvalidClaim
	}
	for {
		current := r.cursor.Get()
		next := current + n
		wrap := next - r.size
		cached := r.gatingCache.Get()

		if wrap > cached || cached > current {
			gating := r.minimumGating(current)
			if wrap > gating {
				runtime.Gosched()
				continue
			}
			r.gatingCache.Set(gating)
			continue
		}
		if r.cursor.v.CompareAndSwap(current, next) {
			return next, nil
		}
	}
}

// TryNext claims the next n sequences without waiting. It returns
// ErrRingFull when the consumers have not freed enough slots.
func (r *Ring[T]) TryNext(n int64) (int64, error) {
	if n < 1 || n > r.size {
		return 0, exception.ErrRingInvalidClaim
	}
	for {
		current := r.cursor.Get()
		next := current + n
		if !r.hasCapacity(current, n) {
			return 0, exception.ErrRingFull
		}
		if r.cursor.v.CompareAndSwap(current, next) {
			return next, nil
		}
	}
}

func (r *Ring[T]) hasCapacity(current, n int64) bool {
	wrap := current + n - r.size
	cached := r.gatingCache.Get()
	if wrap > cached || cached > current {
		gating := r.minimumGating(current)
		r.gatingCache.Set(gating)
		if wrap > gating {
			return false
		}
	}
	return true
}

func (r *Ring[T]) minimumGating(current int64) int64 {
	lowest := current
	for _, s := range *r.gating.Load() {
		if v := s.Get(); v < lowest {
			lowest = v
		}
	}
	return lowest
}

// Publish makes the claimed range [lo, hi] visible to consumers and wakes
// any blocked waiter.
func (r *Ring[T]) Publish(lo, hi int64) {
	for seq := lo; seq <= hi; seq++ {
		r.available[seq&r.mask].Store(int32(seq >> r.shift))
	}
	for _, w := range *r.waiters.Load() {
		w.Signal()
	}
}

// IsPublished reports whether seq is readable.
func (r *Ring[T]) IsPublished(seq int64) bool {
	return r.available[seq&r.mask].Load() == int32(seq>>r.shift)
}

// HighestPublished returns the highest sequence in [lo, hi] such that every
// sequence from lo up to it is published, or lo-1 if lo itself is not.
func (r *Ring[T]) HighestPublished(lo, hi int64) int64 {
	for seq := lo; seq <= hi; seq++ {
		if !r.IsPublished(seq) {
			return seq - 1
		}
	}
	return hi
}

// PublishEvent claims one slot, lets fill populate it in place and publishes it.
func (r *Ring[T]) PublishEvent(fill func(slot *T, seq int64)) int64 {
	seq, _ := r.Next(1)
	fill(r.Get(seq), seq)
	r.Publish(seq, seq)
	return seq
}

// TryPublishEvent is PublishEvent without waiting for capacity.
func (r *Ring[T]) TryPublishEvent(fill func(slot *T, seq int64)) (int64, error) {
	seq, err := r.TryNext(1)
	if err != nil {
		return 0, err
	}
	fill(r.Get(seq), seq)
	r.Publish(seq, seq)
	return seq, nil
}
