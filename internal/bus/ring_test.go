package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"simexec/pkg/exception"
)

type tick struct {
	producer int
	n        int
}

func TestNewRingRequiresPowerOfTwo(t *testing.T) {
	for _, size := range []int{0, -4, 3, 12} {
		_, err := NewRing[tick](size)
		assert.True(t, errors.Is(err, exception.ErrRingSizeNotPow2), "size %d", size)
	}

	r, err := NewRing[tick](16)
	require.NoError(t, err)
	assert.Equal(t, 16, r.Size())
	assert.Equal(t, InitialSequence, r.Cursor())
}

func TestRingTryNextStopsAtGatingSequence(t *testing.T) {
	r, err := NewRing[tick](4)
	require.NoError(t, err)

	consumer := NewSequence(InitialSequence)
	r.Attach(consumer, nil)

	for i := range 4 {
		seq, err := r.TryNext(1)
		require.NoError(t, err)
		assert.Equal(t, int64(i), seq)
		r.Publish(seq, seq)
	}

	_, err = r.TryNext(1)
	require.True(t, errors.Is(err, exception.ErrRingFull))

	consumer.Set(1)
	seq, err := r.TryNext(2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)

	_, err = r.TryNext(1)
	assert.True(t, errors.Is(err, exception.ErrRingFull))

	_, err = r.TryNext(5)
	assert.True(t, errors.Is(err, exception.ErrRingInvalidClaim))
}

func TestRingHighestPublishedStopsAtGap(t *testing.T) {
	r, err := NewRing[tick](8)
	require.NoError(t, err)

	hi, err := r.Next(3)
	require.NoError(t, err)
	require.Equal(t, int64(2), hi)

	r.Publish(0, 0)
	r.Publish(2, 2)
	assert.Equal(t, int64(0), r.HighestPublished(0, hi))
	assert.False(t, r.IsPublished(1))

	r.Publish(1, 1)
	assert.Equal(t, int64(2), r.HighestPublished(0, hi))
	assert.Equal(t, int64(2), r.HighestPublished(3, 3), "unpublished lo reports lo-1")
}

func TestRingPublishedRoundDistinguishesWraps(t *testing.T) {
	r, err := NewRing[tick](2)
	require.NoError(t, err)

	for range 2 {
		r.PublishEvent(func(*tick, int64) {})
	}
	assert.True(t, r.IsPublished(0))
	assert.False(t, r.IsPublished(2), "slot 0 of the next lap must not look published")

	r.PublishEvent(func(*tick, int64) {})
	assert.True(t, r.IsPublished(2))
	assert.False(t, r.IsPublished(0))
}

func TestRingSlotsAreReused(t *testing.T) {
	r, err := NewRing[tick](2)
	require.NoError(t, err)

	first := r.Get(0)
	assert.Same(t, first, r.Get(2))
	assert.NotSame(t, first, r.Get(1))
}

func TestProcessorMultiProducerOrder(t *testing.T) {
	const (
		producers = 4
		perProd   = 2000
	)

	testCases := []struct {
		desc string
		wait func() WaitStrategy
	}{
		{"busy-spin", func() WaitStrategy { return BusySpin{} }},
		{"yield", func() WaitStrategy { return Yielding{SpinTries: 10} }},
		{"block", func() WaitStrategy { return NewBlocking() }},
		{"timeout-block", func() WaitStrategy { return NewTimeoutBlocking(10, time.Millisecond) }},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			r, err := NewRing[tick](64)
			require.NoError(t, err)

			last := make([]int, producers)
			for i := range last {
				last[i] = -1
			}
			var (
				count   atomic.Int64
				ordered atomic.Bool
				prevSeq = InitialSequence
			)
			ordered.Store(true)

			handler := EventHandlerFunc[tick](func(ev *tick, seq int64, _ bool) {
				if seq != prevSeq+1 || ev.n != last[ev.producer]+1 {
					ordered.Store(false)
				}
				prevSeq = seq
				last[ev.producer] = ev.n
				count.Add(1)
			})

			p, err := NewProcessor(handler, tc.wait(), []*Ring[tick]{r})
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- p.Run(ctx) }()

			var wg sync.WaitGroup
			for id := range producers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for n := range perProd {
						r.PublishEvent(func(slot *tick, _ int64) {
							slot.producer, slot.n = id, n
						})
					}
				}()
			}
			wg.Wait()

			require.Eventually(t, func() bool {
				return count.Load() == producers*perProd
			}, 5*time.Second, time.Millisecond)

			cancel()
			require.NoError(t, <-done)
			assert.True(t, ordered.Load())
			assert.Equal(t, int64(producers*perProd-1), p.Sequence(0))
		})
	}
}

func TestProcessorDrainsEveryRingInOrder(t *testing.T) {
	bars, err := NewRing[tick](8)
	require.NoError(t, err)
	quotes, err := NewRing[tick](8)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = map[int][]int{}
	)
	handler := EventHandlerFunc[tick](func(ev *tick, _ int64, _ bool) {
		mu.Lock()
		seen[ev.producer] = append(seen[ev.producer], ev.n)
		mu.Unlock()
	})

	p, err := NewProcessor(handler, NewBlocking(), []*Ring[tick]{bars, quotes}, WithLockOSThread())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	for n := range 20 {
		bars.PublishEvent(func(slot *tick, _ int64) { slot.producer, slot.n = 0, n })
		quotes.PublishEvent(func(slot *tick, _ int64) { slot.producer, slot.n = 1, n })
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen[0]) == 20 && len(seen[1]) == 20
	}, 5*time.Second, time.Millisecond)

	p.Halt()
	require.NoError(t, <-done)

	for src := range 2 {
		for i, n := range seen[src] {
			assert.Equal(t, i, n)
		}
	}
}

func TestProcessorSkipsRingWithClaimedGap(t *testing.T) {
	bars, err := NewRing[tick](8)
	require.NoError(t, err)
	quotes, err := NewRing[tick](8)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen []int
	)
	handler := EventHandlerFunc[tick](func(ev *tick, _ int64, _ bool) {
		mu.Lock()
		seen = append(seen, ev.producer)
		mu.Unlock()
	})
	p, err := NewProcessor(handler, Yielding{}, []*Ring[tick]{bars, quotes})
	require.NoError(t, err)

	claimed, err := bars.Next(1)
	require.NoError(t, err)
	require.Equal(t, int64(0), claimed)
	quotes.PublishEvent(func(slot *tick, _ int64) { slot.producer = 1 })

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	require.Eventually(t, func() bool { return p.Sequence(1) == 0 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, InitialSequence, p.Sequence(0))
	mu.Lock()
	assert.Equal(t, []int{1}, seen)
	mu.Unlock()

	bars.Get(claimed).producer = 0
	bars.Publish(claimed, claimed)
	require.Eventually(t, func() bool { return p.Sequence(0) == 0 }, 5*time.Second, time.Millisecond)

	p.Halt()
	require.NoError(t, <-done)
	assert.Equal(t, []int{1, 0}, seen)
}

func TestProcessorRejectsSecondRun(t *testing.T) {
	r, err := NewRing[tick](4)
	require.NoError(t, err)

	p, err := NewProcessor(EventHandlerFunc[tick](func(*tick, int64, bool) {}), NewBlocking(), []*Ring[tick]{r})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()
	require.Eventually(t, p.Running, time.Second, time.Millisecond)

	assert.True(t, errors.Is(p.Run(context.Background()), exception.ErrProcessorRunning))

	p.Halt()
	require.NoError(t, <-done)
	assert.False(t, p.Running())
}

func TestProcessorDetachesOnHalt(t *testing.T) {
	r, err := NewRing[tick](2)
	require.NoError(t, err)

	p, err := NewProcessor(EventHandlerFunc[tick](func(*tick, int64, bool) {}), BusySpin{}, []*Ring[tick]{r})
	require.NoError(t, err)
	p.Halt()
	require.NoError(t, p.Run(context.Background()))

	for range 8 {
		_, err := r.TryPublishEvent(func(*tick, int64) {})
		require.NoError(t, err)
	}
}

func TestNewProcessorValidation(t *testing.T) {
	_, err := NewProcessor[tick](nil, nil, nil)
	assert.True(t, errors.Is(err, exception.ErrNilInstance))

	_, err = NewProcessor[tick](EventHandlerFunc[tick](func(*tick, int64, bool) {}), nil, nil)
	assert.True(t, errors.Is(err, exception.ErrProcessorNoRing))
}

func BenchmarkRingPublishEvent(b *testing.B) {
	r, err := NewRing[tick](1024)
	require.NoError(b, err)

	for b.Loop() {
		r.PublishEvent(func(slot *tick, seq int64) { slot.n = int(seq) })
	}
}
