package bus

import (
	"context"
	"runtime"
	"sync/atomic"

	"simexec/pkg/exception"
)

// EventHandler consumes ring slots. The slot is only valid for the duration
// of the call.
type EventHandler[T any] interface {
	OnEvent(event *T, seq int64, endOfBatch bool)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[T any] func(event *T, seq int64, endOfBatch bool)

func (f EventHandlerFunc[T]) OnEvent(event *T, seq int64, endOfBatch bool) {
	f(event, seq, endOfBatch)
}

type ProcessorOption func(*processorOptions)

type processorOptions struct {
	lockThread bool
}

// WithLockOSThread pins the consumption loop to its OS thread.
func WithLockOSThread() ProcessorOption {
	return func(o *processorOptions) {
		o.lockThread = true
	}
}

// Processor owns one consumption loop. It drains every attached ring in
// round-robin order, one available batch per ring per pass, so each ring's
// publish order is preserved while the interleaving between rings follows
// the drain order.
type Processor[T any] struct {
	rings   []*Ring[T]
	seqs    []*Sequence
	handler EventHandler[T]
	wait    WaitStrategy
	opts    processorOptions

	running atomic.Bool
	halted  atomic.Bool
}

// NewProcessor attaches a fresh consumer sequence to every ring. wait must
// not be shared with another processor.
func NewProcessor[T any](handler EventHandler[T], wait WaitStrategy, rings []*Ring[T], opts ...ProcessorOption) (*Processor[T], error) {
	if handler == nil {
		return nil, exception.ErrNilInstance
	}
	if len(rings) == 0 {
		return nil, exception.ErrProcessorNoRing
	}
	if wait == nil {
		wait = BusySpin{}
	}

	p := &Processor[T]{
		rings:   rings,
		seqs:    make([]*Sequence, len(rings)),
		handler: handler,
		wait:    wait,
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	for i, r := range rings {
		p.seqs[i] = NewSequence(InitialSequence)
		r.Attach(p.seqs[i], wait)
	}
	return p, nil
}

// Run consumes until Halt is called or ctx is done. The batch in flight is
// always completed. A halted processor detaches from its rings and cannot be
// restarted.
func (p *Processor[T]) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return exception.ErrProcessorRunning
	}
	defer p.running.Store(false)

	if p.opts.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	stop := context.AfterFunc(ctx, p.Halt)
	defer stop()
	defer p.detach()

	idle := 0
	for !p.halted.Load() {
		if p.drain() {
			idle = 0
			continue
		}
		p.wait.Wait(idle, p.ready)
		idle++
	}
	return nil
}

// Halt asks the loop to stop after the current batch.
func (p *Processor[T]) Halt() {
	p.halted.Store(true)
	p.wait.Signal()
}

func (p *Processor[T]) Running() bool {
	return p.running.Load()
}

// Sequence returns the last consumed sequence of the i-th ring.
func (p *Processor[T]) Sequence(i int) int64 {
	return p.seqs[i].Get()
}

func (p *Processor[T]) drain() bool {
	progressed := false
	for i, r := range p.rings {
		next := p.seqs[i].Get() + 1
		cursor := r.Cursor()
		if next > cursor {
			continue
		}
		avail := r.HighestPublished(next, cursor)
		if avail < next {
			continue
		}
		for seq := next; seq <= avail; seq++ {
			p.handler.OnEvent(r.Get(seq), seq, seq == avail)
		}
		p.seqs[i].Set(avail)
		progressed = true
	}
	return progressed
}

func (p *Processor[T]) ready() bool {
	if p.halted.Load() {
		return true
	}
	for i, r := range p.rings {
		if r.IsPublished(p.seqs[i].Get() + 1) {
			return true
		}
	}
	return false
}

func (p *Processor[T]) detach() {
	for i, r := range p.rings {
		r.Detach(p.seqs[i])
	}
}
