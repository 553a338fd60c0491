package bus

import (
	"runtime"
	"strings"
	"time"

	"simexec/pkg/exception"
)

// WaitStrategy is the policy an idle consumer applies while waiting for
// new sequences. An instance serves a single consumer.
type WaitStrategy interface {
	// Wait is called after a pass that found nothing to consume. round counts
	// consecutive idle passes; ready reports whether work arrived or the
	// consumer was halted.
	Wait(round int, ready func() bool)
	// Signal is called by producers after every publish.
	Signal()
}

// BusySpin returns immediately and keeps the consumer polling. Lowest
// latency, burns a dedicated core.
type BusySpin struct{}

func (BusySpin) Wait(int, func() bool) {}

func (BusySpin) Signal() {}

// Yielding spins for SpinTries idle rounds and then yields the processor
// on every further round.
type Yielding struct {
	SpinTries int
}

func (y Yielding) Wait(round int, _ func() bool) {
	if round >= y.SpinTries {
		runtime.Gosched()
	}
}

func (Yielding) Signal() {}

// Blocking parks the consumer until a producer signals.
type Blocking struct {
	notify chan struct{}
}

func NewBlocking() *Blocking {
	return &Blocking{notify: make(chan struct{}, 1)}
}

func (b *Blocking) Wait(_ int, ready func() bool) {
	for !ready() {
		<-b.notify
	}
}

func (b *Blocking) Signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// TimeoutBlocking spins for SpinTries idle rounds, then parks until a
// producer signals or Timeout elapses.
type TimeoutBlocking struct {
	SpinTries int
	Timeout   time.Duration

	notify chan struct{}
	timer  *time.Timer
}

func NewTimeoutBlocking(spinTries int, timeout time.Duration) *TimeoutBlocking {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	timer := time.NewTimer(timeout)
	timer.Stop()
	return &TimeoutBlocking{
		SpinTries: spinTries,
		Timeout:   timeout,
		notify:    make(chan struct{}, 1),
		timer:     timer,
	}
}

func (b *TimeoutBlocking) Wait(round int, ready func() bool) {
	if round < b.SpinTries || ready() {
		return
	}
	b.timer.Reset(b.Timeout)
	defer b.timer.Stop()
	select {
	case <-b.notify:
	case <-b.timer.C:
	}
}

func (b *TimeoutBlocking) Signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Wait strategy names accepted by ParseWaitStrategy.
const (
	WaitBusySpin       = "busy-spin"
	WaitYield          = "yield"
	WaitBlock          = "block"
	WaitTimeoutBlock   = "timeout-block"
	defaultSpinTries   = 100
	defaultWaitTimeout = time.Millisecond
)

// ParseWaitStrategy builds a fresh strategy from its configured name.
// An empty name selects busy-spin.
func ParseWaitStrategy(name string, spinTries int, timeout time.Duration) (WaitStrategy, error) {
	if spinTries <= 0 {
		spinTries = defaultSpinTries
	}
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", WaitBusySpin:
		return BusySpin{}, nil
	case WaitYield:
		return Yielding{SpinTries: spinTries}, nil
	case WaitBlock:
		return NewBlocking(), nil
	case WaitTimeoutBlock:
		return NewTimeoutBlocking(spinTries, timeout), nil
	default:
		return nil, exception.ErrUnknownWaitPolicy
	}
}
