package chaos

import (
	"math/rand/v2"
	"time"

	"github.com/yanun0323/errors"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// Event is one journal record.
type Event struct {
	Header  schema.EventHeader
	Payload []byte
}

// Config controls fault injection. Only market data records are perturbed;
// orders and execution reports pass through in place.
type Config struct {
	Seed          uint64
	DropRate      float64
	DuplicateRate float64
	ReorderWindow int
	MaxDelay      time.Duration
}

// Engine degrades a market data stream the way a lossy feed would.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []Event
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UTC().UnixNano())
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1)),
	}, nil
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return errors.Wrap(exception.ErrInvalidConfig, "chaos: dropRate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return errors.Wrap(exception.ErrInvalidConfig, "chaos: duplicateRate must be between 0 and 1")
	}
	if c.ReorderWindow <= 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "chaos: reorderWindow must be >= 1")
	}
	if c.MaxDelay < 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "chaos: maxDelay must be >= 0")
	}
	return nil
}

func isMarketData(t schema.EventType) bool {
	return t == schema.EventBar || t == schema.EventQuote || t == schema.EventTrade
}

// Process applies chaos to a single event and returns the events to emit.
func (e *Engine) Process(ev Event) []Event {
	if e == nil || !isMarketData(ev.Header.Type) {
		return []Event{ev}
	}
	if e.shouldDrop() {
		return nil
	}
	ev = e.applyDelay(ev)
	if e.cfg.ReorderWindow <= 1 {
		return e.applyDuplicate(ev)
	}
	e.pending = append(e.pending, ev)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.applyDuplicate(e.take())
}

// Flush returns any buffered events after processing completes.
func (e *Engine) Flush() []Event {
	if e == nil || len(e.pending) == 0 {
		return nil
	}
	out := make([]Event, 0, len(e.pending))
	for len(e.pending) > 0 {
		out = append(out, e.applyDuplicate(e.take())...)
	}
	return out
}

func (e *Engine) take() Event {
	idx := e.rng.IntN(len(e.pending))
	ev := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return ev
}

func (e *Engine) shouldDrop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) applyDuplicate(ev Event) []Event {
	out := []Event{ev}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, ev)
	}
	return out
}

func (e *Engine) applyDelay(ev Event) Event {
	maxDelay := e.cfg.MaxDelay.Nanoseconds()
	if maxDelay <= 0 {
		return ev
	}
	delay := e.rng.Int64N(maxDelay + 1)
	if delay == 0 {
		return ev
	}
	if ev.Header.TsRecv > 0 {
		ev.Header.TsRecv += delay
		return ev
	}
	if ev.Header.TsEvent > 0 {
		ev.Header.TsRecv = ev.Header.TsEvent + delay
	}
	return ev
}
