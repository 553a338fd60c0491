package risk

import (
	"math"
	"sync"
	"time"

	"simexec/internal/schema"
)

// Config defines simple pre-trade limits. Zero disables a limit.
type Config struct {
	KillSwitch           bool          `json:"killSwitch"`
	MaxOrderQty          float64       `json:"maxOrderQty"`
	MaxOrderNotional     float64       `json:"maxOrderNotional"`
	MaxPosition          float64       `json:"maxPosition"`
	OrderRateLimit       int           `json:"orderRateLimit"`
	OrderRateWindow      time.Duration `json:"orderRateWindow"`
	MaxPriceDeviationBps float64       `json:"maxPriceDeviationBps"`
}

// StateView is what the engine knows about the instrument when an order
// arrives.
type StateView struct {
	Position       float64
	ReferencePrice float64
	Now            int64
}

// Engine evaluates risk decisions. It is safe for concurrent use.
type Engine struct {
	cfg Config

	mu              sync.Mutex
	rateWindowStart int64
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate applies the limits to an order and returns RejectReasonNone when
// the order may rest.
func (e *Engine) Evaluate(o *schema.Order, state StateView) schema.RejectReason {
	if e == nil {
		return schema.RejectReasonNone
	}
	if e.cfg.KillSwitch {
		return schema.RejectReasonKillSwitch
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		now := state.Now
		if now == 0 {
			now = time.Now().UTC().UnixNano()
		}
		if !e.allowRate(now) {
			return schema.RejectReasonRateLimit
		}
	}

	if e.cfg.MaxOrderQty > 0 && o.OrdQty > e.cfg.MaxOrderQty {
		return schema.RejectReasonMaxQty
	}

	price := referencePrice(o, state.ReferencePrice)
	if e.cfg.MaxPriceDeviationBps > 0 && o.Type == schema.OrdTypeLimit && state.ReferencePrice > 0 {
		diff := math.Abs(o.LimitPrice - state.ReferencePrice)
		if diff*10_000 > state.ReferencePrice*e.cfg.MaxPriceDeviationBps {
			return schema.RejectReasonPriceBand
		}
	}

	if e.cfg.MaxOrderNotional > 0 && price > 0 && price*o.OrdQty > e.cfg.MaxOrderNotional {
		return schema.RejectReasonMaxNotional
	}

	if e.cfg.MaxPosition > 0 && math.Abs(applySide(state.Position, o.Side, o.OrdQty)) > e.cfg.MaxPosition {
		return schema.RejectReasonPositionLimit
	}

	return schema.RejectReasonNone
}

func (e *Engine) allowRate(now int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	window := int64(e.cfg.OrderRateWindow)
	if e.rateWindowStart == 0 || now-e.rateWindowStart >= window {
		e.rateWindowStart = now
		e.rateCount = 0
	}
	e.rateCount++
	return e.rateCount <= e.cfg.OrderRateLimit
}

// referencePrice is the price the order's notional is measured at.
func referencePrice(o *schema.Order, market float64) float64 {
	switch o.Type {
	case schema.OrdTypeLimit, schema.OrdTypeStopLimit:
		return o.LimitPrice
	case schema.OrdTypeStop:
		return o.StopPrice
	default:
		return market
	}
}

func applySide(pos float64, side schema.Side, qty float64) float64 {
	if side.IsBuy() {
		return pos + qty
	}
	if side.IsAvailable() {
		return pos - qty
	}
	return pos
}
