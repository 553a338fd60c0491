// Package fill holds the per-order-type fill decisions.
package fill

import "simexec/internal/schema"

// Engine routes an order to the handler of its type. It never decides a
// fill itself.
type Engine struct {
	handlers [schema.OrdTypeCount]Handler
	exec     Executor
	trigger  BarTrigger
	size     FillSize
}

// NewEngine creates an engine with the default handler for every order type.
func NewEngine(exec Executor, trigger BarTrigger, size FillSize) *Engine {
	e := &Engine{exec: exec, trigger: trigger, size: size}
	e.handlers[schema.OrdTypeMarket] = Market{}
	e.handlers[schema.OrdTypeLimit] = Limit{}
	e.handlers[schema.OrdTypeStop] = Stop{}
	e.handlers[schema.OrdTypeStopLimit] = StopLimit{}
	e.handlers[schema.OrdTypeTrailingStop] = TrailingStop{}
	return e
}

// Handle replaces the handler of an order type.
func (e *Engine) Handle(t schema.OrdType, h Handler) {
	if t.IsAvailable() {
		e.handlers[t] = h
	}
}

// Supports reports whether orders of type t can be evaluated.
func (e *Engine) Supports(t schema.OrdType) bool {
	return t.IsAvailable() && e.handlers[t] != nil
}

// ProcessSample evaluates o against s and reports whether it is fully filled.
func (e *Engine) ProcessSample(o *schema.Order, s Sample) bool {
	if o.IsDone() || o.LeaveQty() <= 0 {
		return o.Status == schema.OrdStatusFilled
	}
	if !e.Supports(o.Type) {
		return false
	}
	return e.handlers[o.Type].Process(o, s, e.exec)
}

// ProcessPrice evaluates o against an explicit price. qty <= 0 stands for
// the whole remaining quantity.
func (e *Engine) ProcessPrice(o *schema.Order, price, qty float64) bool {
	return e.ProcessSample(o, FromPrice(price, qty))
}

func (e *Engine) ProcessBar(o *schema.Order, b *schema.Bar) bool {
	s, ok := FromBar(b, e.trigger)
	if !ok {
		return false
	}
	return e.ProcessSample(o, s)
}

func (e *Engine) ProcessQuote(o *schema.Order, q *schema.Quote) bool {
	s, ok := FromQuote(o, q, e.size)
	if !ok {
		return false
	}
	return e.ProcessSample(o, s)
}

func (e *Engine) ProcessTrade(o *schema.Order, t *schema.Trade) bool {
	s, ok := FromTrade(t, e.size)
	if !ok {
		return false
	}
	return e.ProcessSample(o, s)
}

// Process evaluates o against every variant present in md, in dispatch
// order, until it is fully filled.
func (e *Engine) Process(o *schema.Order, md *schema.MarketData) bool {
	if md.Kinds.Has(schema.KindBar) && e.ProcessBar(o, &md.Bar) {
		return true
	}
	if md.Kinds.Has(schema.KindQuote) && e.ProcessQuote(o, &md.Quote) {
		return true
	}
	if md.Kinds.Has(schema.KindTrade) && e.ProcessTrade(o, &md.Trade) {
		return true
	}
	return false
}
