package fill

import "simexec/internal/schema"

// Executor turns a fill decision into an execution report. It returns true
// when the order is fully filled afterwards.
type Executor interface {
	Execute(o *schema.Order, price, qty float64) bool
}

// Handler decides whether, at what price and for how much an order of one
// type fills against a sample. Process returns true only when the order is
// fully filled; after a partial fill the order keeps resting.
//
// Handlers may update the simulation state carried by the order
// (Triggered, TrailAnchor, StopPrice of trailing stops).
type Handler interface {
	Process(o *schema.Order, s Sample, x Executor) bool
}

// Market fills at the reference price.
type Market struct{}

func (Market) Process(o *schema.Order, s Sample, x Executor) bool {
	return x.Execute(o, s.Price, s.quantity(o))
}

// Limit fills at the observed price when it is at least as good as the
// limit. Price improvement is passed through.
type Limit struct{}

func (Limit) Process(o *schema.Order, s Sample, x Executor) bool {
	if !marketable(o.Side, o.LimitPrice, s.Price) {
		return false
	}
	return x.Execute(o, s.Price, s.quantity(o))
}

// Stop turns into a market order once the stop price is crossed.
type Stop struct{}

func (Stop) Process(o *schema.Order, s Sample, x Executor) bool {
	price := s.Price
	if !o.Triggered {
		p, ok := trigger(o.Side, o.StopPrice, s)
		if !ok {
			return false
		}
		o.Triggered, price = true, p
	}
	return x.Execute(o, price, s.quantity(o))
}

// StopLimit turns into a limit order once the stop price is crossed.
type StopLimit struct{}

func (StopLimit) Process(o *schema.Order, s Sample, x Executor) bool {
	price := s.Price
	if !o.Triggered {
		p, ok := trigger(o.Side, o.StopPrice, s)
		if !ok {
			return false
		}
		o.Triggered, price = true, p
	}
	if !marketable(o.Side, o.LimitPrice, price) {
		return false
	}
	return x.Execute(o, price, s.quantity(o))
}

// TrailingStop keeps its stop at a fixed distance, absolute or in percent,
// from the best price seen since submission. The stop only ever moves in the
// order's favor. Each sample is first checked against the current stop and
// only then used to move it.
type TrailingStop struct{}

func (TrailingStop) Process(o *schema.Order, s Sample, x Executor) bool {
	if o.Triggered {
		return x.Execute(o, s.Price, s.quantity(o))
	}
	if price, ok := trigger(o.Side, o.StopPrice, s); ok {
		o.Triggered = true
		return x.Execute(o, price, s.quantity(o))
	}
	trail(o, s)
	return false
}

func trail(o *schema.Order, s Sample) {
	buy := o.Side.IsBuy()

	best := s.Price
	if s.Range {
		best = s.High
		if buy {
			best = s.Low
		}
	}

	if buy {
		if o.TrailAnchor == 0 || best < o.TrailAnchor {
			o.TrailAnchor = best
		}
		if stop := o.TrailAnchor + trailOffset(o); o.StopPrice == 0 || stop < o.StopPrice {
			o.StopPrice = stop
		}
		return
	}

	if best > o.TrailAnchor {
		o.TrailAnchor = best
	}
	if stop := o.TrailAnchor - trailOffset(o); stop > o.StopPrice {
		o.StopPrice = stop
	}
}

func trailOffset(o *schema.Order) float64 {
	if o.TrailingPercent {
		return o.TrailAnchor * o.TrailingOffset / 100
	}
	return o.TrailingOffset
}

// marketable reports whether price is at least as good as limit for side.
func marketable(side schema.Side, limit, price float64) bool {
	if limit <= 0 {
		return false
	}
	if side.IsBuy() {
		return price <= limit
	}
	return price >= limit
}

// trigger reports whether s crosses the stop level adversely and the price
// the triggered order executes at. Range samples trigger anywhere between
// low and high and execute at the level, or at the open when the bar gapped
// through it.
func trigger(side schema.Side, level float64, s Sample) (float64, bool) {
	if level <= 0 {
		return 0, false
	}
	buy := side.IsBuy()

	if !s.Range {
		if buy && s.Price >= level || !buy && s.Price <= level {
			return s.Price, true
		}
		return 0, false
	}

	if buy {
		if s.High < level {
			return 0, false
		}
		if s.Open > level {
			return s.Open, true
		}
		return level, true
	}

	if s.Low > level {
		return 0, false
	}
	if s.Open > 0 && s.Open < level {
		return s.Open, true
	}
	return level, true
}
