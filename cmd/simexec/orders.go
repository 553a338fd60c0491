package main

import (
	"math/rand/v2"

	"simexec/internal/clock"
	"simexec/internal/mdcache"
	"simexec/internal/schema"
)

// orderFlow draws a random mix of order types around the latest known
// price of a random instrument.
type orderFlow struct {
	ids   []schema.InstrumentID
	cache *mdcache.Cache
	clock clock.Clock
	base  float64
	rng   *rand.Rand
}

func newOrderFlow(reg *schema.Registry, cache *mdcache.Cache, c clock.Clock, base float64, rng *rand.Rand) *orderFlow {
	ids := make([]schema.InstrumentID, 0, reg.InstrumentCount())
	for i := range reg.InstrumentCount() {
		if inst, ok := reg.InstrumentAt(i); ok {
			ids = append(ids, inst.ID)
		}
	}
	if base <= 0 {
		base = 100
	}
	return &orderFlow{ids: ids, cache: cache, clock: c, base: base, rng: rng}
}

var flowSides = []schema.Side{
	schema.SideBuy, schema.SideSell, schema.SideBuyMinus, schema.SideSellPlus, schema.SideSellShort,
}

func (f *orderFlow) next(id schema.OrderID) *schema.Order {
	inst := f.ids[f.rng.IntN(len(f.ids))]
	ref := f.reference(inst)
	side := flowSides[f.rng.IntN(len(flowSides))]
	sign := 1.0
	if !side.IsBuy() {
		sign = -1
	}
	// away prices bps basis points on the passive side of ref; negative bps cross it
	away := func(bps float64) float64 {
		return ref * (1 - sign*bps/10_000)
	}

	o := &schema.Order{
		ID:           id,
		InstrumentID: inst,
		Side:         side,
		OrdQty:       float64(1 + f.rng.IntN(20)),
	}
	switch f.rng.IntN(10) {
	case 0, 1:
		o.Type = schema.OrdTypeMarket
	case 2, 3, 4, 5:
		o.Type = schema.OrdTypeLimit
		o.LimitPrice = away(float64(f.rng.IntN(40) - 10))
	case 6, 7:
		o.Type = schema.OrdTypeStop
		o.StopPrice = away(-float64(5 + f.rng.IntN(30)))
	case 8:
		o.Type = schema.OrdTypeStopLimit
		o.StopPrice = away(-float64(5 + f.rng.IntN(30)))
		o.LimitPrice = away(-float64(40 + f.rng.IntN(20)))
	default:
		o.Type = schema.OrdTypeTrailingStop
		o.TrailingOffset = float64(10+f.rng.IntN(40)) / 100
		o.TrailingPercent = true
	}
	if f.rng.IntN(5) == 0 {
		o.ExpireTime = f.clock.Now() + int64(f.rng.IntN(600))*1e9
	}
	return o
}

func (f *orderFlow) shouldCancel() bool {
	return f.rng.IntN(20) == 0
}

func (f *orderFlow) reference(inst schema.InstrumentID) float64 {
	data, ok := f.cache.Get(inst)
	switch {
	case !ok:
		return f.base
	case data.HasTrade && data.Trade.Price > 0:
		return data.Trade.Price
	case data.HasQuote && data.Quote.Bid > 0 && data.Quote.Ask > 0:
		return (data.Quote.Bid + data.Quote.Ask) / 2
	case data.HasBar && data.Bar.Close > 0:
		return data.Bar.Close
	default:
		return f.base
	}
}
