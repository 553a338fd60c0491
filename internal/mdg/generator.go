package mdg

import (
	"math"
	"math/rand/v2"

	"github.com/yanun0323/errors"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// GeneratorConfig shapes the synthetic random walk.
type GeneratorConfig struct {
	Kinds     schema.Kinds
	BasePrice float64
	Step      float64
	Spread    float64
	Size      float64
	BarSize   int32
	Seed      uint64
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.Kinds == 0 {
		c.Kinds = c.Kinds.With(schema.KindQuote)
	}
	if c.BasePrice <= 0 {
		c.BasePrice = 100
	}
	if c.Step <= 0 {
		c.Step = 0.01
	}
	if c.Spread < 0 {
		c.Spread = 0
	}
	if c.Size <= 0 {
		c.Size = 1
	}
	if c.BarSize <= 0 {
		c.BarSize = 60
	}
	return c
}

// Generator creates deterministic synthetic ticks for every instrument of a
// registry. Each call to Next advances one instrument by one variant, in
// registry order, then bar, quote, trade order.
type Generator struct {
	cfg     GeneratorConfig
	symbols []string
	kinds   []schema.Kind
	last    []float64
	rng     *rand.Rand
	index   int
}

// NewGenerator creates a generator for all instruments in the registry.
func NewGenerator(reg *schema.Registry, cfg GeneratorConfig) (*Generator, error) {
	if reg == nil || reg.InstrumentCount() == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "registry has no instruments")
	}
	cfg = cfg.withDefaults()

	symbols := make([]string, 0, reg.InstrumentCount())
	for i := range reg.InstrumentCount() {
		inst, ok := reg.InstrumentAt(i)
		if !ok {
			continue
		}
		symbols = append(symbols, inst.Symbol)
	}

	var kinds []schema.Kind
	for _, k := range []schema.Kind{schema.KindBar, schema.KindQuote, schema.KindTrade} {
		if cfg.Kinds.Has(k) {
			kinds = append(kinds, k)
		}
	}
	if len(symbols) == 0 || len(kinds) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "generator has nothing to emit")
	}

	last := make([]float64, len(symbols))
	for i := range last {
		last[i] = cfg.BasePrice
	}
	return &Generator{
		cfg:     cfg,
		symbols: symbols,
		kinds:   kinds,
		last:    last,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Next creates the next raw tick stamped with ts.
func (g *Generator) Next(ts int64) RawTick {
	slot := g.index / len(g.kinds)
	kind := g.kinds[g.index%len(g.kinds)]
	g.index = (g.index + 1) % (len(g.symbols) * len(g.kinds))

	tick := RawTick{
		Symbol:    g.symbols[slot],
		Kind:      kind,
		Timestamp: ts,
	}
	switch kind {
	case schema.KindBar:
		open := g.last[slot]
		high, low, price := open, open, open
		for range 4 {
			price = g.walk(price)
			high = math.Max(high, price)
			low = math.Min(low, price)
		}
		g.last[slot] = price
		tick.BarSize = g.cfg.BarSize
		tick.Open, tick.High, tick.Low, tick.Close = open, high, low, price
		tick.Volume = int64(g.cfg.Size * 4)
	case schema.KindQuote:
		mid := g.walk(g.last[slot])
		g.last[slot] = mid
		tick.Bid, tick.Ask = mid-g.cfg.Spread/2, mid+g.cfg.Spread/2
		tick.BidSize, tick.AskSize = g.cfg.Size, g.cfg.Size
	case schema.KindTrade:
		price := g.walk(g.last[slot])
		g.last[slot] = price
		tick.Price, tick.Size = price, g.cfg.Size
	}
	return tick
}

func (g *Generator) walk(price float64) float64 {
	next := price + g.cfg.Step*float64(g.rng.IntN(3)-1)
	return math.Max(next, g.cfg.Step)
}
