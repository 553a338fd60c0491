package mdg

import (
	"github.com/yanun0323/errors"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// RawTick is a market data input keyed by symbol rather than instrument id.
// Only the fields of Kind are meaningful.
type RawTick struct {
	Symbol    string
	Kind      schema.Kind
	Timestamp int64

	BarSize int32
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  int64

	Bid     float64
	BidSize float64
	Ask     float64
	AskSize float64

	Price float64
	Size  float64
}

// Normalizer maps raw ticks to schema.MarketData.
type Normalizer struct {
	reg *schema.Registry
}

// NewNormalizer creates a normalizer for a registry.
func NewNormalizer(reg *schema.Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// Normalize resolves the symbol and writes the tick into md, which is reset
// first.
func (n *Normalizer) Normalize(tick RawTick, md *schema.MarketData) error {
	if n.reg == nil {
		return errors.Wrap(exception.ErrNilInstance, "registry")
	}
	id, ok := n.reg.InstrumentIDBySymbol(tick.Symbol)
	if !ok {
		return errors.Wrapf(exception.ErrUnknownInstrument, "symbol %s", tick.Symbol)
	}

	md.Reset()
	switch tick.Kind {
	case schema.KindBar:
		md.SetBar(schema.Bar{
			InstrumentID: id,
			Timestamp:    tick.Timestamp,
			Size:         tick.BarSize,
			Open:         tick.Open,
			High:         tick.High,
			Low:          tick.Low,
			Close:        tick.Close,
			Volume:       tick.Volume,
		})
	case schema.KindQuote:
		md.SetQuote(schema.Quote{
			InstrumentID: id,
			Timestamp:    tick.Timestamp,
			Bid:          tick.Bid,
			BidSize:      tick.BidSize,
			Ask:          tick.Ask,
			AskSize:      tick.AskSize,
		})
	case schema.KindTrade:
		md.SetTrade(schema.Trade{
			InstrumentID: id,
			Timestamp:    tick.Timestamp,
			Price:        tick.Price,
			Size:         tick.Size,
		})
	default:
		return errors.Wrapf(exception.ErrEmptyMarketData, "kind %d", tick.Kind)
	}
	return nil
}
