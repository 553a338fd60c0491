package schema

// Kind selects a market data variant.
type Kind uint8

const (
	KindBar Kind = 1 << iota
	KindQuote
	KindTrade
)

// Kinds is the bit-set of variants populated in a MarketData slot.
type Kinds uint8

func (k Kinds) Has(kind Kind) bool {
	return uint8(k)&uint8(kind) != 0
}

func (k Kinds) With(kind Kind) Kinds {
	return Kinds(uint8(k) | uint8(kind))
}

// Bar is an OHLC summary over Size seconds.
type Bar struct {
	InstrumentID InstrumentID
	Timestamp    int64
	Size         int32
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	OpenInterest int64
}

// Reset clears the bar to its sentinel values.
func (b *Bar) Reset() {
	*b = Bar{Size: -1}
}

// Quote is a top-of-book update.
type Quote struct {
	InstrumentID InstrumentID
	Timestamp    int64
	Bid          float64
	BidSize      float64
	Ask          float64
	AskSize      float64
}

func (q *Quote) Reset() {
	*q = Quote{}
}

// SameAsk reports whether the ask side equals other's.
func (q *Quote) SameAsk(other *Quote) bool {
	return q.Ask == other.Ask && q.AskSize == other.AskSize
}

// SameBid reports whether the bid side equals other's.
func (q *Quote) SameBid(other *Quote) bool {
	return q.Bid == other.Bid && q.BidSize == other.BidSize
}

// Trade is a last-sale print.
type Trade struct {
	InstrumentID InstrumentID
	Timestamp    int64
	Price        float64
	Size         float64
}

func (t *Trade) Reset() {
	*t = Trade{}
}

// MarketData is a reusable ring slot. Kinds selects which of Bar, Quote and
// Trade are populated; the storage of the others is stale and must be ignored.
//
// A slot is overwritten when the ring wraps around, so consumers that keep
// data past their callback must take a Snapshot.
type MarketData struct {
	InstrumentID InstrumentID
	Timestamp    int64
	Kinds        Kinds

	Bar   Bar
	Quote Quote
	Trade Trade
}

// Reset clears every variant and the kind set before the slot is refilled.
func (m *MarketData) Reset() {
	m.InstrumentID = 0
	m.Timestamp = 0
	m.Kinds = 0
	m.Bar.Reset()
	m.Quote.Reset()
	m.Trade.Reset()
}

func (m *MarketData) SetBar(b Bar) {
	m.InstrumentID, m.Timestamp = b.InstrumentID, b.Timestamp
	m.Bar = b
	m.Kinds = m.Kinds.With(KindBar)
}

func (m *MarketData) SetQuote(q Quote) {
	m.InstrumentID, m.Timestamp = q.InstrumentID, q.Timestamp
	m.Quote = q
	m.Kinds = m.Kinds.With(KindQuote)
}

func (m *MarketData) SetTrade(t Trade) {
	m.InstrumentID, m.Timestamp = t.InstrumentID, t.Timestamp
	m.Trade = t
	m.Kinds = m.Kinds.With(KindTrade)
}

// CopyFrom deep-copies src into m.
func (m *MarketData) CopyFrom(src *MarketData) {
	*m = *src
}

// Snapshot returns a copy that outlives the slot's reuse window.
func (m *MarketData) Snapshot() MarketData {
	return *m
}

// MarketDataHandler receives the variants of a market data event.
type MarketDataHandler interface {
	OnBar(bar *Bar)
	OnQuote(quote *Quote)
	OnTrade(trade *Trade)
}

// Dispatch delivers every populated variant of m to h in bar, quote, trade order.
func Dispatch(m *MarketData, h MarketDataHandler) {
	if m.Kinds.Has(KindBar) {
		h.OnBar(&m.Bar)
	}
	if m.Kinds.Has(KindQuote) {
		h.OnQuote(&m.Quote)
	}
	if m.Kinds.Has(KindTrade) {
		h.OnTrade(&m.Trade)
	}
}
