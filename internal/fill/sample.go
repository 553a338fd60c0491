package fill

import (
	"strings"

	"github.com/yanun0323/errors"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// BarTrigger selects how stop-family orders are triggered by a bar.
type BarTrigger uint8

const (
	// BarTriggerHighLow triggers when the stop lies anywhere inside the bar's
	// high/low range and fills at the stop, or at the open if the bar gapped
	// through it.
	BarTriggerHighLow BarTrigger = iota
	// BarTriggerClose only looks at the close.
	BarTriggerClose
)

func (m BarTrigger) String() string {
	if m == BarTriggerClose {
		return "close"
	}
	return "high-low"
}

func ParseBarTrigger(s string) (BarTrigger, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "high-low", "highlow":
		return BarTriggerHighLow, nil
	case "close":
		return BarTriggerClose, nil
	default:
		return 0, errors.Wrapf(exception.ErrInvalidConfig, "bar trigger: %q", s)
	}
}

// FillSize selects how much of an order a tick can fill.
type FillSize uint8

const (
	// FillSizeDisplayed caps a fill at the size shown by the quote or trade.
	FillSizeDisplayed FillSize = iota
	// FillSizeFull always fills the whole remaining quantity.
	FillSizeFull
)

func (f FillSize) String() string {
	if f == FillSizeFull {
		return "full"
	}
	return "displayed"
}

func ParseFillSize(s string) (FillSize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "displayed":
		return FillSizeDisplayed, nil
	case "full":
		return FillSizeFull, nil
	default:
		return 0, errors.Wrapf(exception.ErrInvalidConfig, "fill size: %q", s)
	}
}

// Sample is the order-side view of one tick: the reference price and the
// quantity available at it. Bars sampled in high/low mode also carry their
// range, which only stop triggers look at.
type Sample struct {
	Price float64
	// Qty is the available quantity; zero or less means unlimited.
	Qty float64

	Range bool
	Open  float64
	High  float64
	Low   float64
}

// quantity returns how much of o this sample can fill.
func (s Sample) quantity(o *schema.Order) float64 {
	leave := o.LeaveQty()
	if s.Qty > 0 && s.Qty < leave {
		return s.Qty
	}
	return leave
}

// FromPrice builds a sample at an explicit price. qty <= 0 fills the whole
// remaining quantity.
func FromPrice(price, qty float64) Sample {
	return Sample{Price: price, Qty: qty}
}

// FromQuote samples the side of q the order would trade against: the ask for
// buys, the bid for sells. It fails when that side is empty.
func FromQuote(o *schema.Order, q *schema.Quote, size FillSize) (Sample, bool) {
	price, qty := q.Bid, q.BidSize
	if o.Side.IsBuy() {
		price, qty = q.Ask, q.AskSize
	}
	if price <= 0 {
		return Sample{}, false
	}
	if size == FillSizeFull {
		qty = 0
	}
	return Sample{Price: price, Qty: qty}, true
}

func FromTrade(t *schema.Trade, size FillSize) (Sample, bool) {
	if t.Price <= 0 {
		return Sample{}, false
	}
	qty := t.Size
	if size == FillSizeFull {
		qty = 0
	}
	return Sample{Price: t.Price, Qty: qty}, true
}

// FromBar samples a bar at its close. A bar carries no executable size, so
// the sample is unlimited.
func FromBar(b *schema.Bar, trigger BarTrigger) (Sample, bool) {
	if b.Close <= 0 {
		return Sample{}, false
	}
	s := Sample{Price: b.Close}
	if trigger == BarTriggerHighLow && b.High > 0 && b.Low > 0 {
		s.Range = true
		s.Open, s.High, s.Low = b.Open, b.High, b.Low
	}
	return s, true
}
