package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	calls []string
}

func (h *recordingHandler) OnBar(*Bar)     { h.calls = append(h.calls, "bar") }
func (h *recordingHandler) OnQuote(*Quote) { h.calls = append(h.calls, "quote") }
func (h *recordingHandler) OnTrade(*Trade) { h.calls = append(h.calls, "trade") }

func TestMarketDataResetClearsEveryVariant(t *testing.T) {
	var md MarketData
	md.SetBar(Bar{InstrumentID: 3, Timestamp: 10, Size: 60, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 7})
	md.SetQuote(Quote{InstrumentID: 3, Timestamp: 10, Bid: 1, Ask: 2})

	md.Reset()

	assert.Equal(t, Kinds(0), md.Kinds)
	assert.Equal(t, InstrumentID(0), md.InstrumentID)
	assert.Equal(t, int32(-1), md.Bar.Size)
	assert.Zero(t, md.Bar.Close)
	assert.Zero(t, md.Quote.Ask)
	assert.Zero(t, md.Trade.Price)
}

func TestMarketDataSnapshotOutlivesSlot(t *testing.T) {
	var slot MarketData
	slot.Reset()
	slot.SetTrade(Trade{InstrumentID: 1, Timestamp: 5, Price: 101.5, Size: 3})

	kept := slot.Snapshot()
	slot.Reset()
	slot.SetTrade(Trade{InstrumentID: 2, Timestamp: 6, Price: 99, Size: 1})

	require.True(t, kept.Kinds.Has(KindTrade))
	assert.Equal(t, InstrumentID(1), kept.InstrumentID)
	assert.Equal(t, 101.5, kept.Trade.Price)

	var copied MarketData
	copied.CopyFrom(&slot)
	assert.Equal(t, slot, copied)
}

func TestDispatchOrder(t *testing.T) {
	testCases := []struct {
		desc     string
		fill     func(*MarketData)
		expected []string
	}{
		{"empty", func(*MarketData) {}, nil},
		{"quote only", func(m *MarketData) { m.SetQuote(Quote{Bid: 1, Ask: 2}) }, []string{"quote"}},
		{
			"all variants",
			func(m *MarketData) {
				m.SetTrade(Trade{Price: 1})
				m.SetQuote(Quote{Bid: 1})
				m.SetBar(Bar{Close: 1})
			},
			[]string{"bar", "quote", "trade"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			var md MarketData
			md.Reset()
			tc.fill(&md)

			h := &recordingHandler{}
			Dispatch(&md, h)
			assert.Equal(t, tc.expected, h.calls)
		})
	}
}

func TestQuoteSideComparison(t *testing.T) {
	a := Quote{Bid: 10, BidSize: 5, Ask: 11, AskSize: 7}
	b := a
	b.BidSize = 6

	assert.True(t, a.SameAsk(&b))
	assert.False(t, a.SameBid(&b))
}

func TestSideSensitivity(t *testing.T) {
	assert.True(t, SideBuy.AskSensitive())
	assert.True(t, SideBuyMinus.AskSensitive())
	assert.False(t, SideBuy.BidSensitive())
	assert.True(t, SideSell.BidSensitive())
	assert.True(t, SideSellShort.BidSensitive())
	assert.False(t, SideSellShort.AskSensitive())
}

func TestRegistryVenueSymbol(t *testing.T) {
	reg := NewRegistry()
	venueID, err := reg.AddVenue("SEHK")
	require.NoError(t, err)

	id, err := reg.AddInstrument("HSI", venueID, "HSI.HK")
	require.NoError(t, err)

	sym, ok := reg.VenueSymbol(id)
	require.True(t, ok)
	assert.Equal(t, "HSI.HK", sym)

	_, err = reg.AddInstrument("HSI", venueID, "")
	assert.Error(t, err)

	_, err = reg.AddInstrument("AAPL", 9, "")
	assert.Error(t, err)
}
