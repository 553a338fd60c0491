package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simexec/internal/schema"
)

func TestBarKeepsSentinelSize(t *testing.T) {
	var bar schema.Bar
	bar.Reset()
	bar.InstrumentID = 7
	bar.Close = 101.25

	got, ok := DecodeBar(EncodeBar(nil, bar))
	require.True(t, ok)
	assert.Equal(t, bar, got)
	assert.Equal(t, int32(-1), got.Size)
}

func TestEncodeReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 128)
	out := EncodeQuote(buf, schema.Quote{InstrumentID: 1, Bid: 99.5, Ask: 100})
	assert.Len(t, out, QuotePayloadSize)
	assert.Same(t, &buf[:1][0], &out[0])

	trade, ok := DecodeTrade(EncodeTrade(out, schema.Trade{InstrumentID: 2, Price: 3.5, Size: 4}))
	require.True(t, ok)
	assert.Equal(t, 3.5, trade.Price)
}

func TestOrderCarriesFlagsAndText(t *testing.T) {
	order := schema.Order{
		ID:              42,
		InstrumentID:    3,
		Side:            schema.SideSellShort,
		Type:            schema.OrdTypeTrailingStop,
		TrailingOffset:  1.5,
		TrailingPercent: true,
		Triggered:       true,
		TrailAnchor:     110,
		OrdQty:          10,
		ExpireTime:      1_700_000_000_000_000_000,
		Text:            "gtt",
	}

	got, ok := DecodeOrder(EncodeOrder(nil, order))
	require.True(t, ok)
	assert.Equal(t, order, got)
}

func TestExecutionReportText(t *testing.T) {
	report := schema.ExecutionReport{
		ID:        9,
		OrderID:   4,
		Status:    schema.OrdStatusRejected,
		Reason:    schema.RejectReasonPriceBand,
		LastPrice: 0,
		Text:      "price band",
	}
	payload := EncodeExecutionReport(nil, report)
	assert.Len(t, payload, ExecutionReportPayloadSize+2+len(report.Text))

	got, ok := DecodeExecutionReport(payload)
	require.True(t, ok)
	assert.Equal(t, report, got)

	long := report
	long.Text = strings.Repeat("x", maxTextLen+10)
	got, ok = DecodeExecutionReport(EncodeExecutionReport(nil, long))
	require.True(t, ok)
	assert.Len(t, got.Text, maxTextLen)
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	_, ok := DecodeBar(make([]byte, BarPayloadSize-1))
	assert.False(t, ok)

	payload := EncodeOrder(nil, schema.Order{ID: 1, Text: "abc"})
	_, ok = DecodeOrder(payload[:len(payload)-1])
	assert.False(t, ok)

	_, ok = DecodeExecutionReport(make([]byte, ExecutionReportPayloadSize))
	assert.False(t, ok)
}
