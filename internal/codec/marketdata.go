package codec

import (
	"encoding/binary"

	"simexec/internal/schema"
)

const (
	BarPayloadSize   = 64
	QuotePayloadSize = 48
	TradePayloadSize = 32
)

// EncodeBar serializes a bar into a fixed-size payload.
func EncodeBar(dst []byte, bar schema.Bar) []byte {
	dst = sized(dst, BarPayloadSize)

	binary.LittleEndian.PutUint32(dst[0:4], uint32(bar.InstrumentID))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(bar.Size))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(bar.Timestamp))
	putFloat(dst[16:24], bar.Open)
	putFloat(dst[24:32], bar.High)
	putFloat(dst[32:40], bar.Low)
	putFloat(dst[40:48], bar.Close)
	binary.LittleEndian.PutUint64(dst[48:56], uint64(bar.Volume))
	binary.LittleEndian.PutUint64(dst[56:64], uint64(bar.OpenInterest))

	return dst
}

// DecodeBar parses a fixed-size bar payload.
func DecodeBar(src []byte) (schema.Bar, bool) {
	if len(src) < BarPayloadSize {
		return schema.Bar{}, false
	}
	return schema.Bar{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		Size:         int32(binary.LittleEndian.Uint32(src[4:8])),
		Timestamp:    int64(binary.LittleEndian.Uint64(src[8:16])),
		Open:         float(src[16:24]),
		High:         float(src[24:32]),
		Low:          float(src[32:40]),
		Close:        float(src[40:48]),
		Volume:       int64(binary.LittleEndian.Uint64(src[48:56])),
		OpenInterest: int64(binary.LittleEndian.Uint64(src[56:64])),
	}, true
}

// EncodeQuote serializes a quote into a fixed-size payload.
func EncodeQuote(dst []byte, quote schema.Quote) []byte {
	dst = sized(dst, QuotePayloadSize)

	binary.LittleEndian.PutUint32(dst[0:4], uint32(quote.InstrumentID))
	binary.LittleEndian.PutUint32(dst[4:8], 0)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(quote.Timestamp))
	putFloat(dst[16:24], quote.Bid)
	putFloat(dst[24:32], quote.BidSize)
	putFloat(dst[32:40], quote.Ask)
	putFloat(dst[40:48], quote.AskSize)

	return dst
}

// DecodeQuote parses a fixed-size quote payload.
func DecodeQuote(src []byte) (schema.Quote, bool) {
	if len(src) < QuotePayloadSize {
		return schema.Quote{}, false
	}
	return schema.Quote{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		Timestamp:    int64(binary.LittleEndian.Uint64(src[8:16])),
		Bid:          float(src[16:24]),
		BidSize:      float(src[24:32]),
		Ask:          float(src[32:40]),
		AskSize:      float(src[40:48]),
	}, true
}

// EncodeTrade serializes a trade into a fixed-size payload.
func EncodeTrade(dst []byte, trade schema.Trade) []byte {
	dst = sized(dst, TradePayloadSize)

	binary.LittleEndian.PutUint32(dst[0:4], uint32(trade.InstrumentID))
	binary.LittleEndian.PutUint32(dst[4:8], 0)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(trade.Timestamp))
	putFloat(dst[16:24], trade.Price)
	putFloat(dst[24:32], trade.Size)

	return dst
}

// DecodeTrade parses a fixed-size trade payload.
func DecodeTrade(src []byte) (schema.Trade, bool) {
	if len(src) < TradePayloadSize {
		return schema.Trade{}, false
	}
	return schema.Trade{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		Timestamp:    int64(binary.LittleEndian.Uint64(src[8:16])),
		Price:        float(src[16:24]),
		Size:         float(src[24:32]),
	}, true
}
