package codec

import (
	"encoding/binary"

	"simexec/internal/schema"
)

// OrderPayloadSize is the fixed part of an order payload; the text follows.
const OrderPayloadSize = 80

const (
	orderFlagTrailingPercent uint8 = 1 << iota
	orderFlagTriggered
)

// EncodeOrder serializes an order followed by its length-prefixed text.
func EncodeOrder(dst []byte, order schema.Order) []byte {
	dst = sized(dst, OrderPayloadSize)

	var flags uint8
	if order.TrailingPercent {
		flags |= orderFlagTrailingPercent
	}
	if order.Triggered {
		flags |= orderFlagTriggered
	}

	binary.LittleEndian.PutUint64(dst[0:8], uint64(order.ID))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(order.InstrumentID))
	dst[12] = uint8(order.Side)
	dst[13] = uint8(order.Type)
	dst[14] = uint8(order.Status)
	dst[15] = flags
	putFloat(dst[16:24], order.LimitPrice)
	putFloat(dst[24:32], order.StopPrice)
	putFloat(dst[32:40], order.TrailingOffset)
	putFloat(dst[40:48], order.OrdQty)
	putFloat(dst[48:56], order.FilledQty)
	putFloat(dst[56:64], order.AvgPrice)
	binary.LittleEndian.PutUint64(dst[64:72], uint64(order.ExpireTime))
	putFloat(dst[72:80], order.TrailAnchor)

	return appendText(dst, order.Text)
}

// DecodeOrder parses an order payload.
func DecodeOrder(src []byte) (schema.Order, bool) {
	if len(src) < OrderPayloadSize {
		return schema.Order{}, false
	}
	text, ok := readText(src[OrderPayloadSize:])
	if !ok {
		return schema.Order{}, false
	}
	flags := src[15]
	return schema.Order{
		ID:              schema.OrderID(binary.LittleEndian.Uint64(src[0:8])),
		InstrumentID:    schema.InstrumentID(binary.LittleEndian.Uint32(src[8:12])),
		Side:            schema.Side(src[12]),
		Type:            schema.OrdType(src[13]),
		Status:          schema.OrdStatus(src[14]),
		TrailingPercent: flags&orderFlagTrailingPercent != 0,
		Triggered:       flags&orderFlagTriggered != 0,
		LimitPrice:      float(src[16:24]),
		StopPrice:       float(src[24:32]),
		TrailingOffset:  float(src[32:40]),
		OrdQty:          float(src[40:48]),
		FilledQty:       float(src[48:56]),
		AvgPrice:        float(src[56:64]),
		ExpireTime:      int64(binary.LittleEndian.Uint64(src[64:72])),
		TrailAnchor:     float(src[72:80]),
		Text:            text,
	}, true
}
