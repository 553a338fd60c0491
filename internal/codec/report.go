package codec

import (
	"encoding/binary"

	"simexec/internal/schema"
)

// ExecutionReportPayloadSize is the fixed part of a report payload; the text follows.
const ExecutionReportPayloadSize = 88

// EncodeExecutionReport serializes a report followed by its length-prefixed text.
func EncodeExecutionReport(dst []byte, r schema.ExecutionReport) []byte {
	dst = sized(dst, ExecutionReportPayloadSize)

	binary.LittleEndian.PutUint64(dst[0:8], uint64(r.ID))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(r.OrderID))
	binary.LittleEndian.PutUint32(dst[16:20], uint32(r.InstrumentID))
	dst[20] = uint8(r.Type)
	dst[21] = uint8(r.Side)
	dst[22] = uint8(r.Status)
	dst[23] = uint8(r.Reason)
	putFloat(dst[24:32], r.LimitPrice)
	putFloat(dst[32:40], r.StopPrice)
	putFloat(dst[40:48], r.OrdQty)
	putFloat(dst[48:56], r.FilledQty)
	putFloat(dst[56:64], r.AvgPrice)
	putFloat(dst[64:72], r.LastQty)
	putFloat(dst[72:80], r.LastPrice)
	binary.LittleEndian.PutUint64(dst[80:88], uint64(r.TransactTime))

	return appendText(dst, r.Text)
}

// DecodeExecutionReport parses a report payload.
func DecodeExecutionReport(src []byte) (schema.ExecutionReport, bool) {
	if len(src) < ExecutionReportPayloadSize {
		return schema.ExecutionReport{}, false
	}
	text, ok := readText(src[ExecutionReportPayloadSize:])
	if !ok {
		return schema.ExecutionReport{}, false
	}
	return schema.ExecutionReport{
		ID:           schema.ReportID(binary.LittleEndian.Uint64(src[0:8])),
		OrderID:      schema.OrderID(binary.LittleEndian.Uint64(src[8:16])),
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[16:20])),
		Type:         schema.OrdType(src[20]),
		Side:         schema.Side(src[21]),
		Status:       schema.OrdStatus(src[22]),
		Reason:       schema.RejectReason(src[23]),
		LimitPrice:   float(src[24:32]),
		StopPrice:    float(src[32:40]),
		OrdQty:       float(src[40:48]),
		FilledQty:    float(src[48:56]),
		AvgPrice:     float(src[56:64]),
		LastQty:      float(src[64:72]),
		LastPrice:    float(src[72:80]),
		TransactTime: int64(binary.LittleEndian.Uint64(src[80:88])),
		Text:         text,
	}, true
}
