package sim

import (
	"github.com/yanun0323/logs"

	"simexec/internal/schema"
)

// reportGenerator is the fill engine's view of the executor. It only runs
// inside an evaluation, with the order's book locked.
type reportGenerator struct {
	e *Executor
}

// Execute applies a fill of qty at price to o, reports it and removes o from
// its book once it is fully filled. qty is clamped to the remaining
// quantity.
func (g reportGenerator) Execute(o *schema.Order, price, qty float64) bool {
	if o.IsDone() || !(qty > 0) {
		return false
	}

	status := schema.OrdStatusPartiallyFilled
	if leave := o.LeaveQty(); qty >= leave {
		qty, status = leave, schema.OrdStatusFilled
	}

	filled := o.FilledQty + qty
	if filled != 0 {
		o.AvgPrice = (o.AvgPrice*o.FilledQty + price*qty) / filled
	}
	o.FilledQty, o.Status = filled, status

	g.e.emit(g.e.newReport(o, qty, price))

	if status != schema.OrdStatusFilled {
		return false
	}
	if b := g.e.bookFor(o.InstrumentID, false); b != nil {
		_ = g.e.removeLocked(b, o)
	}
	return true
}

// newReport builds the report describing o after a fill of lastQty at
// lastPrice, or an acknowledgement when lastQty is zero.
func (e *Executor) newReport(o *schema.Order, lastQty, lastPrice float64) schema.ExecutionReport {
	return schema.ExecutionReport{
		ID:           schema.ReportID(e.nextReportID.Add(1) - 1),
		OrderID:      o.ID,
		InstrumentID: o.InstrumentID,
		Type:         o.Type,
		Side:         o.Side,
		LimitPrice:   o.LimitPrice,
		StopPrice:    o.StopPrice,
		OrdQty:       o.OrdQty,
		FilledQty:    o.FilledQty,
		AvgPrice:     o.AvgPrice,
		LastQty:      lastQty,
		LastPrice:    lastPrice,
		Status:       o.Status,
		TransactTime: e.clock.Now(),
		Text:         o.Text,
	}
}

func (e *Executor) emit(r schema.ExecutionReport) {
	e.metrics.ObserveReport(&r)
	e.om.OnExecutionReport(r)
}

// reject reports o as Rejected. A rejected order never rests.
func (e *Executor) reject(o *schema.Order, reason schema.RejectReason) {
	o.Status = schema.OrdStatusRejected
	r := e.newReport(o, 0, 0)
	r.Reason = reason
	r.Text = reason.String()
	logs.Infof("reject order id: %d, instrument: %d, reason: %s", o.ID, o.InstrumentID, reason)
	e.emit(r)
}

// rejectDuplicate rejects a submission whose id is already resting. The
// report is built from a copy so the resting order is left untouched.
func (e *Executor) rejectDuplicate(o *schema.Order) {
	dup := *o
	dup.FilledQty, dup.AvgPrice = 0, 0
	e.reject(&dup, schema.RejectReasonDuplicate)
}

// cancelLocked cancels a resting order and reports it. The caller holds b.mu.
func (e *Executor) cancelLocked(b *book, o *schema.Order, text string) {
	o.Status = schema.OrdStatusCancelled
	_ = e.removeLocked(b, o)

	r := e.newReport(o, 0, 0)
	r.Text = text
	e.emit(r)
}
