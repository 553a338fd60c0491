package oms

import (
	"github.com/yanun0323/errors"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// OrderView is the order manager's picture of an order, rebuilt from
// execution reports only.
type OrderView struct {
	ID           schema.OrderID
	InstrumentID schema.InstrumentID
	Side         schema.Side
	Type         schema.OrdType
	OrdQty       float64
	FilledQty    float64
	AvgPrice     float64
	Status       schema.OrdStatus
	LastReport   schema.ReportID
	Reports      int
}

// LeaveQty returns the open quantity.
func (o *OrderView) LeaveQty() float64 {
	if o.Status.IsTerminal() {
		return 0
	}
	return o.OrdQty - o.FilledQty
}

// StateMachine applies execution reports and refuses the ones that would
// break an order's lifecycle: a report after a terminal status, a report id
// that does not increase, a filled quantity that shrinks or exceeds the
// order quantity.
type StateMachine struct {
	orders map[schema.OrderID]*OrderView
}

// NewStateMachine creates an empty state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{orders: make(map[schema.OrderID]*OrderView)}
}

// Order returns the current order state.
func (m *StateMachine) Order(id schema.OrderID) (*OrderView, bool) {
	o, ok := m.orders[id]
	return o, ok
}

func (m *StateMachine) Len() int {
	return len(m.orders)
}

// Apply folds r into its order. The first report of an order creates it.
func (m *StateMachine) Apply(r schema.ExecutionReport) (*OrderView, error) {
	o, ok := m.orders[r.OrderID]
	if !ok {
		o = &OrderView{
			ID:           r.OrderID,
			InstrumentID: r.InstrumentID,
			Side:         r.Side,
			Type:         r.Type,
			LastReport:   r.ID,
		}
		m.orders[r.OrderID] = o
	} else {
		if o.Status.IsTerminal() {
			return o, errors.Wrapf(exception.ErrReportTransition, "order id: %d, from: %s, to: %s", o.ID, o.Status, r.Status)
		}
		if r.ID <= o.LastReport {
			return o, errors.Wrapf(exception.ErrReportOutOfOrder, "order id: %d, last: %d, got: %d", o.ID, o.LastReport, r.ID)
		}
		if r.FilledQty < o.FilledQty {
			return o, errors.Wrapf(exception.ErrReportRegression, "order id: %d, filled: %v, got: %v", o.ID, o.FilledQty, r.FilledQty)
		}
	}
	if r.FilledQty > r.OrdQty {
		return o, errors.Wrapf(exception.ErrReportOverfill, "order id: %d, filled: %v, ordered: %v", o.ID, r.FilledQty, r.OrdQty)
	}
	if !validTransition(o.Status, r.Status, o.Reports == 0) {
		return o, errors.Wrapf(exception.ErrReportTransition, "order id: %d, from: %s, to: %s", o.ID, o.Status, r.Status)
	}

	o.OrdQty = r.OrdQty
	o.FilledQty = r.FilledQty
	o.AvgPrice = r.AvgPrice
	o.Status = r.Status
	o.LastReport = r.ID
	o.Reports++
	return o, nil
}

func validTransition(from, to schema.OrdStatus, first bool) bool {
	if first {
		return to == schema.OrdStatusNew || to == schema.OrdStatusRejected
	}
	switch from {
	case schema.OrdStatusNew:
		return to != schema.OrdStatusRejected
	case schema.OrdStatusPartiallyFilled:
		return to != schema.OrdStatusNew && to != schema.OrdStatusRejected
	default:
		return false
	}
}
