package schema

// InstrumentID is the numeric identifier of a tradable instrument.
type InstrumentID uint32

// OrderID identifies a client order.
type OrderID uint64

// ReportID identifies an execution report within one executor instance.
type ReportID uint64

// Side describes order direction.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
	SideBuyMinus
	SideSellPlus
	SideSellShort
)

// IsBuy reports whether the side adds to a position.
func (s Side) IsBuy() bool {
	return s == SideBuy || s == SideBuyMinus
}

// AskSensitive reports whether a change of the ask can fill the order.
func (s Side) AskSensitive() bool {
	return s == SideBuy || s == SideBuyMinus
}

// BidSensitive reports whether a change of the bid can fill the order.
func (s Side) BidSensitive() bool {
	return s == SideSell || s == SideSellShort || s == SideSellPlus
}

func (s Side) IsAvailable() bool {
	return s > SideUnknown && s <= SideSellShort
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	case SideBuyMinus:
		return "BuyMinus"
	case SideSellPlus:
		return "SellPlus"
	case SideSellShort:
		return "SellShort"
	default:
		return "Unknown"
	}
}

// OrdType describes order type.
type OrdType uint8

const (
	OrdTypeUnknown OrdType = iota
	OrdTypeMarket
	OrdTypeLimit
	OrdTypeStop
	OrdTypeStopLimit
	OrdTypeTrailingStop

	OrdTypeCount
)

func (t OrdType) IsAvailable() bool {
	return t > OrdTypeUnknown && t < OrdTypeCount
}

func (t OrdType) String() string {
	switch t {
	case OrdTypeMarket:
		return "Market"
	case OrdTypeLimit:
		return "Limit"
	case OrdTypeStop:
		return "Stop"
	case OrdTypeStopLimit:
		return "StopLimit"
	case OrdTypeTrailingStop:
		return "TrailingStop"
	default:
		return "Unknown"
	}
}

// OrdStatus describes the lifecycle state of an order.
type OrdStatus uint8

const (
	OrdStatusNew OrdStatus = iota
	OrdStatusPartiallyFilled
	OrdStatusFilled
	OrdStatusCancelled
	OrdStatusRejected

	OrdStatusCount
)

// IsTerminal reports whether no further fills are possible.
func (s OrdStatus) IsTerminal() bool {
	switch s {
	case OrdStatusFilled, OrdStatusCancelled, OrdStatusRejected:
		return true
	default:
		return false
	}
}

func (s OrdStatus) String() string {
	switch s {
	case OrdStatusNew:
		return "New"
	case OrdStatusPartiallyFilled:
		return "PartiallyFilled"
	case OrdStatusFilled:
		return "Filled"
	case OrdStatusCancelled:
		return "Cancelled"
	case OrdStatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// RejectReason is a coarse reason code carried by Rejected reports.
type RejectReason uint8

const (
	RejectReasonNone RejectReason = iota
	RejectReasonInvalidQty
	RejectReasonInvalidPrice
	RejectReasonInvalidSide
	RejectReasonInvalidType
	RejectReasonKillSwitch
	RejectReasonMaxQty
	RejectReasonMaxNotional
	RejectReasonPriceBand
	RejectReasonRateLimit
	RejectReasonPositionLimit
	RejectReasonDuplicate

	RejectReasonCount
)

func (r RejectReason) String() string {
	switch r {
	case RejectReasonNone:
		return "None"
	case RejectReasonInvalidQty:
		return "InvalidQty"
	case RejectReasonInvalidPrice:
		return "InvalidPrice"
	case RejectReasonInvalidSide:
		return "InvalidSide"
	case RejectReasonInvalidType:
		return "InvalidType"
	case RejectReasonKillSwitch:
		return "KillSwitch"
	case RejectReasonMaxQty:
		return "MaxQty"
	case RejectReasonMaxNotional:
		return "MaxNotional"
	case RejectReasonPriceBand:
		return "PriceBand"
	case RejectReasonRateLimit:
		return "RateLimit"
	case RejectReasonPositionLimit:
		return "PositionLimit"
	case RejectReasonDuplicate:
		return "Duplicate"
	default:
		return "Unknown"
	}
}

// Order is a client order handed to the executor.
//
// After submission the order is owned by the executor and mutated only
// through the fill pipeline. FilledQty never exceeds OrdQty.
type Order struct {
	ID              OrderID
	InstrumentID    InstrumentID
	Side            Side
	Type            OrdType
	LimitPrice      float64
	StopPrice       float64
	TrailingOffset  float64
	TrailingPercent bool
	OrdQty          float64
	FilledQty       float64
	AvgPrice        float64
	Status          OrdStatus
	Text            string

	// ExpireTime is the good-till-time deadline in unix nanoseconds, 0 means none.
	ExpireTime int64

	// Triggered is set once a stop condition has been met.
	Triggered bool
	// TrailAnchor is the best price seen in the order's favor.
	TrailAnchor float64
}

// LeaveQty returns the quantity still open.
func (o *Order) LeaveQty() float64 {
	return o.OrdQty - o.FilledQty
}

// IsDone reports whether the order reached a terminal status.
func (o *Order) IsDone() bool {
	return o.Status.IsTerminal()
}

// ExecutionReport is emitted once per acknowledgement or fill decision.
type ExecutionReport struct {
	ID           ReportID
	OrderID      OrderID
	InstrumentID InstrumentID
	Type         OrdType
	Side         Side
	LimitPrice   float64
	StopPrice    float64
	OrdQty       float64
	FilledQty    float64
	AvgPrice     float64
	LastQty      float64
	LastPrice    float64
	Status       OrdStatus
	Reason       RejectReason
	TransactTime int64
	Text         string
}

// LeaveQty returns the open quantity after this report.
func (r ExecutionReport) LeaveQty() float64 {
	if r.Status.IsTerminal() {
		return 0
	}
	return r.OrdQty - r.FilledQty
}

// CancelRequest asks for a resting order to be cancelled.
type CancelRequest struct {
	OrderID      OrderID
	InstrumentID InstrumentID
	Text         string
}

// ReplaceRequest asks for a resting order to be amended.
// Zero prices keep the current value.
type ReplaceRequest struct {
	OrderID      OrderID
	InstrumentID InstrumentID
	OrdQty       float64
	LimitPrice   float64
	StopPrice    float64
}

// StatusRequest asks for the current state of an order.
type StatusRequest struct {
	OrderID      OrderID
	InstrumentID InstrumentID
}
