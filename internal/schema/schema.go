package schema

// SchemaVersion is the current journal schema version.
const SchemaVersion uint16 = 1

// EventType defines the category of an event stored in the journal.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventBar
	EventQuote
	EventTrade
	EventOrder
	EventExecutionReport
)

func (t EventType) String() string {
	switch t {
	case EventBar:
		return "Bar"
	case EventQuote:
		return "Quote"
	case EventTrade:
		return "Trade"
	case EventOrder:
		return "Order"
	case EventExecutionReport:
		return "ExecutionReport"
	default:
		return "Unknown"
	}
}

// EventHeader is the common metadata attached to every journaled event.
type EventHeader struct {
	Type    EventType
	Version uint16
	Source  uint16
	Flags   uint16
	Seq     uint64
	TsEvent int64
	TsRecv  int64
	TraceID uint64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, source uint16, seq uint64, tsEvent, tsRecv int64) EventHeader {
	return EventHeader{
		Type:    eventType,
		Version: SchemaVersion,
		Source:  source,
		Seq:     seq,
		TsEvent: tsEvent,
		TsRecv:  tsRecv,
	}
}
