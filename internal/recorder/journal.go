package recorder

import (
	"context"
	"sync/atomic"

	"simexec/internal/clock"
	"simexec/internal/codec"
	"simexec/internal/obs"
	"simexec/internal/schema"
)

// Journal encodes domain events and appends them to a Writer. Sequence
// numbers start at 1 and follow append order across all event types.
type Journal struct {
	w       *Writer
	source  uint16
	clock   clock.Clock
	trace   *obs.TraceGenerator
	metrics *obs.Metrics
	block   bool
	seq     atomic.Uint64
}

// JournalOptions are the optional collaborators of a Journal.
type JournalOptions struct {
	Source  uint16
	Clock   clock.Clock
	Trace   *obs.TraceGenerator
	Metrics *obs.Metrics
	// Block waits for writer queue space instead of failing with
	// ErrJournalQueueFull. Offline producers set it.
	Block bool
}

func NewJournal(w *Writer, opts JournalOptions) *Journal {
	if opts.Clock == nil {
		opts.Clock = clock.Wall{}
	}
	return &Journal{
		w:       w,
		source:  opts.Source,
		clock:   opts.Clock,
		trace:   opts.Trace,
		metrics: opts.Metrics,
		block:   opts.Block,
	}
}

// Seq returns the last assigned sequence number.
func (j *Journal) Seq() uint64 {
	return j.seq.Load()
}

func (j *Journal) AppendBar(bar schema.Bar) error {
	return j.append(schema.EventBar, bar.Timestamp, codec.EncodeBar(nil, bar))
}

func (j *Journal) AppendQuote(quote schema.Quote) error {
	return j.append(schema.EventQuote, quote.Timestamp, codec.EncodeQuote(nil, quote))
}

func (j *Journal) AppendTrade(trade schema.Trade) error {
	return j.append(schema.EventTrade, trade.Timestamp, codec.EncodeTrade(nil, trade))
}

// AppendMarketData journals every populated variant of md in dispatch order.
func (j *Journal) AppendMarketData(md *schema.MarketData) error {
	if md.Kinds.Has(schema.KindBar) {
		if err := j.AppendBar(md.Bar); err != nil {
			return err
		}
	}
	if md.Kinds.Has(schema.KindQuote) {
		if err := j.AppendQuote(md.Quote); err != nil {
			return err
		}
	}
	if md.Kinds.Has(schema.KindTrade) {
		if err := j.AppendTrade(md.Trade); err != nil {
			return err
		}
	}
	return nil
}

// AppendOrder journals an order as submitted.
func (j *Journal) AppendOrder(order schema.Order) error {
	return j.append(schema.EventOrder, j.clock.Now(), codec.EncodeOrder(nil, order))
}

func (j *Journal) AppendReport(report schema.ExecutionReport) error {
	return j.append(schema.EventExecutionReport, report.TransactTime, codec.EncodeExecutionReport(nil, report))
}

// OnExecutionReport journals a report and counts it as dropped when the
// writer cannot take it.
func (j *Journal) OnExecutionReport(report schema.ExecutionReport) {
	if err := j.AppendReport(report); err != nil {
		j.metrics.IncQueueDrop()
	}
}

func (j *Journal) append(t schema.EventType, tsEvent int64, payload []byte) error {
	header := schema.NewHeader(t, j.source, j.seq.Add(1), tsEvent, j.clock.Now())
	header.TraceID = j.trace.Next()
	if j.block {
		return j.w.Append(context.Background(), header, payload)
	}
	return j.w.TryAppend(header, payload)
}
