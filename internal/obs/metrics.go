package obs

import (
	"sync/atomic"
	"time"

	"simexec/internal/schema"
)

const maxEventType = int(schema.EventExecutionReport)

// Metrics collects lightweight counters and latency stats. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	eventCounts  [maxEventType + 1]uint64
	reportCounts [schema.OrdStatusCount]uint64
	rejectCounts [schema.RejectReasonCount]uint64
	queueDrops   uint64
	queueClosed  uint64
	ringFull     uint64

	eventLatency    LatencyStats
	dispatchLatency LatencyStats
	submitLatency   LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts     map[schema.EventType]uint64
	ReportCounts    map[schema.OrdStatus]uint64
	RejectCounts    map[schema.RejectReason]uint64
	QueueDrops      uint64
	QueueClosed     uint64
	RingFull        uint64
	EventLatency    LatencySnapshot
	DispatchLatency LatencySnapshot
	SubmitLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent increments counters and tracks feed latency when timestamps are present.
func (m *Metrics) ObserveEvent(header schema.EventHeader) {
	if m == nil {
		return
	}
	m.IncEvent(header.Type)
	if header.TsEvent > 0 && header.TsRecv > 0 {
		delta := header.TsRecv - header.TsEvent
		if delta >= 0 {
			m.eventLatency.Observe(time.Duration(delta))
		}
	}
}

func (m *Metrics) IncEvent(t schema.EventType) {
	if m == nil {
		return
	}
	idx := int(t)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// ObserveReport counts an emitted execution report by status and reject reason.
func (m *Metrics) ObserveReport(r *schema.ExecutionReport) {
	if m == nil {
		return
	}
	m.IncEvent(schema.EventExecutionReport)
	if idx := int(r.Status); idx < len(m.reportCounts) {
		atomic.AddUint64(&m.reportCounts[idx], 1)
	}
	if r.Reason != schema.RejectReasonNone {
		if idx := int(r.Reason); idx < len(m.rejectCounts) {
			atomic.AddUint64(&m.rejectCounts[idx], 1)
		}
	}
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncRingFull records a producer that found its ring full.
func (m *Metrics) IncRingFull() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ringFull, 1)
}

// ObserveDispatch measures the time the executor spent on one event.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchLatency.Observe(d)
}

// ObserveSubmit measures order submission latency.
func (m *Metrics) ObserveSubmit(d time.Duration) {
	if m == nil {
		return
	}
	m.submitLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventType]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventType(i)] = v
		}
	}
	reportCounts := make(map[schema.OrdStatus]uint64)
	for i := range m.reportCounts {
		if v := atomic.LoadUint64(&m.reportCounts[i]); v > 0 {
			reportCounts[schema.OrdStatus(i)] = v
		}
	}
	rejectCounts := make(map[schema.RejectReason]uint64)
	for i := range m.rejectCounts {
		if v := atomic.LoadUint64(&m.rejectCounts[i]); v > 0 {
			rejectCounts[schema.RejectReason(i)] = v
		}
	}
	return Snapshot{
		EventCounts:     eventCounts,
		ReportCounts:    reportCounts,
		RejectCounts:    rejectCounts,
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		QueueClosed:     atomic.LoadUint64(&m.queueClosed),
		RingFull:        atomic.LoadUint64(&m.ringFull),
		EventLatency:    m.eventLatency.Snapshot(),
		DispatchLatency: m.dispatchLatency.Snapshot(),
		SubmitLatency:   m.submitLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		lo := atomic.LoadUint64(&l.min)
		if lo != 0 && nanos >= lo {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, lo, nanos) {
			break
		}
	}

	for {
		hi := atomic.LoadUint64(&l.max)
		if nanos <= hi {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, hi, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(atomic.LoadUint64(&l.sum) / count),
	}
}
