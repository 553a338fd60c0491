package state

import (
	"math"
	"sync"

	"simexec/internal/schema"
)

// Position is the net holding of one instrument. Qty is signed, short
// positions are negative. AvgCost is the average price of the open Qty.
type Position struct {
	Qty      float64 `json:"qty"`
	AvgCost  float64 `json:"avgCost"`
	Realized float64 `json:"realized"`
}

// PositionReducer folds execution reports into positions. It is safe for
// concurrent use.
type PositionReducer struct {
	mu        sync.RWMutex
	positions map[schema.InstrumentID]Position
}

// NewPositionReducer creates an empty reducer.
func NewPositionReducer() *PositionReducer {
	return &PositionReducer{positions: make(map[schema.InstrumentID]Position)}
}

// ApplyReport applies the fill carried by a report and returns the new
// position. Reports without a fill leave the position untouched.
func (r *PositionReducer) ApplyReport(report schema.ExecutionReport) Position {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.positions[report.InstrumentID]
	if report.LastQty <= 0 {
		return pos
	}
	qty := report.LastQty
	if !report.Side.IsBuy() {
		qty = -qty
	}
	pos = apply(pos, qty, report.LastPrice)
	r.positions[report.InstrumentID] = pos
	return pos
}

// OnExecutionReport lets the reducer subscribe to an order manager.
func (r *PositionReducer) OnExecutionReport(report schema.ExecutionReport) {
	r.ApplyReport(report)
}

func apply(pos Position, qty, price float64) Position {
	if pos.Qty == 0 || math.Signbit(pos.Qty) == math.Signbit(qty) {
		open := math.Abs(pos.Qty)
		pos.AvgCost = (open*pos.AvgCost + math.Abs(qty)*price) / (open + math.Abs(qty))
		pos.Qty += qty
		return pos
	}

	closing := math.Min(math.Abs(pos.Qty), math.Abs(qty))
	if pos.Qty > 0 {
		pos.Realized += closing * (price - pos.AvgCost)
	} else {
		pos.Realized += closing * (pos.AvgCost - price)
	}
	pos.Qty += qty
	switch {
	case pos.Qty == 0:
		pos.AvgCost = 0
	case math.Signbit(pos.Qty) == math.Signbit(qty):
		// flipped through flat, the remainder opened at price
		pos.AvgCost = price
	}
	return pos
}

// Position returns the signed quantity held in an instrument.
func (r *PositionReducer) Position(instrument schema.InstrumentID) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.positions[instrument].Qty
}

// Get returns the full position of an instrument.
func (r *PositionReducer) Get(instrument schema.InstrumentID) (Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[instrument]
	return pos, ok
}

// ApplySnapshot replaces positions with a snapshot.
func (r *PositionReducer) ApplySnapshot(snapshot Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.positions)
	for _, entry := range snapshot.Positions {
		r.positions[entry.InstrumentID] = entry.Position
	}
}

// Count returns the number of tracked instruments.
func (r *PositionReducer) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}
