package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simexec/internal/recorder"
	"simexec/internal/schema"
)

func fill(id schema.InstrumentID, side schema.Side, qty, price float64) schema.ExecutionReport {
	return schema.ExecutionReport{
		InstrumentID: id,
		Side:         side,
		LastQty:      qty,
		LastPrice:    price,
		Status:       schema.OrdStatusPartiallyFilled,
	}
}

func TestPositionReducer(t *testing.T) {
	testCases := []struct {
		desc     string
		reports  []schema.ExecutionReport
		expected Position
	}{
		{
			desc:     "ack has no effect",
			reports:  []schema.ExecutionReport{{InstrumentID: 1, Side: schema.SideBuy, Status: schema.OrdStatusNew}},
			expected: Position{},
		},
		{
			desc:     "buys average in",
			reports:  []schema.ExecutionReport{fill(1, schema.SideBuy, 2, 10), fill(1, schema.SideBuyMinus, 2, 12)},
			expected: Position{Qty: 4, AvgCost: 11},
		},
		{
			desc:     "partial close realizes",
			reports:  []schema.ExecutionReport{fill(1, schema.SideBuy, 4, 10), fill(1, schema.SideSell, 1, 13)},
			expected: Position{Qty: 3, AvgCost: 10, Realized: 3},
		},
		{
			desc:     "flat resets cost",
			reports:  []schema.ExecutionReport{fill(1, schema.SideSellShort, 2, 20), fill(1, schema.SideBuy, 2, 18)},
			expected: Position{Qty: 0, AvgCost: 0, Realized: 4},
		},
		{
			desc:     "flip opens at fill price",
			reports:  []schema.ExecutionReport{fill(1, schema.SideBuy, 1, 10), fill(1, schema.SideSell, 3, 9)},
			expected: Position{Qty: -2, AvgCost: 9, Realized: -1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			r := NewPositionReducer()
			for _, report := range tc.reports {
				r.OnExecutionReport(report)
			}
			got, _ := r.Get(1)
			assert.InDelta(t, tc.expected.Qty, got.Qty, 1e-9)
			assert.InDelta(t, tc.expected.AvgCost, got.AvgCost, 1e-9)
			assert.InDelta(t, tc.expected.Realized, got.Realized, 1e-9)
			assert.Equal(t, got.Qty, r.Position(1))
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := NewPositionReducer()
	r.ApplyReport(fill(2, schema.SideSell, 5, 100))
	r.ApplyReport(fill(1, schema.SideBuy, 3, 50.5))

	snap := r.SnapshotAt(42)
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, schema.InstrumentID(1), snap.Positions[0].InstrumentID)

	path := filepath.Join(t.TempDir(), "snap", "positions.json")
	require.NoError(t, WriteSnapshot(path, snap))

	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), loaded.LastSeq)
	require.NoError(t, CompareSnapshots(snap, loaded))

	restored := NewPositionReducer()
	restored.ApplySnapshot(loaded)
	assert.Equal(t, -5.0, restored.Position(2))
	assert.Equal(t, 2, restored.Count())

	loaded.Positions[1].Qty = -4
	assert.Error(t, CompareSnapshots(snap, loaded))
}

func TestRecoverFromJournal(t *testing.T) {
	dir := t.TempDir()
	w, err := recorder.NewWriter(recorder.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	j := recorder.NewJournal(w, recorder.JournalOptions{})

	require.NoError(t, j.AppendReport(schema.ExecutionReport{InstrumentID: 1, Side: schema.SideBuy, Status: schema.OrdStatusNew}))
	require.NoError(t, j.AppendReport(fill(1, schema.SideBuy, 2, 10)))
	require.NoError(t, j.AppendReport(fill(1, schema.SideBuy, 2, 14)))
	require.NoError(t, w.Close())

	res, err := RecoverPositions(context.Background(), RecoverConfig{JournalDir: dir})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.LastSeq)
	assert.Equal(t, uint64(2), res.Applied)
	assert.Equal(t, 4.0, res.Positions.Position(1))

	// a snapshot taken after the first fill only replays the tail
	snap := Snapshot{LastSeq: 2, Positions: []PositionEntry{{InstrumentID: 1, Position: Position{Qty: 2, AvgCost: 10}}}}
	path := filepath.Join(t.TempDir(), "positions.json")
	require.NoError(t, WriteSnapshot(path, snap))

	res, err = RecoverPositions(context.Background(), RecoverConfig{JournalDir: dir, SnapshotPath: path})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Applied)
	pos, _ := res.Positions.Get(1)
	assert.InDelta(t, 12.0, pos.AvgCost, 1e-9)
}
