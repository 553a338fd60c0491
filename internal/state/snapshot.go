package state

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"simexec/internal/schema"
)

const snapshotTolerance = 1e-9

// Snapshot captures positions at a point in time.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	LastSeq   uint64          `json:"lastSeq"`
	Positions []PositionEntry `json:"positions"`
}

// PositionEntry is a single instrument position entry.
type PositionEntry struct {
	InstrumentID schema.InstrumentID `json:"instrumentId"`
	Position
}

// Snapshot builds a snapshot from current positions.
func (r *PositionReducer) Snapshot() Snapshot {
	return r.SnapshotAt(0)
}

// SnapshotAt builds a snapshot stamped with the last applied journal sequence.
func (r *PositionReducer) SnapshotAt(lastSeq uint64) Snapshot {
	r.mu.RLock()
	entries := make([]PositionEntry, 0, len(r.positions))
	for id, pos := range r.positions {
		entries = append(entries, PositionEntry{InstrumentID: id, Position: pos})
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b PositionEntry) int {
		return int(a.InstrumentID) - int(b.InstrumentID)
	})
	return Snapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		LastSeq:   lastSeq,
		Positions: entries,
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create snapshot dir %s", dir)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "read snapshot %s", path)
	}
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrapf(err, "decode snapshot %s", path)
	}
	return snap, nil
}

// CompareSnapshots checks that two snapshots hold the same positions.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Positions) != len(actual.Positions) {
		return errors.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	want := make(map[schema.InstrumentID]Position, len(expected.Positions))
	for _, entry := range expected.Positions {
		want[entry.InstrumentID] = entry.Position
	}
	for _, entry := range actual.Positions {
		pos, ok := want[entry.InstrumentID]
		if !ok {
			return errors.Errorf("snapshot missing instrument: %d", entry.InstrumentID)
		}
		if !near(pos.Qty, entry.Qty) || !near(pos.AvgCost, entry.AvgCost) || !near(pos.Realized, entry.Realized) {
			return errors.Errorf("snapshot mismatch: instrument=%d expected=%+v actual=%+v", entry.InstrumentID, pos, entry.Position)
		}
	}
	return nil
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= snapshotTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
