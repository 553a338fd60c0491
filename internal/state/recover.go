package state

import (
	"context"

	"github.com/yanun0323/errors"

	"simexec/internal/recorder"
	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// RecoverConfig controls snapshot + journal recovery.
type RecoverConfig struct {
	JournalDir      string
	SnapshotPath    string
	FilePrefix      string
	DisableChecksum bool
	MaxPayloadSize  int
}

// RecoverResult contains recovered state and metadata.
type RecoverResult struct {
	Positions *PositionReducer
	LastSeq   uint64
	Applied   uint64
}

// RecoverPositions loads a snapshot and folds the journaled execution
// reports recorded after it into the positions.
func RecoverPositions(ctx context.Context, cfg RecoverConfig) (RecoverResult, error) {
	if cfg.JournalDir == "" {
		return RecoverResult{}, errors.Wrap(exception.ErrInvalidConfig, "journal dir is empty")
	}
	positions := NewPositionReducer()
	var lastSeq uint64

	if cfg.SnapshotPath != "" {
		snapshot, err := ReadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return RecoverResult{}, err
		}
		positions.ApplySnapshot(snapshot)
		lastSeq = snapshot.LastSeq
	}

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             cfg.JournalDir,
		FilePrefix:      cfg.FilePrefix,
		DisableChecksum: cfg.DisableChecksum,
		MaxPayloadSize:  cfg.MaxPayloadSize,
	})
	if err != nil {
		return RecoverResult{}, err
	}

	var applied uint64
	stats, err := recorder.Replay(ctx, pb, discard{}, recorder.ReplayOptions{
		AfterSeq: lastSeq,
		OnReport: func(r schema.ExecutionReport) {
			if r.LastQty > 0 {
				positions.ApplyReport(r)
				applied++
			}
		},
	})
	if err != nil {
		return RecoverResult{}, errors.Wrap(err, "replay journal")
	}
	if stats.LastSeq > lastSeq {
		lastSeq = stats.LastSeq
	}

	return RecoverResult{
		Positions: positions,
		LastSeq:   lastSeq,
		Applied:   applied,
	}, nil
}

// discard ignores market data and orders; recovery only needs the reports.
type discard struct{}

func (discard) OnBar(*schema.Bar)                 {}
func (discard) OnQuote(*schema.Quote)             {}
func (discard) OnTrade(*schema.Trade)             {}
func (discard) OnOrderSubmit(*schema.Order) error { return nil }
