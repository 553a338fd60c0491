package recorder

import (
	"context"

	"github.com/yanun0323/errors"

	"simexec/internal/codec"
	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// Target is re-driven by a replay: market data in journal order and orders
// as they were submitted.
type Target interface {
	schema.MarketDataHandler
	OnOrderSubmit(o *schema.Order) error
}

// ReplayStats summarizes a replay run.
type ReplayStats struct {
	Records  uint64
	Skipped  uint64
	Reports  uint64
	LastSeq  uint64
	Rejected uint64
}

// ReplayOptions filters and observes a replay. Records with a sequence at or
// below AfterSeq are skipped. OnReport, if set, receives the journaled
// execution reports, which are otherwise ignored since the target emits
// its own.
type ReplayOptions struct {
	AfterSeq uint64
	OnReport func(schema.ExecutionReport)
}

// Replay decodes every record of pb and feeds it to target.
func Replay(ctx context.Context, pb *Playback, target Target, opts ReplayOptions) (ReplayStats, error) {
	var stats ReplayStats
	if pb == nil || target == nil {
		return stats, errors.Wrap(exception.ErrNilInstance, "replay playback or target")
	}

	err := pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		if header.Seq <= opts.AfterSeq {
			stats.Skipped++
			return nil
		}
		stats.Records++
		stats.LastSeq = header.Seq

		switch header.Type {
		case schema.EventBar:
			bar, ok := codec.DecodeBar(payload)
			if !ok {
				return decodeErr(header)
			}
			target.OnBar(&bar)
		case schema.EventQuote:
			quote, ok := codec.DecodeQuote(payload)
			if !ok {
				return decodeErr(header)
			}
			target.OnQuote(&quote)
		case schema.EventTrade:
			trade, ok := codec.DecodeTrade(payload)
			if !ok {
				return decodeErr(header)
			}
			target.OnTrade(&trade)
		case schema.EventOrder:
			order, ok := codec.DecodeOrder(payload)
			if !ok {
				return decodeErr(header)
			}
			if err := target.OnOrderSubmit(&order); err != nil {
				stats.Rejected++
			}
		case schema.EventExecutionReport:
			report, ok := codec.DecodeExecutionReport(payload)
			if !ok {
				return decodeErr(header)
			}
			stats.Reports++
			if opts.OnReport != nil {
				opts.OnReport(report)
			}
		default:
			stats.Skipped++
		}
		return nil
	})
	return stats, err
}

func decodeErr(header schema.EventHeader) error {
	return errors.Wrapf(exception.ErrJournalDecode, "seq %d type %s", header.Seq, header.Type)
}
