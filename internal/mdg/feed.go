package mdg

import (
	"context"
	"runtime"
	"time"

	"simexec/internal/bus"
	"simexec/internal/obs"
	"simexec/internal/schema"
)

// FeedConfig drives Feed. Ticks are stamped Start, Start+Step, ... and
// published every Interval, or back to back when Interval is zero.
type FeedConfig struct {
	Count    int
	Start    int64
	Step     int64
	Interval time.Duration
}

// Feed publishes Count generated ticks into ring and returns how many were
// published. A full ring is retried until ctx is done.
func Feed(ctx context.Context, ring *bus.Ring[schema.MarketData], gen *Generator, norm *Normalizer, cfg FeedConfig, metrics *obs.Metrics) (int, error) {
	var ticker *time.Ticker
	if cfg.Interval > 0 {
		ticker = time.NewTicker(cfg.Interval)
		defer ticker.Stop()
	}

	var md schema.MarketData
	for i := range cfg.Count {
		if err := norm.Normalize(gen.Next(cfg.Start+int64(i)*cfg.Step), &md); err != nil {
			return i, err
		}
		for {
			if err := ctx.Err(); err != nil {
				return i, err
			}
			_, err := ring.TryPublishEvent(func(slot *schema.MarketData, _ int64) {
				slot.CopyFrom(&md)
			})
			if err == nil {
				break
			}
			metrics.IncRingFull()
			runtime.Gosched()
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return i + 1, ctx.Err()
			case <-ticker.C:
			}
		}
	}
	return cfg.Count, nil
}
