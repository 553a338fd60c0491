package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/yanun0323/logs"

	"simexec/internal/clock"
	"simexec/internal/mdg"
	"simexec/internal/obs"
	"simexec/internal/ops"
	"simexec/internal/recorder"
	"simexec/internal/schema"
)

// mdg writes a synthetic market data journal that the replay tool and the
// chaos tool can consume.
func main() {
	journalDir := flag.String("journal-dir", "testdata/journal", "Journal directory for market data")
	configPath := flag.String("config", "", "Path to JSON config (default: built-in SIM venue)")
	ticks := flag.Int("ticks", 100, "Number of ticks to generate")
	tickStep := flag.Duration("tick-step", time.Second, "Event time between ticks")
	interval := flag.Duration("interval", 0, "Wall delay between ticks")
	seed := flag.Uint64("seed", 0, "Generator seed, overrides the config")
	source := flag.Uint("source", 1, "Source ID")
	flag.Parse()

	if *ticks <= 0 {
		log.Fatalf("ticks must be > 0")
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	feedCfg := loaded.Feed
	if *seed != 0 {
		feedCfg.Seed = *seed
	}

	generator, err := mdg.NewGenerator(loaded.Registry, feedCfg)
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}
	normalizer := mdg.NewNormalizer(loaded.Registry)

	cfg := recorder.DefaultConfig(*journalDir)
	if loaded.Journal != nil {
		cfg = *loaded.Journal
		cfg.Dir = *journalDir
	}
	writer, err := recorder.NewWriter(cfg)
	if err != nil {
		log.Fatalf("journal init failed: %v", err)
	}
	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("journal start failed: %v", err)
	}

	start := time.Now().UTC().UnixNano()
	simClock := clock.NewSim(start)
	metrics := obs.NewMetrics()
	journal := recorder.NewJournal(writer, recorder.JournalOptions{
		Source:  uint16(*source),
		Clock:   simClock,
		Trace:   obs.NewTraceGenerator(0),
		Metrics: metrics,
		Block:   true,
	})

	var md schema.MarketData
	for i := range *ticks {
		ts := start + int64(i)*tickStep.Nanoseconds()
		simClock.Advance(ts)
		if err := normalizer.Normalize(generator.Next(ts), &md); err != nil {
			log.Fatalf("normalize failed: %v", err)
		}
		if err := journal.AppendMarketData(&md); err != nil {
			log.Fatalf("journal append failed: %v", err)
		}
		metrics.IncEvent(eventType(&md))
		if *interval > 0 && i < *ticks-1 {
			time.Sleep(*interval)
		}
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("journal close failed: %v", err)
	}
	snapshot := metrics.Snapshot()
	logs.Infof("mdg done, records: %d, events: %v, drops: %d", journal.Seq(), snapshot.EventCounts, snapshot.QueueDrops)
}

func eventType(md *schema.MarketData) schema.EventType {
	switch {
	case md.Kinds.Has(schema.KindBar):
		return schema.EventBar
	case md.Kinds.Has(schema.KindQuote):
		return schema.EventQuote
	case md.Kinds.Has(schema.KindTrade):
		return schema.EventTrade
	default:
		return schema.EventUnknown
	}
}
