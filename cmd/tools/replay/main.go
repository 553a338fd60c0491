package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/yanun0323/logs"

	"simexec/internal/clock"
	"simexec/internal/codec"
	"simexec/internal/oms"
	"simexec/internal/ops"
	"simexec/internal/recorder"
	"simexec/internal/risk"
	"simexec/internal/schema"
	"simexec/internal/sim"
	"simexec/internal/state"
)

func main() {
	dir := flag.String("dir", "testdata/journal", "Journal directory")
	prefix := flag.String("prefix", "", "Journal file prefix (default: journal)")
	configPath := flag.String("config", "", "Executor config used for the re-run (default: built-in)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	dump := flag.Bool("dump", false, "Print records instead of re-running them")
	snapshotPath := flag.String("snapshot", "", "Verify re-run positions against this snapshot")
	strict := flag.Bool("strict", false, "Fail when re-run positions diverge from the journaled reports")
	flag.Parse()

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	ctx := context.Background()
	if *dump {
		if err := runDump(ctx, pb); err != nil {
			log.Fatalf("dump failed: %v", err)
		}
		return
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := runReplay(ctx, pb, loaded, *snapshotPath, *strict); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
}

// runReplay re-drives a fresh executor with the journaled market data and
// orders, then compares the positions it produces with the ones implied by
// the journaled reports.
func runReplay(ctx context.Context, pb *recorder.Playback, loaded ops.Loaded, snapshotPath string, strict bool) error {
	replayed := state.NewPositionReducer()
	manager := oms.NewManager()
	manager.Subscribe(replayed.OnExecutionReport)

	exec, err := sim.New(loaded.Executor, manager, sim.Options{
		Clock:     clock.NewSim(0),
		Risk:      risk.NewEngine(loaded.Risk),
		Positions: replayed,
	})
	if err != nil {
		return err
	}
	manager.Attach(exec)

	journaled := state.NewPositionReducer()
	stats, err := recorder.Replay(ctx, pb, exec, recorder.ReplayOptions{OnReport: journaled.OnExecutionReport})
	if err != nil {
		return err
	}
	logs.Infof("replay completed: records=%d reports=%d last_seq=%d orders=%v", stats.Records, stats.Reports, stats.LastSeq, manager.Summary())
	if v := manager.Violations(); len(v) != 0 {
		return fmt.Errorf("replay produced %d lifecycle violations, first: %w", len(v), v[0])
	}

	if err := state.CompareSnapshots(journaled.Snapshot(), replayed.Snapshot()); err != nil {
		if strict {
			return err
		}
		logs.Infof("re-run diverges from journaled reports, err: %+v", err)
	}

	if snapshotPath != "" {
		expected, err := state.ReadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		if err := state.CompareSnapshots(expected, journaled.Snapshot()); err != nil {
			return err
		}
		logs.Infof("snapshot verified: positions=%d", len(expected.Positions))
	}
	return nil
}

func runDump(ctx context.Context, pb *recorder.Playback) error {
	var index int
	return pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		index++
		fmt.Printf("%06d seq=%d type=%s ts_event=%d ts_recv=%d len=%d\n", index, header.Seq, header.Type, header.TsEvent, header.TsRecv, len(payload))
		printDecoded(header.Type, payload)
		return nil
	})
}

func printDecoded(t schema.EventType, payload []byte) {
	switch t {
	case schema.EventBar:
		bar, ok := codec.DecodeBar(payload)
		if !ok {
			fmt.Println("  decode Bar failed")
			return
		}
		fmt.Printf("  bar inst=%d size=%d o=%g h=%g l=%g c=%g v=%d\n", bar.InstrumentID, bar.Size, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	case schema.EventQuote:
		q, ok := codec.DecodeQuote(payload)
		if !ok {
			fmt.Println("  decode Quote failed")
			return
		}
		fmt.Printf("  quote inst=%d bid=%g/%g ask=%g/%g\n", q.InstrumentID, q.Bid, q.BidSize, q.Ask, q.AskSize)
	case schema.EventTrade:
		tr, ok := codec.DecodeTrade(payload)
		if !ok {
			fmt.Println("  decode Trade failed")
			return
		}
		fmt.Printf("  trade inst=%d price=%g size=%g\n", tr.InstrumentID, tr.Price, tr.Size)
	case schema.EventOrder:
		o, ok := codec.DecodeOrder(payload)
		if !ok {
			fmt.Println("  decode Order failed")
			return
		}
		fmt.Printf("  order id=%d inst=%d side=%s type=%s qty=%g limit=%g stop=%g\n", o.ID, o.InstrumentID, o.Side, o.Type, o.OrdQty, o.LimitPrice, o.StopPrice)
	case schema.EventExecutionReport:
		r, ok := codec.DecodeExecutionReport(payload)
		if !ok {
			fmt.Println("  decode ExecutionReport failed")
			return
		}
		fmt.Printf("  report id=%d order=%d status=%s reason=%s filled=%g/%g avg=%g last=%g@%g\n",
			r.ID, r.OrderID, r.Status, r.Reason, r.FilledQty, r.OrdQty, r.AvgPrice, r.LastQty, r.LastPrice)
	}
}
