package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"simexec/internal/bus"
	"simexec/internal/clock"
	"simexec/internal/mdg"
	"simexec/internal/obs"
	"simexec/internal/oms"
	"simexec/internal/ops"
	"simexec/internal/recorder"
	"simexec/internal/risk"
	"simexec/internal/schema"
	"simexec/internal/sim"
	"simexec/internal/state"
	"simexec/internal/store"
	"simexec/pkg/conn"
	"simexec/pkg/exception"
)

type options struct {
	configPath   string
	journalDir   string
	snapshotPath string
	ticks        int
	tickStep     time.Duration
	interval     time.Duration
	orders       int
	submitters   int
	seed         uint64
	pyroscope    string
	lockThread   bool
}

func main() {
	var opt options
	flag.StringVar(&opt.configPath, "config", "", "Path to JSON config (default: built-in SIM venue)")
	flag.StringVar(&opt.journalDir, "journal-dir", "", "Journal directory, overrides the config")
	flag.StringVar(&opt.snapshotPath, "snapshot", "", "Write a position snapshot here on exit")
	flag.IntVar(&opt.ticks, "ticks", 10_000, "Synthetic ticks per channel")
	flag.DurationVar(&opt.tickStep, "tick-step", time.Second, "Event time between ticks")
	flag.DurationVar(&opt.interval, "interval", 0, "Wall time between ticks (0=as fast as possible)")
	flag.IntVar(&opt.orders, "orders", 1_000, "Orders per submitter")
	flag.IntVar(&opt.submitters, "submitters", 4, "Concurrent order submitters")
	flag.Uint64Var(&opt.seed, "seed", 1, "Order flow seed")
	flag.StringVar(&opt.pyroscope, "pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.BoolVar(&opt.lockThread, "lock-thread", false, "Pin the dispatch loop to an OS thread")
	flag.Parse()

	loaded, err := ops.Load(opt.configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if opt.journalDir != "" {
		cfg := recorder.DefaultConfig(opt.journalDir)
		loaded.Journal = &cfg
	}

	if opt.pyroscope != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "simexec",
			ServerAddress:   opt.pyroscope,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := run(ctx, loaded, opt); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

func run(ctx context.Context, loaded ops.Loaded, opt options) error {
	start := time.Now().UTC().UnixNano()
	metrics := obs.NewMetrics()
	simClock := clock.NewSim(start)
	positions := state.NewPositionReducer()
	manager := oms.NewManager()

	exec, err := sim.New(loaded.Executor, manager, sim.Options{
		Clock:     simClock,
		Metrics:   metrics,
		Risk:      risk.NewEngine(loaded.Risk),
		Positions: positions,
	})
	if err != nil {
		return err
	}
	manager.Attach(exec)
	manager.Subscribe(positions.OnExecutionReport)

	sinks, err := openSinks(ctx, loaded, metrics, simClock)
	if err != nil {
		return err
	}
	reports := bus.NewQueue[schema.ExecutionReport](4096)
	manager.Subscribe(func(r schema.ExecutionReport) {
		if err := reports.TryPublish(r); err != nil {
			metrics.IncQueueDrop()
		}
	})
	var sinkWG sync.WaitGroup
	sinkWG.Add(1)
	go func() {
		defer sinkWG.Done()
		reports.Run(context.WithoutCancel(ctx), func(r schema.ExecutionReport) {
			sinks.onReport(ctx, r)
		})
	}()

	barRing, err := bus.NewRing[schema.MarketData](loaded.Bus.RingSize)
	if err != nil {
		return err
	}
	tickRing, err := bus.NewRing[schema.MarketData](loaded.Bus.RingSize)
	if err != nil {
		return err
	}
	wait, err := loaded.Bus.NewWaitStrategy()
	if err != nil {
		return err
	}
	var procOpts []bus.ProcessorOption
	if opt.lockThread {
		procOpts = append(procOpts, bus.WithLockOSThread())
	}
	handler := bus.EventHandlerFunc[schema.MarketData](func(md *schema.MarketData, seq int64, end bool) {
		sinks.onMarketData(md)
		exec.OnEvent(md, seq, end)
	})
	proc, err := bus.NewProcessor(handler, wait, []*bus.Ring[schema.MarketData]{barRing, tickRing}, procOpts...)
	if err != nil {
		return err
	}
	procDone := make(chan error, 1)
	go func() {
		procDone <- proc.Run(ctx)
	}()

	feedErr := make(chan error, 2)
	var feedWG sync.WaitGroup
	feed := func(ring *bus.Ring[schema.MarketData], kinds schema.Kinds, seed uint64) {
		defer feedWG.Done()
		cfg := loaded.Feed
		cfg.Kinds, cfg.Seed = kinds, seed
		gen, err := mdg.NewGenerator(loaded.Registry, cfg)
		if err != nil {
			feedErr <- err
			return
		}
		n, err := mdg.Feed(ctx, ring, gen, mdg.NewNormalizer(loaded.Registry), mdg.FeedConfig{
			Count:    opt.ticks,
			Start:    start,
			Step:     int64(opt.tickStep),
			Interval: opt.interval,
		}, metrics)
		if err != nil {
			feedErr <- err
		}
		logs.Infof("feed finished, kinds: %08b, published: %d", kinds, n)
	}

	barKinds := loaded.Feed.Kinds & schema.Kinds(schema.KindBar)
	tickKinds := loaded.Feed.Kinds &^ schema.Kinds(schema.KindBar)
	if barKinds != 0 {
		feedWG.Add(1)
		go feed(barRing, barKinds, loaded.Feed.Seed)
	}
	if tickKinds != 0 {
		feedWG.Add(1)
		go feed(tickRing, tickKinds, loaded.Feed.Seed+1)
	}

	var (
		nextOrderID atomic.Uint64
		submitWG    sync.WaitGroup
	)
	for w := range opt.submitters {
		submitWG.Add(1)
		go func() {
			defer submitWG.Done()
			flow := newOrderFlow(loaded.Registry, exec.Cache(), simClock, loaded.Feed.BasePrice, rand.New(rand.NewPCG(opt.seed, uint64(w))))
			for range opt.orders {
				if ctx.Err() != nil {
					return
				}
				o := flow.next(schema.OrderID(nextOrderID.Add(1)))
				sinks.onOrder(*o)
				submit(manager, o, flow.shouldCancel())
			}
		}()
	}

	feedWG.Wait()
	submitWG.Wait()
	close(feedErr)
	for err := range feedErr {
		if !errors.Is(err, context.Canceled) {
			logs.Errorf("feed, err: %+v", err)
		}
	}

	drain(ctx, proc, barRing, tickRing)
	proc.Halt()
	if err := <-procDone; err != nil {
		logs.Errorf("processor, err: %+v", err)
	}

	reports.Close()
	sinkWG.Wait()
	if err := sinks.close(context.WithoutCancel(ctx)); err != nil {
		logs.Errorf("close sinks, err: %+v", err)
	}

	if opt.snapshotPath != "" {
		if err := state.WriteSnapshot(opt.snapshotPath, positions.SnapshotAt(sinks.lastSeq())); err != nil {
			return err
		}
	}

	report(metrics, manager, positions, loaded.Registry)
	return nil
}

// drain waits until the processor consumed everything already published.
// submit sends o and optionally asks to cancel it right away. A cancel that
// loses the race against a fill is expected under CancelApply.
func submit(manager *oms.Manager, o *schema.Order, cancel bool) (sent, cancelled bool) {
	if err := manager.Send(o); err != nil {
		logs.Errorf("send order, err: %+v", err)
		return false, false
	}
	if !cancel {
		return true, false
	}
	err := manager.Cancel(schema.CancelRequest{OrderID: o.ID, InstrumentID: o.InstrumentID, Text: "flow cancel"})
	switch {
	case err == nil:
		return true, true
	case errors.Is(err, exception.ErrOrderNotFound):
		logs.Infof("cancel order %d skipped, no longer resting", o.ID)
	default:
		logs.Errorf("cancel order, err: %+v", err)
	}
	return true, false
}

func drain(ctx context.Context, proc *bus.Processor[schema.MarketData], rings ...*bus.Ring[schema.MarketData]) {
	for i, ring := range rings {
		for proc.Sequence(i) < ring.Cursor() {
			if ctx.Err() != nil {
				return
			}
			runtime.Gosched()
		}
	}
}

func report(metrics *obs.Metrics, manager *oms.Manager, positions *state.PositionReducer, reg *schema.Registry) {
	snap := metrics.Snapshot()
	logs.Infof("metrics: events=%v reports=%v rejects=%v drops=%d ring_full=%d dispatch=%+v submit=%+v",
		snap.EventCounts, snap.ReportCounts, snap.RejectCounts, snap.QueueDrops, snap.RingFull,
		snap.DispatchLatency, snap.SubmitLatency)
	logs.Infof("orders: %v", manager.Summary())
	if v := manager.Violations(); len(v) != 0 {
		logs.Errorf("lifecycle violations: %d, first err: %+v", len(v), v[0])
	}
	for i := range reg.InstrumentCount() {
		inst, _ := reg.InstrumentAt(i)
		if pos, ok := positions.Get(inst.ID); ok {
			logs.Infof("position %s: qty=%.4f avg=%.4f realized=%.4f", inst.Symbol, pos.Qty, pos.AvgCost, pos.Realized)
		}
	}
}

// sinks fans journaled and persisted output out of the hot path. Every
// member is optional.
type sinks struct {
	writer  *recorder.Writer
	journal *recorder.Journal
	pg      *conn.Client
	store   *store.Sink
}

func openSinks(ctx context.Context, loaded ops.Loaded, metrics *obs.Metrics, c clock.Clock) (*sinks, error) {
	s := &sinks{}
	if loaded.Journal != nil {
		w, err := recorder.NewWriter(*loaded.Journal)
		if err != nil {
			return nil, err
		}
		if err := w.Start(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		s.writer = w
		s.journal = recorder.NewJournal(w, recorder.JournalOptions{
			Clock:   c,
			Trace:   obs.NewTraceGenerator(0),
			Metrics: metrics,
		})
		logs.Infof("journal enabled, dir: %s", loaded.Journal.Dir)
	}
	if loaded.Postgres != nil {
		client, err := conn.New(loaded.Postgres.Option)
		if err != nil {
			return nil, err
		}
		st, err := store.New(client.DB(), uuid.New())
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		if err := st.SaveInstruments(ctx, loaded.Registry); err != nil {
			return nil, err
		}
		s.pg = client
		s.store = store.NewSink(st, loaded.Postgres.Batch)
		logs.Infof("postgres enabled, session: %s", st.Session())
	}
	return s, nil
}

func (s *sinks) onMarketData(md *schema.MarketData) {
	if s.journal == nil {
		return
	}
	if err := s.journal.AppendMarketData(md); err != nil {
		logs.Errorf("journal market data, err: %+v", err)
	}
}

func (s *sinks) onOrder(o schema.Order) {
	if s.journal == nil {
		return
	}
	if err := s.journal.AppendOrder(o); err != nil {
		logs.Errorf("journal order id: %d, err: %+v", o.ID, err)
	}
}

func (s *sinks) onReport(ctx context.Context, r schema.ExecutionReport) {
	if s.journal != nil {
		s.journal.OnExecutionReport(r)
	}
	if s.store != nil {
		if err := s.store.Add(ctx, r); err != nil {
			logs.Errorf("persist report id: %d, err: %+v", r.ID, err)
		}
	}
}

func (s *sinks) lastSeq() uint64 {
	if s.journal == nil {
		return 0
	}
	return s.journal.Seq()
}

func (s *sinks) close(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.Flush(ctx); err != nil {
			return err
		}
		logs.Infof("persisted reports: %d", s.store.Saved())
	}
	if s.pg != nil {
		if err := s.pg.Close(); err != nil {
			return err
		}
	}
	if s.writer != nil {
		return s.writer.Close()
	}
	return nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...any)  {}
func (emptyLogger) Debugf(string, ...any) {}
func (emptyLogger) Errorf(string, ...any) {}
