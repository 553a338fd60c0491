// Package sim decides when and at what price resting orders fill against
// observed market data and reports every decision to the order manager.
package sim

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"

	"simexec/internal/clock"
	"simexec/internal/fill"
	"simexec/internal/mdcache"
	"simexec/internal/obs"
	"simexec/internal/risk"
	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// ProviderID identifies the simulated execution provider.
const ProviderID = "Simulated"

// OrderManager receives every execution report. Reports of one instrument
// are delivered while that instrument's book is locked, so the manager must
// not submit, cancel or replace orders of the same instrument from inside
// OnExecutionReport.
type OrderManager interface {
	OnExecutionReport(report schema.ExecutionReport)
}

// OrderManagerFunc adapts a function to OrderManager.
type OrderManagerFunc func(report schema.ExecutionReport)

func (f OrderManagerFunc) OnExecutionReport(report schema.ExecutionReport) {
	f(report)
}

// PositionView exposes current positions to the pre-trade risk check.
type PositionView interface {
	Position(instrument schema.InstrumentID) float64
}

// Options carries the executor's collaborators. Nil fields fall back to a
// wall clock, a private cache and no metrics, risk or positions.
type Options struct {
	Clock     clock.Clock
	Cache     *mdcache.Cache
	Metrics   *obs.Metrics
	Risk      *risk.Engine
	Positions PositionView
}

// Executor is the simulated execution provider.
//
// Market data arrives from a single dispatch loop (OnEvent or the On*
// callbacks), orders from any goroutine. Each instrument's resting orders
// are guarded by their own lock, which serializes fills, submissions and
// cancels of that instrument.
type Executor struct {
	cfg       Config
	om        OrderManager
	clock     clock.Clock
	advancer  clock.Advancer
	cache     *mdcache.Cache
	metrics   *obs.Metrics
	risk      *risk.Engine
	positions PositionView
	engine    *fill.Engine

	// nextReportID is the id of the next report; the first report is 0.
	nextReportID atomic.Uint64

	mu    sync.RWMutex
	books map[schema.InstrumentID]*book
	index map[schema.OrderID]schema.InstrumentID
}

// New creates an executor reporting to om.
func New(cfg Config, om OrderManager, opts Options) (*Executor, error) {
	if om == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "order manager")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Wall{}
	}
	if opts.Cache == nil {
		opts.Cache = mdcache.New()
	}

	e := &Executor{
		cfg:       cfg,
		om:        om,
		clock:     opts.Clock,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		risk:      opts.Risk,
		positions: opts.Positions,
		books:     make(map[schema.InstrumentID]*book),
		index:     make(map[schema.OrderID]schema.InstrumentID),
	}
	e.advancer, _ = opts.Clock.(clock.Advancer)
	e.engine = fill.NewEngine(reportGenerator{e}, cfg.BarTrigger, cfg.FillSize)
	return e, nil
}

func (e *Executor) ProviderID() string {
	return ProviderID
}

// Connected is always true; there is no venue connection to lose.
func (e *Executor) Connected() bool {
	return true
}

func (e *Executor) Config() Config {
	return e.cfg
}

// Cache returns the instrument data the executor evaluates against.
func (e *Executor) Cache() *mdcache.Cache {
	return e.cache
}

// OnEvent dispatches a ring slot. It satisfies bus.EventHandler.
func (e *Executor) OnEvent(md *schema.MarketData, _ int64, _ bool) {
	start := time.Now()
	schema.Dispatch(md, e)
	e.metrics.ObserveDispatch(time.Since(start))
}

// OnOrderSubmit validates o, registers it, acknowledges it and tries to fill
// it against the cached market data. An order that fails validation or the
// risk check is reported as Rejected and never rests.
//
// The executor owns o afterwards; callers read its progress from reports.
func (e *Executor) OnOrderSubmit(o *schema.Order) error {
	if o == nil {
		return exception.ErrOrderNil
	}
	start := time.Now()
	defer func() { e.metrics.ObserveSubmit(time.Since(start)) }()

	if _, resting := e.locate(o.ID, 0); resting {
		e.rejectDuplicate(o)
		return nil
	}

	o.Status, o.Triggered, o.TrailAnchor = schema.OrdStatusNew, false, 0
	if reason := e.validate(o); reason != schema.RejectReasonNone {
		e.reject(o, reason)
		return nil
	}
	if reason := e.risk.Evaluate(o, e.riskState(o.InstrumentID)); reason != schema.RejectReasonNone {
		e.reject(o, reason)
		return nil
	}

	b := e.bookFor(o.InstrumentID, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := e.registerLocked(b, o); err != nil {
		e.rejectDuplicate(o)
		return nil
	}
	e.emit(e.newReport(o, 0, 0))

	now := e.clock.Now()
	if e.expired(o, now) {
		e.cancelLocked(b, o, "expired")
		return nil
	}
	e.processNewLocked(o)
	return nil
}

// OnOrderCancelRequest cancels a resting order under CancelApply and does
// nothing under CancelNoop.
func (e *Executor) OnOrderCancelRequest(req schema.CancelRequest) error {
	if e.cfg.Cancel == CancelNoop {
		return nil
	}

	b, ok := e.locate(req.OrderID, req.InstrumentID)
	if !ok {
		return errors.Wrapf(exception.ErrOrderNotFound, "cancel order id: %d", req.OrderID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.getLocked(req.OrderID)
	if !ok {
		return errors.Wrapf(exception.ErrOrderNotFound, "cancel order id: %d", req.OrderID)
	}
	text := req.Text
	if text == "" {
		text = "cancelled"
	}
	e.cancelLocked(b, o, text)
	return nil
}

// OnOrderCancelReplaceRequest amends a resting order under CancelApply and
// re-evaluates it against the cached market data. It does nothing under
// CancelNoop.
func (e *Executor) OnOrderCancelReplaceRequest(req schema.ReplaceRequest) error {
	if e.cfg.Cancel == CancelNoop {
		return nil
	}

	b, ok := e.locate(req.OrderID, req.InstrumentID)
	if !ok {
		return errors.Wrapf(exception.ErrOrderNotFound, "replace order id: %d", req.OrderID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.getLocked(req.OrderID)
	if !ok {
		return errors.Wrapf(exception.ErrOrderNotFound, "replace order id: %d", req.OrderID)
	}
	if req.OrdQty != 0 && (req.OrdQty <= o.FilledQty || math.IsNaN(req.OrdQty)) {
		return errors.Wrapf(exception.ErrOrderInvalidQty, "replace order id: %d, qty: %v, filled: %v", o.ID, req.OrdQty, o.FilledQty)
	}

	if req.OrdQty != 0 {
		o.OrdQty = req.OrdQty
	}
	if req.LimitPrice != 0 {
		o.LimitPrice = req.LimitPrice
	}
	if req.StopPrice != 0 {
		o.StopPrice = req.StopPrice
	}
	e.emit(e.newReport(o, 0, 0))
	e.processNewLocked(o)
	return nil
}

// OnOrderStatusRequest is not supported by the simulator.
func (e *Executor) OnOrderStatusRequest(req schema.StatusRequest) error {
	return errors.Wrapf(exception.ErrUnsupportedOperation, "status request order id: %d", req.OrderID)
}

// OnBar caches the bar and, with FillOnBar, evaluates the instrument's
// resting orders against it.
func (e *Executor) OnBar(bar *schema.Bar) {
	e.metrics.IncEvent(schema.EventBar)
	e.cache.UpdateBar(bar)
	now := e.advance(bar.Timestamp)

	if !e.cfg.FillOnBar && e.cfg.Expiry == ExpiryDisabled {
		return
	}
	e.sweep(bar.InstrumentID, now, func(o *schema.Order) {
		if !e.cfg.FillOnBar {
			return
		}
		if e.cfg.FillOnBarMode == FillOnBarNextOpen && bar.Open > 0 {
			if e.engine.ProcessPrice(o, bar.Open, o.LeaveQty()) {
				return
			}
		}
		e.engine.ProcessBar(o, bar)
	})
}

// OnQuote caches the quote and, with FillOnQuote, evaluates resting orders
// whose side of the book changed. Buy orders only look at the ask, sell
// orders only at the bid, so a repeated quote triggers nothing.
func (e *Executor) OnQuote(quote *schema.Quote) {
	e.metrics.IncEvent(schema.EventQuote)
	prev, seen := e.cache.UpdateQuote(quote)
	now := e.advance(quote.Timestamp)

	if !e.cfg.FillOnQuote && e.cfg.Expiry == ExpiryDisabled {
		return
	}
	askChanged := !seen || !prev.SameAsk(quote)
	bidChanged := !seen || !prev.SameBid(quote)

	e.sweep(quote.InstrumentID, now, func(o *schema.Order) {
		if !e.cfg.FillOnQuote {
			return
		}
		switch {
		case o.Side.AskSensitive() && askChanged,
			o.Side.BidSensitive() && bidChanged:
			e.engine.ProcessQuote(o, quote)
		}
	})
}

// OnTrade caches the trade and, with FillOnTrade, evaluates every resting
// order of the instrument against it.
func (e *Executor) OnTrade(trade *schema.Trade) {
	e.metrics.IncEvent(schema.EventTrade)
	e.cache.UpdateTrade(trade)
	now := e.advance(trade.Timestamp)

	if !e.cfg.FillOnTrade && e.cfg.Expiry == ExpiryDisabled {
		return
	}
	e.sweep(trade.InstrumentID, now, func(o *schema.Order) {
		if e.cfg.FillOnTrade {
			e.engine.ProcessTrade(o, trade)
		}
	})
}

// sweep runs fn over the instrument's resting orders in ascending order id.
// Orders past their good-till-time are cancelled instead when expiry is on.
func (e *Executor) sweep(instrument schema.InstrumentID, now int64, fn func(o *schema.Order)) {
	b := e.bookFor(instrument, false)
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.snapshotLocked() {
		if o.IsDone() {
			continue
		}
		if e.expired(o, now) {
			e.cancelLocked(b, o, "expired")
			continue
		}
		fn(o)
	}
	b.releaseSnapshot()
}

// processNewLocked tries to fill a freshly submitted or amended order
// against the cached data: quote, then trade, then bar close. Market orders
// only use a source whose mode provides a last price.
func (e *Executor) processNewLocked(o *schema.Order) {
	d, ok := e.cache.Get(o.InstrumentID)
	if !ok {
		return
	}

	if o.Type == schema.OrdTypeMarket {
		if e.cfg.FillOnQuote && e.cfg.FillOnQuoteMode == FillOnQuoteLast && d.HasQuote &&
			e.engine.ProcessQuote(o, &d.Quote) {
			return
		}
		if e.cfg.FillOnTrade && e.cfg.FillOnTradeMode == FillOnTradeLast && d.HasTrade &&
			e.engine.ProcessTrade(o, &d.Trade) {
			return
		}
		if e.cfg.FillOnBar && e.cfg.FillOnBarMode == FillOnBarLastClose && d.HasBar {
			e.engine.ProcessBar(o, &d.Bar)
		}
		return
	}

	if e.cfg.FillOnQuote && d.HasQuote && e.engine.ProcessQuote(o, &d.Quote) {
		return
	}
	if e.cfg.FillOnTrade && d.HasTrade && e.engine.ProcessTrade(o, &d.Trade) {
		return
	}
	if e.cfg.FillOnBar && d.HasBar && d.Bar.Close > 0 {
		e.engine.ProcessPrice(o, d.Bar.Close, o.LeaveQty())
	}
}

func (e *Executor) advance(ts int64) int64 {
	if e.advancer != nil && ts > 0 {
		return e.advancer.Advance(ts)
	}
	return e.clock.Now()
}

func (e *Executor) expired(o *schema.Order, now int64) bool {
	return e.cfg.Expiry == ExpiryCancel && o.ExpireTime > 0 && now >= o.ExpireTime
}

// validate checks that o is complete enough to be evaluated.
func (e *Executor) validate(o *schema.Order) schema.RejectReason {
	switch {
	case !o.Side.IsAvailable():
		return schema.RejectReasonInvalidSide
	case !e.engine.Supports(o.Type):
		return schema.RejectReasonInvalidType
	case !(o.OrdQty > 0) || math.IsInf(o.OrdQty, 0) || o.FilledQty != 0:
		return schema.RejectReasonInvalidQty
	}

	switch o.Type {
	case schema.OrdTypeLimit:
		if !(o.LimitPrice > 0) {
			return schema.RejectReasonInvalidPrice
		}
	case schema.OrdTypeStop:
		if !(o.StopPrice > 0) {
			return schema.RejectReasonInvalidPrice
		}
	case schema.OrdTypeStopLimit:
		if !(o.LimitPrice > 0) || !(o.StopPrice > 0) {
			return schema.RejectReasonInvalidPrice
		}
	case schema.OrdTypeTrailingStop:
		if !(o.TrailingOffset > 0) || o.StopPrice < 0 {
			return schema.RejectReasonInvalidPrice
		}
	}
	return schema.RejectReasonNone
}

func (e *Executor) riskState(instrument schema.InstrumentID) risk.StateView {
	state := risk.StateView{Now: e.clock.Now()}
	if e.positions != nil {
		state.Position = e.positions.Position(instrument)
	}
	d, ok := e.cache.Get(instrument)
	if !ok {
		return state
	}
	switch {
	case d.HasTrade && d.Trade.Price > 0:
		state.ReferencePrice = d.Trade.Price
	case d.HasQuote && d.Quote.Bid > 0 && d.Quote.Ask > 0:
		state.ReferencePrice = (d.Quote.Bid + d.Quote.Ask) / 2
	case d.HasBar && d.Bar.Close > 0:
		state.ReferencePrice = d.Bar.Close
	}
	return state
}
