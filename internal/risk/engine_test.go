package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"simexec/internal/schema"
)

func limitOrder(side schema.Side, price, qty float64) *schema.Order {
	return &schema.Order{ID: 1, InstrumentID: 1, Side: side, Type: schema.OrdTypeLimit, LimitPrice: price, OrdQty: qty}
}

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		desc     string
		cfg      Config
		order    *schema.Order
		state    StateView
		expected schema.RejectReason
	}{
		{"no limits", Config{}, limitOrder(schema.SideBuy, 100, 1_000), StateView{}, schema.RejectReasonNone},
		{"kill switch", Config{KillSwitch: true}, limitOrder(schema.SideBuy, 100, 1), StateView{}, schema.RejectReasonKillSwitch},
		{"max qty", Config{MaxOrderQty: 10}, limitOrder(schema.SideBuy, 100, 11), StateView{}, schema.RejectReasonMaxQty},
		{"max notional", Config{MaxOrderNotional: 999}, limitOrder(schema.SideSell, 100, 10), StateView{}, schema.RejectReasonMaxNotional},
		{
			"market notional uses reference price",
			Config{MaxOrderNotional: 999},
			&schema.Order{Side: schema.SideBuy, Type: schema.OrdTypeMarket, OrdQty: 10},
			StateView{ReferencePrice: 100},
			schema.RejectReasonMaxNotional,
		},
		{"price band", Config{MaxPriceDeviationBps: 50}, limitOrder(schema.SideBuy, 101, 1), StateView{ReferencePrice: 100}, schema.RejectReasonPriceBand},
		{"inside price band", Config{MaxPriceDeviationBps: 150}, limitOrder(schema.SideBuy, 101, 1), StateView{ReferencePrice: 100}, schema.RejectReasonNone},
		{"position limit", Config{MaxPosition: 5}, limitOrder(schema.SideSellShort, 100, 3), StateView{Position: -3}, schema.RejectReasonPositionLimit},
		{"reducing position", Config{MaxPosition: 5}, limitOrder(schema.SideSell, 100, 3), StateView{Position: 5}, schema.RejectReasonNone},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, NewEngine(tc.cfg).Evaluate(tc.order, tc.state))
		})
	}
}

func TestEvaluateRateLimit(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 2, OrderRateWindow: time.Second})
	o := limitOrder(schema.SideBuy, 100, 1)

	assert.Equal(t, schema.RejectReasonNone, e.Evaluate(o, StateView{Now: 1}))
	assert.Equal(t, schema.RejectReasonNone, e.Evaluate(o, StateView{Now: 2}))
	assert.Equal(t, schema.RejectReasonRateLimit, e.Evaluate(o, StateView{Now: 3}))
	assert.Equal(t, schema.RejectReasonNone, e.Evaluate(o, StateView{Now: 1 + int64(time.Second)}))
}

func TestNilEngineAllows(t *testing.T) {
	var e *Engine
	assert.Equal(t, schema.RejectReasonNone, e.Evaluate(limitOrder(schema.SideBuy, 1, 1), StateView{}))
}
