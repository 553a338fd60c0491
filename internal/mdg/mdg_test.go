package mdg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"simexec/internal/bus"
	"simexec/internal/obs"
	"simexec/internal/schema"
	"simexec/pkg/exception"
)

func registry(t *testing.T, symbols ...string) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	venue, err := reg.AddVenue("SIM")
	require.NoError(t, err)
	for _, s := range symbols {
		_, err := reg.AddInstrument(s, venue, "")
		require.NoError(t, err)
	}
	return reg
}

func TestGeneratorCyclesInstrumentsAndKinds(t *testing.T) {
	reg := registry(t, "HSI", "AAPL")
	all := schema.Kinds(0).With(schema.KindBar).With(schema.KindQuote).With(schema.KindTrade)
	gen, err := NewGenerator(reg, GeneratorConfig{Kinds: all, BasePrice: 100, Step: 0.5, Spread: 1, Seed: 1})
	require.NoError(t, err)

	var got []string
	for i := range 7 {
		tick := gen.Next(int64(i))
		got = append(got, tick.Symbol)
		switch tick.Kind {
		case schema.KindBar:
			assert.LessOrEqual(t, tick.Low, tick.Open)
			assert.GreaterOrEqual(t, tick.High, tick.Close)
			assert.Equal(t, int32(60), tick.BarSize)
		case schema.KindQuote:
			assert.InDelta(t, 1.0, tick.Ask-tick.Bid, 1e-9)
		case schema.KindTrade:
			assert.Positive(t, tick.Price)
		}
	}
	assert.Equal(t, []string{"HSI", "HSI", "HSI", "AAPL", "AAPL", "AAPL", "HSI"}, got)
}

func TestGeneratorIsDeterministic(t *testing.T) {
	reg := registry(t, "HSI")
	a, err := NewGenerator(reg, GeneratorConfig{Seed: 9})
	require.NoError(t, err)
	b, err := NewGenerator(reg, GeneratorConfig{Seed: 9})
	require.NoError(t, err)

	for i := range 50 {
		assert.Equal(t, a.Next(int64(i)), b.Next(int64(i)))
	}
}

func TestNewGeneratorRequiresInstruments(t *testing.T) {
	_, err := NewGenerator(schema.NewRegistry(), GeneratorConfig{})
	assert.True(t, errors.Is(err, exception.ErrInvalidArgument))
}

func TestNormalizeUnknownSymbol(t *testing.T) {
	var md schema.MarketData
	err := NewNormalizer(registry(t, "HSI")).Normalize(RawTick{Symbol: "X", Kind: schema.KindTrade}, &md)
	assert.True(t, errors.Is(err, exception.ErrUnknownInstrument))
}

func TestFeedPublishesInOrder(t *testing.T) {
	reg := registry(t, "HSI")
	ring, err := bus.NewRing[schema.MarketData](8)
	require.NoError(t, err)

	gen, err := NewGenerator(reg, GeneratorConfig{Kinds: schema.Kinds(0).With(schema.KindTrade), Seed: 3})
	require.NoError(t, err)

	n, err := Feed(context.Background(), ring, gen, NewNormalizer(reg), FeedConfig{Count: 6, Start: 1000, Step: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	for seq := range int64(6) {
		require.True(t, ring.IsPublished(seq))
		md := ring.Get(seq)
		assert.True(t, md.Kinds.Has(schema.KindTrade))
		assert.Equal(t, schema.InstrumentID(1), md.InstrumentID)
		assert.Equal(t, 1000+seq*10, md.Timestamp)
	}
}

func TestFeedStopsOnFullRing(t *testing.T) {
	reg := registry(t, "HSI")
	ring, err := bus.NewRing[schema.MarketData](2)
	require.NoError(t, err)
	ring.Attach(bus.NewSequence(bus.InitialSequence), nil)

	gen, err := NewGenerator(reg, GeneratorConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	metrics := obs.NewMetrics()
	n, err := Feed(ctx, ring, gen, NewNormalizer(reg), FeedConfig{Count: 5}, metrics)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, n)
	assert.Positive(t, metrics.Snapshot().RingFull)
}
