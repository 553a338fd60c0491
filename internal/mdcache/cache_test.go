package mdcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simexec/internal/schema"
)

func TestCacheUpdateOverwritesPresentVariants(t *testing.T) {
	c := New()

	var md schema.MarketData
	md.Reset()
	md.SetBar(schema.Bar{InstrumentID: 7, Timestamp: 1, Close: 98})
	md.SetQuote(schema.Quote{InstrumentID: 7, Timestamp: 1, Bid: 97, Ask: 99})
	c.Update(&md)

	md.Reset()
	md.SetTrade(schema.Trade{InstrumentID: 7, Timestamp: 2, Price: 98.5, Size: 3})
	c.Update(&md)

	got, ok := c.Get(7)
	require.True(t, ok)
	assert.True(t, got.HasBar)
	assert.True(t, got.HasQuote)
	assert.True(t, got.HasTrade)
	assert.Equal(t, 98.0, got.Bar.Close)
	assert.Equal(t, 99.0, got.Quote.Ask)
	assert.Equal(t, 98.5, got.Trade.Price)
	assert.Equal(t, 1, c.Len())
}

func TestCacheGetUnknownInstrument(t *testing.T) {
	got, ok := New().Get(42)
	assert.False(t, ok)
	assert.Equal(t, schema.InstrumentID(42), got.InstrumentID)
	assert.False(t, got.HasQuote)
}

func TestCacheUpdateQuoteReturnsPrevious(t *testing.T) {
	c := New()

	_, ok := c.UpdateQuote(&schema.Quote{InstrumentID: 1, Bid: 10, Ask: 11})
	assert.False(t, ok)

	prev, ok := c.UpdateQuote(&schema.Quote{InstrumentID: 1, Bid: 10.5, Ask: 11})
	require.True(t, ok)
	assert.Equal(t, 10.0, prev.Bid)

	got, _ := c.Get(1)
	assert.Equal(t, 10.5, got.Quote.Bid)
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c := New()
	c.UpdateTrade(&schema.Trade{InstrumentID: 1, Price: 5})

	got, _ := c.Get(1)
	got.Trade.Price = 6

	again, _ := c.Get(1)
	assert.Equal(t, 5.0, again.Trade.Price)
}

func TestCacheConcurrentReadWrite(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			c.UpdateBar(&schema.Bar{InstrumentID: 1, Close: float64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			c.Get(1)
		}
	}()
	wg.Wait()

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 999.0, got.Bar.Close)
}
