// Package mdcache keeps the last known bar, quote and trade per instrument.
package mdcache

import (
	"sync"

	"simexec/internal/schema"
)

// InstrumentData is the latest market state of one instrument. A variant is
// only meaningful when its Has flag is set.
type InstrumentData struct {
	InstrumentID schema.InstrumentID

	Bar   schema.Bar
	Quote schema.Quote
	Trade schema.Trade

	HasBar   bool
	HasQuote bool
	HasTrade bool
}

// Cache is written by the dispatch loop and read by order submission.
// Updates overwrite unconditionally; no history is kept.
type Cache struct {
	mu   sync.RWMutex
	data map[schema.InstrumentID]*InstrumentData
}

func New() *Cache {
	return &Cache{data: make(map[schema.InstrumentID]*InstrumentData)}
}

func (c *Cache) entry(id schema.InstrumentID) *InstrumentData {
	d, ok := c.data[id]
	if !ok {
		d = &InstrumentData{InstrumentID: id}
		c.data[id] = d
	}
	return d
}

// Update stores every variant present in md.
func (c *Cache) Update(md *schema.MarketData) {
	if md.Kinds == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.entry(md.InstrumentID)
	if md.Kinds.Has(schema.KindBar) {
		d.Bar, d.HasBar = md.Bar, true
	}
	if md.Kinds.Has(schema.KindQuote) {
		d.Quote, d.HasQuote = md.Quote, true
	}
	if md.Kinds.Has(schema.KindTrade) {
		d.Trade, d.HasTrade = md.Trade, true
	}
}

func (c *Cache) UpdateBar(b *schema.Bar) {
	c.mu.Lock()
	d := c.entry(b.InstrumentID)
	d.Bar, d.HasBar = *b, true
	c.mu.Unlock()
}

// UpdateQuote stores q and returns the quote it replaced, if any.
func (c *Cache) UpdateQuote(q *schema.Quote) (prev schema.Quote, ok bool) {
	c.mu.Lock()
	d := c.entry(q.InstrumentID)
	prev, ok = d.Quote, d.HasQuote
	d.Quote, d.HasQuote = *q, true
	c.mu.Unlock()
	return prev, ok
}

func (c *Cache) UpdateTrade(t *schema.Trade) {
	c.mu.Lock()
	d := c.entry(t.InstrumentID)
	d.Trade, d.HasTrade = *t, true
	c.mu.Unlock()
}

// Get returns a copy of the instrument's latest data.
func (c *Cache) Get(id schema.InstrumentID) (InstrumentData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.data[id]
	if !ok {
		return InstrumentData{InstrumentID: id}, false
	}
	return *d, true
}

// Len returns the number of instruments seen.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
