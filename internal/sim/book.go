package sim

import (
	"sync"

	"github.com/google/btree"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

const bookDegree = 16

// book holds the resting orders of one instrument in ascending order id.
// Every access to orders and to the orders' state happens under mu.
type book struct {
	mu      sync.Mutex
	id      schema.InstrumentID
	orders  *btree.BTreeG[*schema.Order]
	scratch []*schema.Order
}

func byOrderID(a, b *schema.Order) bool {
	return a.ID < b.ID
}

func newBook(id schema.InstrumentID) *book {
	return &book{
		id:     id,
		orders: btree.NewG(bookDegree, byOrderID),
	}
}

// snapshotLocked copies the resting orders into the reusable scratch slice so
// fills can remove orders while the pass iterates.
func (b *book) snapshotLocked() []*schema.Order {
	b.scratch = b.scratch[:0]
	b.orders.Ascend(func(o *schema.Order) bool {
		b.scratch = append(b.scratch, o)
		return true
	})
	return b.scratch
}

func (b *book) releaseSnapshot() {
	clear(b.scratch)
	b.scratch = b.scratch[:0]
}

func (b *book) getLocked(id schema.OrderID) (*schema.Order, bool) {
	key := schema.Order{ID: id}
	return b.orders.Get(&key)
}

// bookFor returns the instrument's book, creating it when create is set.
func (e *Executor) bookFor(id schema.InstrumentID, create bool) *book {
	e.mu.RLock()
	b, ok := e.books[id]
	e.mu.RUnlock()
	if ok || !create {
		return b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok = e.books[id]; !ok {
		b = newBook(id)
		e.books[id] = b
	}
	return b
}

// registerLocked adds o to b. The caller holds b.mu.
func (e *Executor) registerLocked(b *book, o *schema.Order) error {
	e.mu.Lock()
	if _, ok := e.index[o.ID]; ok {
		e.mu.Unlock()
		return errors.Wrapf(exception.ErrOrderDuplicate, "order id: %d", o.ID)
	}
	e.index[o.ID] = b.id
	e.mu.Unlock()

	b.orders.ReplaceOrInsert(o)
	return nil
}

// removeLocked takes o out of b. Removing an order that is not resting is
// ignored unless the executor runs with StrictRemove. The caller holds b.mu.
func (e *Executor) removeLocked(b *book, o *schema.Order) error {
	if _, ok := b.orders.Delete(o); !ok {
		if !e.cfg.StrictRemove {
			return nil
		}
		err := errors.Wrapf(exception.ErrOrderNotFound, "remove order id: %d, instrument: %d", o.ID, o.InstrumentID)
		logs.Errorf("remove resting order, err: %+v", err)
		return err
	}

	e.mu.Lock()
	delete(e.index, o.ID)
	e.mu.Unlock()
	return nil
}

// locate finds the book of a resting order. instrument may be zero when the
// caller does not know it.
func (e *Executor) locate(id schema.OrderID, instrument schema.InstrumentID) (*book, bool) {
	if instrument == 0 {
		e.mu.RLock()
		inst, ok := e.index[id]
		e.mu.RUnlock()
		if !ok {
			return nil, false
		}
		instrument = inst
	}
	b := e.bookFor(instrument, false)
	return b, b != nil
}

// Resting returns a copy of a resting order.
func (e *Executor) Resting(id schema.OrderID) (schema.Order, bool) {
	b, ok := e.locate(id, 0)
	if !ok {
		return schema.Order{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.getLocked(id)
	if !ok {
		return schema.Order{}, false
	}
	return *o, true
}

// RestingCount returns the number of resting orders of an instrument.
func (e *Executor) RestingCount(instrument schema.InstrumentID) int {
	b := e.bookFor(instrument, false)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders.Len()
}

// RestingOrders returns copies of the resting orders of an instrument in
// ascending order id.
func (e *Executor) RestingOrders(instrument schema.InstrumentID) []schema.Order {
	b := e.bookFor(instrument, false)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]schema.Order, 0, b.orders.Len())
	b.orders.Ascend(func(o *schema.Order) bool {
		out = append(out, *o)
		return true
	})
	return out
}
