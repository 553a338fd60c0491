// Package oms is the order-management side of the simulator: it submits
// orders to an execution provider and keeps its own view of them from the
// execution reports it receives.
package oms

import (
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

// Provider is an execution provider the manager routes requests to.
type Provider interface {
	ProviderID() string
	Connected() bool
	OnOrderSubmit(o *schema.Order) error
	OnOrderCancelRequest(req schema.CancelRequest) error
	OnOrderCancelReplaceRequest(req schema.ReplaceRequest) error
}

// Listener observes every accepted execution report, in delivery order.
type Listener func(report schema.ExecutionReport)

// Manager receives execution reports, checks them against the order
// lifecycle and fans them out to listeners. It is safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	provider   Provider
	state      *StateMachine
	listeners  []Listener
	violations []error
}

func NewManager() *Manager {
	return &Manager{state: NewStateMachine()}
}

// Attach sets the provider that Send, Cancel and Replace route to.
func (m *Manager) Attach(p Provider) {
	m.mu.Lock()
	m.provider = p
	m.mu.Unlock()
}

// Subscribe adds a listener. Listeners run on the goroutine delivering the
// report and must not block.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

func (m *Manager) attached() (Provider, error) {
	m.mu.Lock()
	p := m.provider
	m.mu.Unlock()
	if p == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "execution provider")
	}
	return p, nil
}

// Send submits a new order.
func (m *Manager) Send(o *schema.Order) error {
	p, err := m.attached()
	if err != nil {
		return err
	}
	if err := p.OnOrderSubmit(o); err != nil {
		return errors.Wrapf(err, "submit order id: %d to %s", o.ID, p.ProviderID())
	}
	return nil
}

func (m *Manager) Cancel(req schema.CancelRequest) error {
	p, err := m.attached()
	if err != nil {
		return err
	}
	return p.OnOrderCancelRequest(req)
}

func (m *Manager) Replace(req schema.ReplaceRequest) error {
	p, err := m.attached()
	if err != nil {
		return err
	}
	return p.OnOrderCancelReplaceRequest(req)
}

// OnExecutionReport applies a report. Reports that break the lifecycle are
// logged and kept as violations; listeners only see accepted reports.
func (m *Manager) OnExecutionReport(report schema.ExecutionReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.state.Apply(report); err != nil {
		logs.Errorf("apply execution report id: %d, err: %+v", report.ID, err)
		m.violations = append(m.violations, err)
		return
	}
	for _, l := range m.listeners {
		l(report)
	}
}

// Order returns a copy of the manager's view of an order.
func (m *Manager) Order(id schema.OrderID) (OrderView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.state.Order(id)
	if !ok {
		return OrderView{}, false
	}
	return *o, true
}

// Violations returns the lifecycle errors seen so far.
func (m *Manager) Violations() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.violations...)
}

// Summary counts known orders by status.
func (m *Manager) Summary() map[schema.OrdStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[schema.OrdStatus]int)
	for _, o := range m.state.orders {
		out[o.Status]++
	}
	return out
}
