// Package memory provides the in-memory Ledger holding customers and
// orders, and a bounded read-through cache that fronts it.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
)

var (
	_ customer.Repository = (*Ledger)(nil)
	_ order.Repository    = (*Ledger)(nil)
)

// Ledger is a map-backed store for customers and orders. Customer
// identifiers are assigned sequentially starting at 1 and never reused.
// Access is serialized by a mutex; lookups return copies so callers can
// mutate freely before writing back.
type Ledger struct {
	mu             sync.Mutex
	customers      map[int64]customer.Customer
	orders         map[int64]order.Order
	nextCustomerID int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		customers: make(map[int64]customer.Customer),
		orders:    make(map[int64]order.Order),
	}
}

// CreateCustomer registers a customer and returns its new identifier.
func (l *Ledger) CreateCustomer(_ context.Context, name, address string, tier customer.Tier) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextCustomerID++
	l.customers[l.nextCustomerID] = customer.Customer{
		ID:      l.nextCustomerID,
		Name:    name,
		Address: address,
		Tier:    tier,
	}
	return l.nextCustomerID, nil
}

// Customer returns the customer with the given identifier.
func (l *Ledger) Customer(_ context.Context, id int64) (*customer.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

// PutOrder stores or replaces an order under its identifier.
func (l *Ledger) PutOrder(_ context.Context, o *order.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[o.ID] = *o
	return nil
}

// Order returns the order with the given identifier.
func (l *Ledger) Order(_ context.Context, id int64) (*order.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

// LastOrderID returns the highest stored order identifier, or 0 when no
// orders exist.
func (l *Ledger) LastOrderID(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var last int64
	for id := range l.orders {
		if id > last {
			last = id
		}
	}
	return last, nil
}

// OrdersByCustomer returns the customer's orders sorted by identifier.
func (l *Ledger) OrdersByCustomer(_ context.Context, customerID int64) ([]*order.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*order.Order
	for _, o := range l.orders {
		if o.CustomerID == customerID {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
