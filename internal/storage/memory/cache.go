package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
)

// DefaultCacheCapacity matches the bounded map the cache replaces.
const DefaultCacheCapacity = 5

// lru is a fixed-capacity least-recently-used cache. The original design
// evicted an arbitrary entry (and only after exceeding capacity+1); this is
// the deliberate replacement with a correct boundary. Not safe for
// concurrent use; CachedLedger serializes access.
type lru[K comparable, V any] struct {
	capacity int
	order    *list.List
	entries  map[K]*list.Element
}

type lruEntry[K comparable, V any] struct {
	key K
	val V
}

func newLRU[K comparable, V any](capacity int) *lru[K, V] {
	return &lru[K, V]{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[K]*list.Element, capacity),
	}
}

func (c *lru[K, V]) get(key K) (V, bool) {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(lruEntry[K, V]).val, true
	}
	var zero V
	return zero, false
}

func (c *lru[K, V]) put(key K, val V) {
	if el, ok := c.entries[key]; ok {
		el.Value = lruEntry[K, V]{key: key, val: val}
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(lruEntry[K, V]).key)
	}
	c.entries[key] = c.order.PushFront(lruEntry[K, V]{key: key, val: val})
}

func (c *lru[K, V]) remove(key K) {
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

func (c *lru[K, V]) len() int { return c.order.Len() }

// CachedLedger fronts a Ledger with bounded LRU caches for customer and
// order lookups. Writes go straight through to the ledger; an order write
// also drops the cached copy so the next read fetches fresh data.
type CachedLedger struct {
	ledger *Ledger

	mu        sync.Mutex
	customers *lru[int64, customer.Customer]
	orders    *lru[int64, order.Order]
}

var (
	_ customer.Repository = (*CachedLedger)(nil)
	_ order.Repository    = (*CachedLedger)(nil)
)

// NewCachedLedger wraps the ledger with caches of the given capacity.
func NewCachedLedger(ledger *Ledger, capacity int) *CachedLedger {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c := &CachedLedger{
		ledger:    ledger,
		customers: newLRU[int64, customer.Customer](capacity),
		orders:    newLRU[int64, order.Order](capacity),
	}
	return c
}

// CreateCustomer delegates to the ledger; creations are not cached.
func (c *CachedLedger) CreateCustomer(ctx context.Context, name, address string, tier customer.Tier) (int64, error) {
	return c.ledger.CreateCustomer(ctx, name, address, tier)
}

// Customer returns the cached customer, fetching and inserting on a miss.
func (c *CachedLedger) Customer(ctx context.Context, id int64) (*customer.Customer, error) {
	c.mu.Lock()
	if cached, ok := c.customers.get(id); ok {
		c.mu.Unlock()
		return &cached, nil
	}
	c.mu.Unlock()

	fetched, err := c.ledger.Customer(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.customers.put(id, *fetched)
	c.mu.Unlock()
	return fetched, nil
}

// PutOrder writes through to the ledger and invalidates the cached entry.
func (c *CachedLedger) PutOrder(ctx context.Context, o *order.Order) error {
	if err := c.ledger.PutOrder(ctx, o); err != nil {
		return err
	}
	c.mu.Lock()
	c.orders.remove(o.ID)
	c.mu.Unlock()
	return nil
}

// Order returns the cached order, fetching and inserting on a miss.
func (c *CachedLedger) Order(ctx context.Context, id int64) (*order.Order, error) {
	c.mu.Lock()
	if cached, ok := c.orders.get(id); ok {
		c.mu.Unlock()
		return &cached, nil
	}
	c.mu.Unlock()

	fetched, err := c.ledger.Order(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.orders.put(id, *fetched)
	c.mu.Unlock()
	return fetched, nil
}

// LastOrderID always hits the ledger.
func (c *CachedLedger) LastOrderID(ctx context.Context) (int64, error) {
	return c.ledger.LastOrderID(ctx)
}

// OrdersByCustomer always hits the ledger; list results are not cached.
func (c *CachedLedger) OrdersByCustomer(ctx context.Context, customerID int64) ([]*order.Order, error) {
	return c.ledger.OrdersByCustomer(ctx, customerID)
}
