package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	createCustomerSQL = `INSERT INTO customers (name, address, tier)
	VALUES ($1, $2, $3) RETURNING id`

	getCustomerSQL = `SELECT id, name, address, tier FROM customers WHERE id = $1`

	putOrderSQL = `INSERT INTO orders (
		id, customer_id, address, shipping_type, status, items,
		shipping_base, shipping_charged, estimate, surcharge, invoice, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		address = EXCLUDED.address,
		status = EXCLUDED.status,
		items = EXCLUDED.items,
		shipping_base = EXCLUDED.shipping_base,
		shipping_charged = EXCLUDED.shipping_charged`

	getOrderSQL = `SELECT id, customer_id, address, shipping_type, status, items,
		shipping_base, shipping_charged, estimate, surcharge, invoice, created_at
	FROM orders WHERE id = $1`

	ordersByCustomerSQL = `SELECT id, customer_id, address, shipping_type, status, items,
		shipping_base, shipping_charged, estimate, surcharge, invoice, created_at
	FROM orders WHERE customer_id = $1 ORDER BY id`

	lastOrderIDSQL = `SELECT COALESCE(MAX(id), 0) FROM orders`
)

var (
	_ customer.Repository = (*Ledger)(nil)
	_ order.Repository    = (*Ledger)(nil)
)

// Ledger implements the customer and order repositories backed by
// PostgreSQL. Structured order fields are stored as JSONB.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a Ledger that uses the given pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// CreateCustomer inserts a customer and returns the assigned identifier.
func (l *Ledger) CreateCustomer(ctx context.Context, name, address string, tier customer.Tier) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx, createCustomerSQL, name, address, string(tier)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating customer %q: %w", name, err)
	}
	return id, nil
}

// Customer looks up a customer by identifier.
func (l *Ledger) Customer(ctx context.Context, id int64) (*customer.Customer, error) {
	var (
		c    customer.Customer
		tier string
	)
	err := l.pool.QueryRow(ctx, getCustomerSQL, id).Scan(&c.ID, &c.Name, &c.Address, &tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("finding customer %d: %w", id, err)
	}
	c.Tier = customer.ParseTier(tier)
	return &c, nil
}

// PutOrder upserts an order. Items, estimate, surcharge, and invoice are
// serialized to JSONB columns.
func (l *Ledger) PutOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	estimate, err := json.Marshal(o.Estimate)
	if err != nil {
		return fmt.Errorf("marshaling order estimate: %w", err)
	}
	surcharge, err := json.Marshal(o.Surcharge)
	if err != nil {
		return fmt.Errorf("marshaling order surcharge: %w", err)
	}
	invoice, err := json.Marshal(o.Invoice)
	if err != nil {
		return fmt.Errorf("marshaling order invoice: %w", err)
	}

	_, err = l.pool.Exec(ctx, putOrderSQL,
		o.ID, o.CustomerID, o.Address, o.ShippingType, string(o.Status), items,
		o.ShippingBase, o.ShippingCharged, estimate, surcharge, invoice, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storing order %d: %w", o.ID, err)
	}
	return nil
}

// Order looks up an order by identifier.
func (l *Ledger) Order(ctx context.Context, id int64) (*order.Order, error) {
	o, err := scanOrder(l.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %d: %w", id, err)
	}
	return o, nil
}

// LastOrderID returns the highest persisted order identifier, or 0 when the
// orders table is empty.
func (l *Ledger) LastOrderID(ctx context.Context) (int64, error) {
	var last int64
	if err := l.pool.QueryRow(ctx, lastOrderIDSQL).Scan(&last); err != nil {
		return 0, fmt.Errorf("reading last order id: %w", err)
	}
	return last, nil
}

// OrdersByCustomer returns the customer's orders sorted by identifier.
func (l *Ledger) OrdersByCustomer(ctx context.Context, customerID int64) ([]*order.Order, error) {
	rows, err := l.pool.Query(ctx, ordersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %d: %w", customerID, err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o         order.Order
		status    string
		items     []byte
		estimate  []byte
		surcharge []byte
		invoice   []byte
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Address, &o.ShippingType, &status, &items,
		&o.ShippingBase, &o.ShippingCharged, &estimate, &surcharge, &invoice, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = order.Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(estimate, &o.Estimate); err != nil {
		return nil, fmt.Errorf("unmarshaling order estimate: %w", err)
	}
	if err := json.Unmarshal(surcharge, &o.Surcharge); err != nil {
		return nil, fmt.Errorf("unmarshaling order surcharge: %w", err)
	}
	if err := json.Unmarshal(invoice, &o.Invoice); err != nil {
		return nil, fmt.Errorf("unmarshaling order invoice: %w", err)
	}
	return &o, nil
}
