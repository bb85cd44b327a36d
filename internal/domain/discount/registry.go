// Package discount holds the operator-managed named discount registry and
// the combined discount resolution used when pricing an order.
package discount

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
)

// ErrNotFound is returned when removing a discount name that is not
// registered for the given tier.
var ErrNotFound = errors.New("discount not found")

var one = decimal.NewFromInt(1)

// TierDiscount is the multiplicative result of all named discounts
// registered for a tier.
type TierDiscount struct {
	// Factor is the product of all registered factors; 1.0 when the tier
	// has no discounts registered.
	Factor decimal.Decimal
	// Applied lists the discount names that contributed to Factor, plus
	// the tier label itself.
	Applied []string
	// FreeShipping marks tiers whose base factor includes free shipping.
	FreeShipping bool
}

// Percent converts the factor into a discount percentage: (1-factor)*100.
func (d TierDiscount) Percent() decimal.Decimal {
	return one.Sub(d.Factor).Mul(decimal.NewFromInt(100))
}

// Registry stores named multiplicative discounts partitioned by tier.
// Names are unique within a tier; re-adding a name overwrites its factor.
type Registry struct {
	mu      sync.Mutex
	entries map[customer.Tier]map[string]decimal.Decimal
}

// NewRegistry creates an empty discount registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[customer.Tier]map[string]decimal.Decimal)}
}

// Add registers a named discount factor for a tier. A factor of 0.95 means
// 5% off.
func (r *Registry) Add(name string, factor decimal.Decimal, tier customer.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.entries[tier]
	if !ok {
		byName = make(map[string]decimal.Decimal)
		r.entries[tier] = byName
	}
	byName[name] = factor
}

// Remove unregisters a named discount. Removing an absent name is an error.
func (r *Registry) Remove(name string, tier customer.Tier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName := r.entries[tier]
	if _, ok := byName[name]; !ok {
		return errors.Wrapf(ErrNotFound, "%s/%s", tier, name)
	}
	delete(byName, name)
	return nil
}

// Compute returns the combined factor and applied names for a tier.
func (r *Registry) Compute(tier customer.Tier) TierDiscount {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries[tier]))
	for name := range r.entries[tier] {
		names = append(names, name)
	}
	sort.Strings(names)

	d := TierDiscount{Factor: one, FreeShipping: tier == customer.TierVIP}
	for _, name := range names {
		d.Factor = d.Factor.Mul(r.entries[tier][name])
		d.Applied = append(d.Applied, name)
	}
	d.Applied = append(d.Applied, fmt.Sprintf("customer %s", tier))
	return d
}
