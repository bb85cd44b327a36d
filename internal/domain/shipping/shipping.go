// Package shipping resolves a shipping-type tag into delivery estimation,
// disclosure conditions, surcharges, and the tax multiplier used on the
// invoice. New types register into the open registry without touching
// existing variants.
package shipping

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Estimate describes when an order is expected to arrive. Earliest and
// Latest bound the delivery date; for single-date types they are equal.
type Estimate struct {
	Earliest time.Time
	Latest   time.Time
	// Window is the delivery time window, e.g. "09:00 - 17:00".
	Window string
	Note   string
}

// CostLine is a single surcharge component.
type CostLine struct {
	Label  string
	Amount decimal.Decimal
}

// Cost is the surcharge breakdown for a shipping type.
type Cost struct {
	Lines []CostLine
	Total decimal.Decimal
}

func costOf(lines ...CostLine) Cost {
	c := Cost{Lines: lines, Total: decimal.Zero}
	for _, l := range lines {
		c.Total = c.Total.Add(l.Amount)
	}
	return c
}

// Type is a shipping-service variant with its own delivery and pricing
// rules.
type Type interface {
	// Tag is the registry key, e.g. "express".
	Tag() string
	Description() string
	// EstimatedDelivery computes the delivery estimate relative to now.
	EstimatedDelivery(now time.Time) Estimate
	// SpecialConditions returns the ordered disclosure strings shown to
	// the customer.
	SpecialConditions() []string
	// AdditionalCost returns the surcharges for an order with the given
	// base price.
	AdditionalCost(base decimal.Decimal) Cost
	// TaxMultiplier is applied to the discounted subtotal on the invoice.
	TaxMultiplier() decimal.Decimal
}

// Schedulable is implemented by types that accept a caller-supplied
// delivery date.
type Schedulable interface {
	EstimateFor(date time.Time) Estimate
}

// Registry maps shipping tags to their Type. Unrecognized tags fall back to
// standard with a warning.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
	lg    *zap.Logger
}

// NewRegistry creates a registry pre-populated with the built-in types.
// The same-day type uses the given cutoff time of day.
func NewRegistry(lg *zap.Logger, sameDayCutoff time.Duration) *Registry {
	r := &Registry{
		types: make(map[string]Type),
		lg:    lg,
	}
	r.Register(International{})
	r.Register(Express{})
	r.Register(Scheduled{})
	r.Register(Standard{})
	r.Register(EcoFriendly{})
	r.Register(SameDay{Cutoff: sameDayCutoff})
	return r
}

// Register adds or replaces a shipping type under its tag.
func (r *Registry) Register(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Tag()] = t
}

// Resolve returns the type for tag, falling back to standard for
// unrecognized tags. The fallback is logged, not an error.
func (r *Registry) Resolve(tag string) Type {
	r.mu.RLock()
	t, ok := r.types[tag]
	r.mu.RUnlock()
	if !ok {
		r.lg.Warn("unknown shipping type, falling back to standard",
			zap.String("shipping_type", tag))
		return Standard{}
	}
	return t
}

// Known reports whether tag is registered.
func (r *Registry) Known(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[tag]
	return ok
}

// Tags returns the sorted list of registered tags.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.types))
	for tag := range r.types {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
