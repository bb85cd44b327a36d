package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Tier classifies a customer and drives the base discount and shipping perk.
type Tier string

const (
	TierUnknown  Tier = ""
	TierNew      Tier = "new"
	TierFrequent Tier = "frequent"
	TierVIP      Tier = "vip"
)

// ParseTier maps a tier tag to a Tier. Unrecognized tags map to TierUnknown;
// callers treat unknown tiers as having no automatic benefits.
func ParseTier(s string) Tier {
	switch s {
	case "new":
		return TierNew
	case "frequent":
		return TierFrequent
	case "vip":
		return TierVIP
	default:
		return TierUnknown
	}
}

// Customer is a registered store customer. The tier is immutable once set.
type Customer struct {
	ID      int64
	Name    string
	Address string
	Tier    Tier
}

// Repository defines customer persistence operations. Identifiers are
// assigned sequentially by the implementation and never reused. Method
// names carry the entity so one ledger type can implement both this and
// the order repository.
type Repository interface {
	CreateCustomer(ctx context.Context, name, address string, tier Tier) (int64, error)
	Customer(ctx context.Context, id int64) (*Customer, error)
}
