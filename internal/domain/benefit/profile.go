package benefit

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
)

// Kind enumerates the supported temporary benefit primitives.
type Kind string

const (
	// KindExtraDiscount adds a flat percentage to the discount.
	KindExtraDiscount Kind = "extra_discount"
	// KindFreeShipping forces free shipping. It cannot be un-applied
	// later in the chain.
	KindFreeShipping Kind = "free_shipping"
	// KindCashback adds a flat percentage to the cashback.
	KindCashback Kind = "cashback"
	// KindEnhancedVIP raises the discount to at least 15%, forces free
	// shipping, and adds 3% cashback.
	KindEnhancedVIP Kind = "enhanced_vip"
)

var (
	fifteen = decimal.NewFromInt(15)
	three   = decimal.NewFromInt(3)
)

// Benefit is a single tagged benefit in a customer's chain. Amount is only
// meaningful for the discount and cashback kinds.
type Benefit struct {
	Kind   Kind
	Amount decimal.Decimal
}

// ExtraDiscount returns a benefit adding amount percent of discount.
func ExtraDiscount(amount decimal.Decimal) Benefit {
	return Benefit{Kind: KindExtraDiscount, Amount: amount}
}

// FreeShipping returns a benefit forcing free shipping.
func FreeShipping() Benefit {
	return Benefit{Kind: KindFreeShipping}
}

// Cashback returns a benefit adding amount percent of cashback.
func Cashback(amount decimal.Decimal) Benefit {
	return Benefit{Kind: KindCashback, Amount: amount}
}

// EnhancedVIP returns the temporary enhanced VIP benefit.
func EnhancedVIP() Benefit {
	return Benefit{Kind: KindEnhancedVIP}
}

// Profile is the benefit tuple produced for a customer: discount percent,
// free-shipping flag, cashback percent, and a human-readable description of
// the applied chain.
type Profile struct {
	Discount     decimal.Decimal
	FreeShipping bool
	Cashback     decimal.Decimal
	Description  string
}

// Base returns the tier-derived base profile: New 5%, Frequent 10%,
// VIP 15% with free shipping. Unknown tiers get no benefits.
func Base(tier customer.Tier) Profile {
	p := Profile{
		Discount:    decimal.Zero,
		Cashback:    decimal.Zero,
		Description: fmt.Sprintf("Customer %s", tierLabel(tier)),
	}
	switch tier {
	case customer.TierNew:
		p.Discount = decimal.NewFromInt(5)
	case customer.TierFrequent:
		p.Discount = decimal.NewFromInt(10)
	case customer.TierVIP:
		p.Discount = fifteen
		p.FreeShipping = true
	}
	return p
}

func tierLabel(tier customer.Tier) string {
	if tier == customer.TierUnknown {
		return "unknown"
	}
	return string(tier)
}

// Apply layers a single benefit over p and returns the new profile. It is
// pure: p is never mutated. Composition order only affects the description,
// except for the enhanced-VIP floor which takes the max with the upstream
// discount.
func Apply(p Profile, b Benefit) (Profile, error) {
	switch b.Kind {
	case KindExtraDiscount:
		p.Discount = p.Discount.Add(b.Amount)
		p.Description += fmt.Sprintf(" + Extra Discount %s%%", b.Amount)
	case KindFreeShipping:
		p.FreeShipping = true
		p.Description += " + Free Shipping"
	case KindCashback:
		p.Cashback = p.Cashback.Add(b.Amount)
		p.Description += fmt.Sprintf(" + Cashback %s%%", b.Amount)
	case KindEnhancedVIP:
		p.Discount = decimal.Max(p.Discount, fifteen)
		p.FreeShipping = true
		p.Cashback = p.Cashback.Add(three)
		p.Description += " + Enhanced VIP"
	default:
		return Profile{}, errors.Errorf("unsupported benefit kind: %q", b.Kind)
	}
	return p, nil
}

// ApplyAll folds the chain left-to-right over p.
func ApplyAll(p Profile, chain []Benefit) (Profile, error) {
	var err error
	for _, b := range chain {
		p, err = Apply(p, b)
		if err != nil {
			return Profile{}, err
		}
	}
	return p, nil
}
