package discount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/benefit"
	"github.com/xenking/storefront/internal/domain/customer"
)

var hundred = decimal.NewFromInt(100)

// AutomaticDiscount returns the static per-tier automatic discount percent:
// New 5, Frequent 10, VIP 15, anything else 0.
func AutomaticDiscount(tier customer.Tier) decimal.Decimal {
	switch tier {
	case customer.TierNew:
		return decimal.NewFromInt(5)
	case customer.TierFrequent:
		return decimal.NewFromInt(10)
	case customer.TierVIP:
		return decimal.NewFromInt(15)
	default:
		return decimal.Zero
	}
}

// AutomaticFreeShipping reports whether the tier grants free shipping by
// itself. Only VIP does.
func AutomaticFreeShipping(tier customer.Tier) bool {
	return tier == customer.TierVIP
}

// Resolution is the combined pricing input for an order: the winning
// discount percent, whether shipping is free, the cashback percent, and the
// list of applied benefit labels.
type Resolution struct {
	DiscountPercent decimal.Decimal
	// Multiplier is 1 - DiscountPercent/100, applied to the cart subtotal.
	Multiplier      decimal.Decimal
	FreeShipping    bool
	CashbackPercent decimal.Decimal
	Description     string
	Applied         []string
}

// Resolve combines the three discount sources under the best-benefit-wins
// policy: the discount percent is the maximum of the benefit profile, the
// automatic tier table, and the registry-derived percent, and free shipping
// is the OR of all contributing flags. Benefits never stack against the
// customer.
func Resolve(profile benefit.Profile, tier customer.Tier, registered TierDiscount) Resolution {
	pct := decimal.Max(
		profile.Discount,
		AutomaticDiscount(tier),
		registered.Percent(),
	)

	res := Resolution{
		DiscountPercent: pct,
		Multiplier:      one.Sub(pct.Div(hundred)),
		FreeShipping:    profile.FreeShipping || AutomaticFreeShipping(tier) || registered.FreeShipping,
		CashbackPercent: profile.Cashback,
		Description:     profile.Description,
	}

	if pct.IsPositive() {
		res.Applied = append(res.Applied, fmt.Sprintf("Discount %s: %s%%", tier, pct))
	}
	if res.FreeShipping {
		res.Applied = append(res.Applied, "Free shipping")
	}
	if res.CashbackPercent.IsPositive() {
		res.Applied = append(res.Applied, fmt.Sprintf("Cashback: %s%%", res.CashbackPercent))
	}
	for _, name := range registered.Applied {
		res.Applied = append(res.Applied, fmt.Sprintf("Special discount: %s", name))
	}
	return res
}
