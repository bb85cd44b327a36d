package shipping

import (
	"time"

	"github.com/shopspring/decimal"
)

// Built-in tags.
const (
	TagInternational = "international"
	TagExpress       = "express"
	TagScheduled     = "scheduled"
	TagStandard      = "standard"
	TagEcoFriendly   = "eco_friendly"
	TagSameDay       = "same_day"
)

var (
	taxInternational = decimal.RequireFromString("1.30")
	taxExpress       = decimal.RequireFromString("1.15")
	taxNone          = decimal.NewFromInt(1)

	insuranceRate = decimal.RequireFromString("0.03")
	customsFee    = decimal.RequireFromString("25.00")
	premiumFee    = decimal.RequireFromString("15.00")
	trackingFee   = decimal.RequireFromString("5.00")
	schedulingFee = decimal.RequireFromString("8.00")
	packagingFee  = decimal.RequireFromString("3.50")
	carbonFee     = decimal.RequireFromString("2.00")
	sameDayFee    = decimal.RequireFromString("25.00")
	courierFee    = decimal.RequireFromString("10.00")
)

// International ships abroad: 7-15 days plus 3 days of customs handling,
// 3% insurance and a flat customs fee, 30% tax.
type International struct{}

func (International) Tag() string         { return TagInternational }
func (International) Description() string { return "International premium shipping" }

func (International) EstimatedDelivery(now time.Time) Estimate {
	const customsDays = 3
	return Estimate{
		Earliest: now.AddDate(0, 0, 7+customsDays),
		Latest:   now.AddDate(0, 0, 15+customsDays),
		Note:     "includes 3 days of customs handling",
	}
}

func (International) SpecialConditions() []string {
	return []string{
		"Customs documentation required",
		"International insurance included",
		"Possible delays due to customs inspection",
		"Local import taxes may apply in the destination country",
	}
}

func (International) AdditionalCost(base decimal.Decimal) Cost {
	return costOf(
		CostLine{Label: "international insurance", Amount: base.Mul(insuranceRate).Round(2)},
		CostLine{Label: "customs processing", Amount: customsFee},
	)
}

func (International) TaxMultiplier() decimal.Decimal { return taxInternational }

// Express delivers the next business day; weekend targets shift forward to
// Monday.
type Express struct{}

func (Express) Tag() string         { return TagExpress }
func (Express) Description() string { return "Express shipping with live tracking" }

func (Express) EstimatedDelivery(now time.Time) Estimate {
	target := now.AddDate(0, 0, 1)
	for target.Weekday() == time.Saturday || target.Weekday() == time.Sunday {
		target = target.AddDate(0, 0, 1)
	}
	return Estimate{
		Earliest: target,
		Latest:   target,
		Window:   "09:00 - 18:00",
		Note:     "next business day",
	}
}

func (Express) SpecialConditions() []string {
	return []string{
		"Delivery during business hours (9:00-18:00)",
		"Real-time tracking included",
		"Highest processing priority",
		"SMS delivery notifications",
	}
}

func (Express) AdditionalCost(decimal.Decimal) Cost {
	return costOf(
		CostLine{Label: "express service", Amount: premiumFee},
		CostLine{Label: "premium tracking", Amount: trackingFee},
	)
}

func (Express) TaxMultiplier() decimal.Decimal { return taxExpress }

// Scheduled delivers on a caller-chosen date, defaulting to five days out.
type Scheduled struct{}

func (Scheduled) Tag() string         { return TagScheduled }
func (Scheduled) Description() string { return "Scheduled flexible delivery" }

func (s Scheduled) EstimatedDelivery(now time.Time) Estimate {
	return s.EstimateFor(now.AddDate(0, 0, 5))
}

// EstimateFor returns the estimate for a specific delivery date.
func (Scheduled) EstimateFor(date time.Time) Estimate {
	return Estimate{
		Earliest: date,
		Latest:   date,
		Window:   "09:00 - 17:00",
		Note:     "reschedulable up to 24h in advance",
	}
}

func (Scheduled) SpecialConditions() []string {
	return []string{
		"Delivery on the selected date",
		"8 hour delivery window",
		"Reschedulable with 24h notice",
		"Email confirmation 24h before delivery",
	}
}

func (Scheduled) AdditionalCost(decimal.Decimal) Cost {
	return costOf(CostLine{Label: "scheduling service", Amount: schedulingFee})
}

func (Scheduled) TaxMultiplier() decimal.Decimal { return taxNone }

// Standard is the economy default: 3-7 business days, no surcharges.
type Standard struct{}

func (Standard) Tag() string         { return TagStandard }
func (Standard) Description() string { return "Standard economy shipping" }

func (Standard) EstimatedDelivery(now time.Time) Estimate {
	return Estimate{
		Earliest: now.AddDate(0, 0, 3),
		Latest:   now.AddDate(0, 0, 7),
	}
}

func (Standard) SpecialConditions() []string {
	return []string{
		"Most economical option",
		"Delivery during business hours",
		"Basic tracking included",
		"May be consolidated with other orders",
	}
}

func (Standard) AdditionalCost(decimal.Decimal) Cost { return costOf() }

func (Standard) TaxMultiplier() decimal.Decimal { return taxNone }

// EcoFriendly trades 1-2 extra days for biodegradable packaging and carbon
// offsetting.
type EcoFriendly struct{}

func (EcoFriendly) Tag() string         { return TagEcoFriendly }
func (EcoFriendly) Description() string { return "Eco-friendly sustainable shipping" }

func (EcoFriendly) EstimatedDelivery(now time.Time) Estimate {
	return Estimate{
		Earliest: now.AddDate(0, 0, 4),
		Latest:   now.AddDate(0, 0, 6),
		Note:     "extra time for sustainable packaging",
	}
}

func (EcoFriendly) SpecialConditions() []string {
	return []string{
		"100% biodegradable packaging",
		"Carbon neutral delivery",
		"Recycled and recyclable materials",
		"Reforestation contribution included",
	}
}

func (EcoFriendly) AdditionalCost(decimal.Decimal) Cost {
	return costOf(
		CostLine{Label: "biodegradable packaging", Amount: packagingFee},
		CostLine{Label: "carbon offset", Amount: carbonFee},
	)
}

func (EcoFriendly) TaxMultiplier() decimal.Decimal { return taxNone }

// SameDay delivers on the order date when placed before Cutoff (time of day
// since midnight), otherwise the next morning.
type SameDay struct {
	Cutoff time.Duration
}

// DefaultSameDayCutoff is the order deadline for same-day delivery.
const DefaultSameDayCutoff = 14 * time.Hour

func (SameDay) Tag() string         { return TagSameDay }
func (SameDay) Description() string { return "Same day delivery" }

func (s SameDay) EstimatedDelivery(now time.Time) Estimate {
	cutoff := s.Cutoff
	if cutoff == 0 {
		cutoff = DefaultSameDayCutoff
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Sub(midnight) <= cutoff {
		return Estimate{
			Earliest: midnight,
			Latest:   midnight,
			Window:   "18:00 - 21:00",
			Note:     "ordered before cutoff",
		}
	}
	next := midnight.AddDate(0, 0, 1)
	return Estimate{
		Earliest: next,
		Latest:   next,
		Window:   "09:00 - 12:00",
		Note:     "ordered after cutoff, delivered next morning",
	}
}

func (s SameDay) SpecialConditions() []string {
	return []string{
		"Order must be placed before the daily cutoff",
		"Available in the metropolitan area only",
		"Dedicated courier delivery",
		"Live GPS tracking",
	}
}

func (SameDay) AdditionalCost(decimal.Decimal) Cost {
	return costOf(
		CostLine{Label: "same day service", Amount: sameDayFee},
		CostLine{Label: "dedicated courier", Amount: courierFee},
	)
}

func (SameDay) TaxMultiplier() decimal.Decimal { return taxNone }
