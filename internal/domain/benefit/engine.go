package benefit

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
)

// Preset names a fixed benefit chain applied atomically.
type Preset string

const (
	PresetVIPPremiumTemporal Preset = "vip_premium_temporal"
	PresetBlackFriday        Preset = "black_friday"
	PresetNewCustomerPlus    Preset = "new_customer_plus"
)

// ErrUnknownPreset is returned when a preset name is not recognized.
var ErrUnknownPreset = errors.New("unknown benefit preset")

func presetChain(p Preset) ([]Benefit, error) {
	switch p {
	case PresetVIPPremiumTemporal:
		return []Benefit{
			ExtraDiscount(decimal.NewFromInt(5)),
			FreeShipping(),
			Cashback(three),
		}, nil
	case PresetBlackFriday:
		return []Benefit{
			ExtraDiscount(decimal.NewFromInt(10)),
			FreeShipping(),
			Cashback(decimal.NewFromInt(5)),
		}, nil
	case PresetNewCustomerPlus:
		return []Benefit{
			ExtraDiscount(three),
			FreeShipping(),
		}, nil
	default:
		return nil, ErrUnknownPreset
	}
}

// Engine tracks the temporary benefits currently active per customer and
// computes the resulting profile on demand. Benefits never modify the
// customer record itself.
type Engine struct {
	mu     sync.Mutex
	active map[int64][]Benefit
}

// NewEngine creates an empty benefit engine.
func NewEngine() *Engine {
	return &Engine{active: make(map[int64][]Benefit)}
}

// Grant appends a benefit to the customer's active chain.
func (e *Engine) Grant(customerID int64, b Benefit) error {
	switch b.Kind {
	case KindExtraDiscount, KindFreeShipping, KindCashback, KindEnhancedVIP:
	default:
		return errors.Errorf("unsupported benefit kind: %q", b.Kind)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[customerID] = append(e.active[customerID], b)
	return nil
}

// GrantPreset appends the preset's full chain atomically: either every
// benefit in the preset becomes active or none does.
func (e *Engine) GrantPreset(customerID int64, p Preset) error {
	chain, err := presetChain(p)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[customerID] = append(e.active[customerID], chain...)
	return nil
}

// Active returns a copy of the customer's active benefit chain.
func (e *Engine) Active(customerID int64) []Benefit {
	e.mu.Lock()
	defer e.mu.Unlock()
	chain := e.active[customerID]
	out := make([]Benefit, len(chain))
	copy(out, chain)
	return out
}

// Clear removes all temporary benefits for the customer.
func (e *Engine) Clear(customerID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, customerID)
}

// ProfileFor folds the customer's active chain over the tier base profile.
func (e *Engine) ProfileFor(c *customer.Customer) (Profile, error) {
	return ApplyAll(Base(c.Tier), e.Active(c.ID))
}

// Suggest returns the benefits a customer qualifies for automatically:
// a welcome bundle for new customers, loyalty cashback for frequent ones,
// and the temporary enhanced profile for VIPs.
func Suggest(tier customer.Tier) []Benefit {
	switch tier {
	case customer.TierNew:
		return []Benefit{
			ExtraDiscount(three),
			FreeShipping(),
		}
	case customer.TierFrequent:
		return []Benefit{Cashback(decimal.NewFromInt(2))}
	case customer.TierVIP:
		return []Benefit{EnhancedVIP()}
	default:
		return nil
	}
}
