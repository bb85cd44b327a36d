package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/shipping"
)

// Sentinel errors for lifecycle operations.
var (
	ErrNotFound         = errors.New("order not found")
	ErrInvalidState     = errors.New("operation not permitted in current order state")
	ErrInvalidField     = errors.New("unsupported modification field")
	ErrWrongCustomer    = errors.New("order belongs to a different customer")
	ErrAlreadyCancelled = errors.New("order already cancelled")
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps a status tag to a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusPreparing, StatusShipped, StatusCancelled:
		return Status(s), true
	default:
		return "", false
	}
}

// validTransition is the lifecycle state machine:
// Pending -> Paid -> Preparing -> Shipped, with Cancelled reachable from
// Pending or Paid. Owner-side cancellation from later states goes through
// its own entrypoint, not this table.
func validTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPaid || to == StatusCancelled
	case StatusPaid:
		return to == StatusPreparing || to == StatusCancelled
	case StatusPreparing:
		return to == StatusShipped
	default:
		return false
	}
}

// Line is a snapshotted cart line item.
type Line struct {
	ProductRef string          `json:"product_ref"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// Subtotal returns the sum of unit price times quantity across lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Invoice is the immutable price breakdown snapshotted at creation time.
// Shipping surcharges are reported separately on the order and are not part
// of Total.
type Invoice struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	ShippingCharged    decimal.Decimal `json:"shipping_charged"`
	DiscountPercent    decimal.Decimal `json:"discount_percent"`
	DiscountMultiplier decimal.Decimal `json:"discount_multiplier"`
	TaxMultiplier      decimal.Decimal `json:"tax_multiplier"`
	CashbackPercent    decimal.Decimal `json:"cashback_percent"`
	// DiscountedSubtotal is Subtotal with the discount applied, before tax.
	DiscountedSubtotal decimal.Decimal `json:"discounted_subtotal"`
	// Total is round2(Subtotal * DiscountMultiplier * TaxMultiplier +
	// ShippingCharged).
	Total decimal.Decimal `json:"total"`
	// CashbackAmount is the cashback earned on Total.
	CashbackAmount decimal.Decimal `json:"cashback_amount"`
	// Applied lists human-readable labels of the applied benefits.
	Applied []string `json:"applied"`
}

// Order is a customer order with its pricing snapshot and lifecycle state.
type Order struct {
	ID           int64
	CustomerID   int64
	Address      string
	ShippingType string
	Status       Status
	Items        []Line
	// ShippingBase is the quoted shipping price before benefits.
	ShippingBase decimal.Decimal
	// ShippingCharged is what the invoice actually charged for shipping.
	ShippingCharged decimal.Decimal
	Estimate        shipping.Estimate
	Surcharge       shipping.Cost
	Invoice         Invoice
	CreatedAt       time.Time
}

// Repository defines order persistence. Orders are keyed by their
// controller-assigned identifier and never physically deleted.
type Repository interface {
	PutOrder(ctx context.Context, o *Order) error
	Order(ctx context.Context, id int64) (*Order, error)
	OrdersByCustomer(ctx context.Context, customerID int64) ([]*Order, error)
	// LastOrderID returns the highest identifier ever stored, or 0 when the
	// repository is empty. The service seeds its ID counter from it so
	// identifiers stay monotonic across restarts.
	LastOrderID(ctx context.Context) (int64, error)
}
