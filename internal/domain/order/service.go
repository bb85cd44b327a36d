package order

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/benefit"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipping"
)

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	CustomerID    int64
	Address       string
	Items         []Line
	ShippingPrice decimal.Decimal
	ShippingType  string
	// ScheduledDate is only honored by schedulable shipping types.
	ScheduledDate *time.Time
}

// Field names a mutable order attribute for Modify.
type Field string

const (
	FieldAddress       Field = "address"
	FieldItems         Field = "items"
	FieldShippingPrice Field = "shipping_price"
	FieldStatus        Field = "status"
)

// Modification describes a single-field change. Only the value matching
// Field is read.
type Modification struct {
	Field         Field
	Address       string
	Items         []Line
	ShippingPrice decimal.Decimal
	Status        Status
}

// Stats is a snapshot of the service operation counters.
type Stats struct {
	Total     int64
	Succeeded int64
	Failed    int64
}

// Service owns the order lifecycle: creation and pricing assembly, status
// transitions, and payment settlement. All mutating operations take a
// per-order lock so at most one transition per order is in flight.
type Service struct {
	customers customer.Repository
	orders    Repository
	registry  *discount.Registry
	benefits  *benefit.Engine
	shipping  *shipping.Registry
	payments  *payment.Dispatcher
	lg        *zap.Logger
	now       func() time.Time

	seedMu sync.Mutex
	seeded atomic.Bool
	nextID atomic.Int64

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	opTotal     atomic.Int64
	opSucceeded atomic.Int64
	opFailed    atomic.Int64
}

// NewService creates an order Service with the required collaborators.
func NewService(
	customers customer.Repository,
	orders Repository,
	registry *discount.Registry,
	benefits *benefit.Engine,
	shippingTypes *shipping.Registry,
	payments *payment.Dispatcher,
	lg *zap.Logger,
) *Service {
	return &Service{
		customers: customers,
		orders:    orders,
		registry:  registry,
		benefits:  benefits,
		shipping:  shippingTypes,
		payments:  payments,
		lg:        lg,
		now:       time.Now,
		locks:     make(map[int64]*sync.Mutex),
	}
}

// allocateID hands out the next order identifier. The counter is seeded
// from the repository's highest stored identifier on first use, so a
// restarted process never re-issues an identifier already persisted.
func (s *Service) allocateID(ctx context.Context) (int64, error) {
	if !s.seeded.Load() {
		s.seedMu.Lock()
		if !s.seeded.Load() {
			last, err := s.orders.LastOrderID(ctx)
			if err != nil {
				s.seedMu.Unlock()
				return 0, errors.Wrap(err, "seed order id counter")
			}
			s.nextID.Store(last)
			s.seeded.Store(true)
		}
		s.seedMu.Unlock()
	}
	return s.nextID.Add(1), nil
}

// lockOrder serializes mutations per order identifier.
func (s *Service) lockOrder(id int64) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// record logs the operation outcome and updates the counters.
func (s *Service) record(op string, err error, fields ...zap.Field) error {
	s.opTotal.Add(1)
	if err != nil {
		s.opFailed.Add(1)
		s.lg.Warn(op+" failed", append(fields, zap.Error(err))...)
		return err
	}
	s.opSucceeded.Add(1)
	s.lg.Info(op, fields...)
	return nil
}

// Stats returns a snapshot of the operation counters.
func (s *Service) Stats() Stats {
	return Stats{
		Total:     s.opTotal.Load(),
		Succeeded: s.opSucceeded.Load(),
		Failed:    s.opFailed.Load(),
	}
}

// Create prices and persists a new order in the Pending state and returns
// it. Identifiers are assigned monotonically and never reused, including
// after cancellation. Unknown shipping types fall back to standard.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	o, err := s.create(ctx, req)
	if rerr := s.record("create order", err, zap.Int64("customer_id", req.CustomerID)); rerr != nil {
		return nil, rerr
	}
	return o, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*Order, error) {
	cust, err := s.customers.Customer(ctx, req.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "lookup customer")
	}

	profile, err := s.benefits.ProfileFor(cust)
	if err != nil {
		return nil, errors.Wrap(err, "resolve benefits")
	}
	res := discount.Resolve(profile, cust.Tier, s.registry.Compute(cust.Tier))

	stype := s.shipping.Resolve(req.ShippingType)
	subtotal := Subtotal(req.Items)

	charged := req.ShippingPrice
	if res.FreeShipping {
		charged = decimal.Zero
	}

	now := s.now()
	estimate := stype.EstimatedDelivery(now)
	if req.ScheduledDate != nil {
		if sched, ok := stype.(shipping.Schedulable); ok {
			estimate = sched.EstimateFor(*req.ScheduledDate)
		}
	}

	discounted := subtotal.Mul(res.Multiplier)
	total := discounted.Mul(stype.TaxMultiplier()).Add(charged).Round(2)
	cashback := total.Mul(res.CashbackPercent).Div(decimal.NewFromInt(100)).Round(2)

	id, err := s.allocateID(ctx)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:              id,
		CustomerID:      req.CustomerID,
		Address:         req.Address,
		ShippingType:    stype.Tag(),
		Status:          StatusPending,
		Items:           append([]Line(nil), req.Items...),
		ShippingBase:    req.ShippingPrice,
		ShippingCharged: charged,
		Estimate:        estimate,
		Surcharge:       stype.AdditionalCost(subtotal),
		Invoice: Invoice{
			Subtotal:           subtotal,
			ShippingCharged:    charged,
			DiscountPercent:    res.DiscountPercent,
			DiscountMultiplier: res.Multiplier,
			TaxMultiplier:      stype.TaxMultiplier(),
			CashbackPercent:    res.CashbackPercent,
			DiscountedSubtotal: discounted.Round(2),
			Total:              total,
			CashbackAmount:     cashback,
			Applied:            res.Applied,
		},
		CreatedAt: now,
	}

	if err := s.orders.PutOrder(ctx, o); err != nil {
		return nil, errors.Wrap(err, "persist order")
	}
	return o, nil
}

// Get returns the order with the given identifier.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.orders.Order(ctx, id)
}

// ListByCustomer returns all orders owned by the customer.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error) {
	return s.orders.OrdersByCustomer(ctx, customerID)
}

// Modify applies a single-field change through the customer path: the
// address is changeable in any non-cancelled state, items and shipping
// price only while Pending, and the status only along the state machine.
func (s *Service) Modify(ctx context.Context, id int64, mod Modification) error {
	unlock := s.lockOrder(id)
	defer unlock()
	err := s.modify(ctx, id, mod)
	return s.record("modify order", err,
		zap.Int64("order_id", id), zap.String("field", string(mod.Field)))
}

func (s *Service) modify(ctx context.Context, id int64, mod Modification) error {
	o, err := s.orders.Order(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == StatusCancelled {
		return errors.Wrap(ErrInvalidState, "order is cancelled")
	}

	switch mod.Field {
	case FieldAddress:
		o.Address = mod.Address
	case FieldItems:
		if o.Status != StatusPending {
			return errors.Wrap(ErrInvalidState, "items are only mutable while pending")
		}
		o.Items = append([]Line(nil), mod.Items...)
	case FieldShippingPrice:
		if o.Status != StatusPending {
			return errors.Wrap(ErrInvalidState, "shipping price is only mutable while pending")
		}
		o.ShippingBase = mod.ShippingPrice
	case FieldStatus:
		if !validTransition(o.Status, mod.Status) {
			return errors.Wrapf(ErrInvalidState, "%s -> %s", o.Status, mod.Status)
		}
		o.Status = mod.Status
	default:
		return errors.Wrap(ErrInvalidField, string(mod.Field))
	}

	return s.orders.PutOrder(ctx, o)
}

// Cancel marks the order cancelled. Valid from any non-cancelled state via
// this customer path. Cancellation is a status, never a deletion.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	unlock := s.lockOrder(id)
	defer unlock()
	err := s.setCancelled(ctx, id)
	return s.record("cancel order", err, zap.Int64("order_id", id))
}

func (s *Service) setCancelled(ctx context.Context, id int64) error {
	o, err := s.orders.Order(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	o.Status = StatusCancelled
	return s.orders.PutOrder(ctx, o)
}

// Pay settles a Pending order through the given payment method. A settled
// payment transitions the order to Paid; a declined one leaves it Pending
// for the caller to retry. The receipt is returned in both cases.
func (s *Service) Pay(ctx context.Context, id, customerID int64, methodTag string) (*payment.Receipt, error) {
	unlock := s.lockOrder(id)
	defer unlock()
	receipt, err := s.pay(ctx, id, customerID, methodTag)
	if rerr := s.record("pay order", err,
		zap.Int64("order_id", id),
		zap.Int64("customer_id", customerID),
		zap.String("method", methodTag),
	); rerr != nil {
		return nil, rerr
	}
	return receipt, nil
}

func (s *Service) pay(ctx context.Context, id, customerID int64, methodTag string) (*payment.Receipt, error) {
	o, err := s.orders.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	cust, err := s.customers.Customer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "lookup customer")
	}
	if o.CustomerID != customerID {
		return nil, ErrWrongCustomer
	}
	if o.Status != StatusPending {
		return nil, errors.Wrapf(ErrInvalidState, "pay requires pending, order is %s", o.Status)
	}

	receipt, err := s.payments.Settle(ctx, methodTag, payment.Request{
		Amount:       o.Invoice.Total,
		CustomerName: cust.Name,
	})
	if err != nil {
		return nil, err
	}

	if receipt.Outcome == payment.Settled {
		o.Status = StatusPaid
		if err := s.orders.PutOrder(ctx, o); err != nil {
			return nil, errors.Wrap(err, "persist paid order")
		}
	}
	return receipt, nil
}

// PrepareShipment transitions Paid -> Preparing.
func (s *Service) PrepareShipment(ctx context.Context, id int64) error {
	unlock := s.lockOrder(id)
	defer unlock()
	err := s.transition(ctx, id, StatusPaid, StatusPreparing)
	return s.record("prepare shipment", err, zap.Int64("order_id", id))
}

// Ship transitions Preparing -> Shipped.
func (s *Service) Ship(ctx context.Context, id int64) error {
	unlock := s.lockOrder(id)
	defer unlock()
	err := s.transition(ctx, id, StatusPreparing, StatusShipped)
	return s.record("ship order", err, zap.Int64("order_id", id))
}

func (s *Service) transition(ctx context.Context, id int64, from, to Status) error {
	o, err := s.orders.Order(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != from {
		return errors.Wrapf(ErrInvalidState, "%s requires %s, order is %s", to, from, o.Status)
	}
	o.Status = to
	return s.orders.PutOrder(ctx, o)
}

// OwnerSetStatus changes the status through the owner path. The owner path
// is stricter than the customer path: it refuses orders that are Cancelled
// or still Pending, then applies the state machine. The divergence between
// the two paths is intentional and preserved.
func (s *Service) OwnerSetStatus(ctx context.Context, id int64, status Status) error {
	unlock := s.lockOrder(id)
	defer unlock()
	err := s.ownerSetStatus(ctx, id, status)
	return s.record("owner set status", err,
		zap.Int64("order_id", id), zap.String("status", string(status)))
}

func (s *Service) ownerSetStatus(ctx context.Context, id int64, status Status) error {
	o, err := s.orders.Order(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == StatusCancelled || o.Status == StatusPending {
		return errors.Wrapf(ErrInvalidState, "owner path refuses %s orders", o.Status)
	}
	if !validTransition(o.Status, status) {
		return errors.Wrapf(ErrInvalidState, "%s -> %s", o.Status, status)
	}
	o.Status = status
	return s.orders.PutOrder(ctx, o)
}

// OwnerCancel cancels from any non-cancelled state, including Preparing and
// Shipped, which the customer-facing state machine does not allow.
func (s *Service) OwnerCancel(ctx context.Context, id int64) error {
	unlock := s.lockOrder(id)
	defer unlock()
	err := s.setCancelled(ctx, id)
	return s.record("owner cancel order", err, zap.Int64("order_id", id))
}
