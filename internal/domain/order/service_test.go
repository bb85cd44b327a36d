package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/benefit"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipping"
)

type memCustomers struct {
	m      map[int64]customer.Customer
	nextID int64
}

func (r *memCustomers) CreateCustomer(_ context.Context, name, address string, tier customer.Tier) (int64, error) {
	r.nextID++
	r.m[r.nextID] = customer.Customer{ID: r.nextID, Name: name, Address: address, Tier: tier}
	return r.nextID, nil
}

func (r *memCustomers) Customer(_ context.Context, id int64) (*customer.Customer, error) {
	c, ok := r.m[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

type memOrders struct {
	m map[int64]Order
}

func (r *memOrders) PutOrder(_ context.Context, o *Order) error {
	r.m[o.ID] = *o
	return nil
}

func (r *memOrders) Order(_ context.Context, id int64) (*Order, error) {
	o, ok := r.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *memOrders) LastOrderID(_ context.Context) (int64, error) {
	var last int64
	for id := range r.m {
		if id > last {
			last = id
		}
	}
	return last, nil
}

func (r *memOrders) OrdersByCustomer(_ context.Context, customerID int64) ([]*Order, error) {
	var out []*Order
	for _, o := range r.m {
		if o.CustomerID == customerID {
			o := o
			out = append(out, &o)
		}
	}
	return out, nil
}

var fixedNow = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

func instantVerify(context.Context, string) error { return nil }

type fixture struct {
	svc       *Service
	customers *memCustomers
	orders    *memOrders
	registry  *discount.Registry
	benefits  *benefit.Engine
}

func newFixture(t *testing.T, confirm payment.Confirmer) *fixture {
	t.Helper()

	customers := &memCustomers{m: make(map[int64]customer.Customer)}
	orders := &memOrders{m: make(map[int64]Order)}
	registry := discount.NewRegistry()
	benefits := benefit.NewEngine()
	shippingTypes := shipping.NewRegistry(zap.NewNop(), shipping.DefaultSameDayCutoff)
	payments := payment.NewDispatcher(payment.Config{Confirmer: confirm, Verify: instantVerify})

	svc := NewService(customers, orders, registry, benefits, shippingTypes, payments, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		svc:       svc,
		customers: customers,
		orders:    orders,
		registry:  registry,
		benefits:  benefits,
	}
}

func (f *fixture) addCustomer(t *testing.T, name string, tier customer.Tier) int64 {
	t.Helper()
	id, err := f.customers.CreateCustomer(context.Background(), name, "1 Main St", tier)
	require.NoError(t, err)
	return id
}

func singleItem(price string) []Line {
	return []Line{{ProductRef: "sku-1", UnitPrice: decimal.RequireFromString(price), Quantity: 1}}
}

func (f *fixture) createOrder(t *testing.T, customerID int64, shippingType string) *Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID:    customerID,
		Address:       "1 Main St",
		Items:         singleItem("100.00"),
		ShippingPrice: decimal.NewFromInt(10),
		ShippingType:  shippingType,
	})
	require.NoError(t, err)
	return o
}

func TestCreate_SequentialIDs(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	first := f.createOrder(t, id, "standard")
	second := f.createOrder(t, id, "standard")

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, StatusPending, first.Status)
}

func TestCreate_IDsResumeAfterExistingOrders(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	// A repository that already holds orders, as after a process restart
	// against persistent storage. The counter must resume past the highest
	// stored identifier instead of overwriting order 7.
	f.orders.m[7] = Order{ID: 7, CustomerID: id, Address: "old address", Status: StatusShipped}

	o := f.createOrder(t, id, "standard")
	assert.Equal(t, int64(8), o.ID)

	kept, err := f.svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "old address", kept.Address)
	assert.Equal(t, StatusShipped, kept.Status)
}

func TestCreate_IDsNotReusedAfterCancel(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	first := f.createOrder(t, id, "standard")
	require.NoError(t, f.svc.Cancel(context.Background(), first.ID))

	second := f.createOrder(t, id, "standard")
	assert.Equal(t, int64(2), second.ID)
}

func TestCreate_VIPInvoice(t *testing.T) {
	// VIP, subtotal 100, shipping 10, standard type: 15% off, free
	// shipping, total 85.00.
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Carla", customer.TierVIP)

	o := f.createOrder(t, id, "standard")

	assert.True(t, o.Invoice.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, o.Invoice.DiscountPercent.Equal(decimal.NewFromInt(15)),
		"discount = %s", o.Invoice.DiscountPercent)
	assert.True(t, o.ShippingCharged.IsZero(), "vip shipping should be free")
	assert.True(t, o.ShippingBase.Equal(decimal.NewFromInt(10)), "quoted price is kept")
	assert.True(t, o.Invoice.Total.Equal(decimal.RequireFromString("85.00")),
		"total = %s", o.Invoice.Total)
}

func TestCreate_NewCustomerInvoice(t *testing.T) {
	// New tier: 5% off, shipping charged. 100*0.95 + 10 = 105.00.
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	o := f.createOrder(t, id, "standard")

	assert.True(t, o.Invoice.Total.Equal(decimal.RequireFromString("105.00")),
		"total = %s", o.Invoice.Total)
	assert.True(t, o.ShippingCharged.Equal(decimal.NewFromInt(10)))
}

func TestCreate_RegisteredDiscountBeatsAutomatic(t *testing.T) {
	// "summer" 0.90 for new beats the automatic 5%: 100*0.90 + 10 = 100.
	f := newFixture(t, payment.AutoConfirm())
	f.registry.Add("summer", decimal.RequireFromString("0.90"), customer.TierNew)
	id := f.addCustomer(t, "Ana", customer.TierNew)

	o := f.createOrder(t, id, "standard")

	assert.True(t, o.Invoice.DiscountPercent.Equal(decimal.NewFromInt(10)),
		"discount = %s", o.Invoice.DiscountPercent)
	assert.True(t, o.Invoice.Total.Equal(decimal.NewFromInt(100)),
		"total = %s", o.Invoice.Total)
}

func TestCreate_InternationalTax(t *testing.T) {
	// New tier international: 100*0.95*1.30 + 10 = 133.50.
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	o := f.createOrder(t, id, "international")

	assert.True(t, o.Invoice.TaxMultiplier.Equal(decimal.RequireFromString("1.30")))
	assert.True(t, o.Invoice.Total.Equal(decimal.RequireFromString("133.50")),
		"total = %s", o.Invoice.Total)
	assert.NotEmpty(t, o.Surcharge.Lines)
}

func TestCreate_CashbackOnTotal(t *testing.T) {
	// vip_premium_temporal: 15+5 discount, free shipping, 3% cashback.
	// Total 100*0.80 = 80.00, cashback 2.40.
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Carla", customer.TierVIP)
	require.NoError(t, f.benefits.GrantPreset(id, benefit.PresetVIPPremiumTemporal))

	o := f.createOrder(t, id, "standard")

	assert.True(t, o.Invoice.Total.Equal(decimal.NewFromInt(80)), "total = %s", o.Invoice.Total)
	assert.True(t, o.Invoice.CashbackAmount.Equal(decimal.RequireFromString("2.40")),
		"cashback = %s", o.Invoice.CashbackAmount)
}

func TestCreate_UnknownShippingFallsBack(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	o, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID:    id,
		Address:       "1 Main St",
		Items:         singleItem("100.00"),
		ShippingPrice: decimal.NewFromInt(10),
		ShippingType:  "drone",
	})
	require.NoError(t, err)
	assert.Equal(t, "standard", o.ShippingType)
}

func TestCreate_UnknownCustomer(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: 42,
		Items:      singleItem("10.00"),
	})
	assert.ErrorIs(t, err, customer.ErrNotFound)
}

func TestCreate_ScheduledDate(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	date := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	o, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID:    id,
		Address:       "1 Main St",
		Items:         singleItem("50.00"),
		ShippingPrice: decimal.NewFromInt(5),
		ShippingType:  "scheduled",
		ScheduledDate: &date,
	})
	require.NoError(t, err)
	assert.Equal(t, date, o.Estimate.Earliest)

	// Non-schedulable types ignore the requested date.
	o2, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID:    id,
		Address:       "1 Main St",
		Items:         singleItem("50.00"),
		ShippingPrice: decimal.NewFromInt(5),
		ShippingType:  "standard",
		ScheduledDate: &date,
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.AddDate(0, 0, 3), o2.Estimate.Earliest)
}

func TestModify_Address(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	err := f.svc.Modify(context.Background(), o.ID, Modification{
		Field:   FieldAddress,
		Address: "9 New Street",
	})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "9 New Street", got.Address)
}

func TestModify_ItemsOnlyWhilePending(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	require.NoError(t, err)

	err = f.svc.Modify(context.Background(), o.ID, Modification{
		Field: FieldItems,
		Items: singleItem("5.00"),
	})
	assert.ErrorIs(t, err, ErrInvalidState)

	// The address stays mutable after payment.
	err = f.svc.Modify(context.Background(), o.ID, Modification{
		Field:   FieldAddress,
		Address: "9 New Street",
	})
	assert.NoError(t, err)
}

func TestModify_StatusFollowsStateMachine(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	// Pending -> Preparing skips Paid and is rejected.
	err := f.svc.Modify(context.Background(), o.ID, Modification{
		Field:  FieldStatus,
		Status: StatusPreparing,
	})
	assert.ErrorIs(t, err, ErrInvalidState)

	// Pending -> Paid is allowed.
	err = f.svc.Modify(context.Background(), o.ID, Modification{
		Field:  FieldStatus,
		Status: StatusPaid,
	})
	assert.NoError(t, err)
}

func TestModify_CancelledOrderRejected(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")
	require.NoError(t, f.svc.Cancel(context.Background(), o.ID))

	err := f.svc.Modify(context.Background(), o.ID, Modification{
		Field:   FieldAddress,
		Address: "9 New Street",
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestModify_UnknownField(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	err := f.svc.Modify(context.Background(), o.ID, Modification{Field: Field("color")})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestCancel_Twice(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	require.NoError(t, f.svc.Cancel(context.Background(), o.ID))
	err := f.svc.Cancel(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestPay_HappyPath(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Carla", customer.TierVIP)
	o := f.createOrder(t, id, "standard")

	receipt, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	require.NoError(t, err)

	assert.Equal(t, payment.Settled, receipt.Outcome)
	assert.True(t, receipt.Amount.Equal(decimal.RequireFromString("85.00")),
		"charged = %s", receipt.Amount)

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
}

func TestPay_DeclinedLeavesPending(t *testing.T) {
	decline := payment.ConfirmerFunc(func(context.Context, string) (bool, error) {
		return false, nil
	})
	f := newFixture(t, decline)
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	receipt, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	require.NoError(t, err)
	assert.Equal(t, payment.Declined, receipt.Outcome)

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status, "declined payment must not advance the order")
}

func TestPay_WrongCustomer(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	owner := f.addCustomer(t, "Ana", customer.TierNew)
	other := f.addCustomer(t, "Bruno", customer.TierFrequent)
	o := f.createOrder(t, owner, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, other, payment.TagCard)
	assert.ErrorIs(t, err, ErrWrongCustomer)
}

func TestPay_CancelledOrder(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")
	require.NoError(t, f.svc.Cancel(context.Background(), o.ID))

	_, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPay_Twice(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	require.NoError(t, err)
	_, err = f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPay_UnknownMethod(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, id, "barter")
	assert.ErrorIs(t, err, payment.ErrUnknownMethod)
}

func TestLifecycle_FullFlow(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagQR)
	require.NoError(t, err)
	require.NoError(t, f.svc.PrepareShipment(context.Background(), o.ID))
	require.NoError(t, f.svc.Ship(context.Background(), o.ID))

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, got.Status)
}

func TestPrepareShipment_RequiresPaid(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	err := f.svc.PrepareShipment(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestShip_RequiresPreparing(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	require.NoError(t, err)

	err = f.svc.Ship(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOwnerSetStatus_RefusesPendingAndCancelled(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	pending := f.createOrder(t, id, "standard")
	err := f.svc.OwnerSetStatus(context.Background(), pending.ID, StatusPaid)
	assert.ErrorIs(t, err, ErrInvalidState)

	cancelled := f.createOrder(t, id, "standard")
	require.NoError(t, f.svc.Cancel(context.Background(), cancelled.ID))
	err = f.svc.OwnerSetStatus(context.Background(), cancelled.ID, StatusPreparing)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOwnerSetStatus_FollowsStateMachine(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	require.NoError(t, err)

	require.NoError(t, f.svc.OwnerSetStatus(context.Background(), o.ID, StatusPreparing))

	// Backwards transition is rejected.
	err = f.svc.OwnerSetStatus(context.Background(), o.ID, StatusPaid)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOwnerCancel_FromShipped(t *testing.T) {
	// The owner path can cancel states the customer path cannot reach.
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)
	o := f.createOrder(t, id, "standard")

	_, err := f.svc.Pay(context.Background(), o.ID, id, payment.TagCard)
	require.NoError(t, err)
	require.NoError(t, f.svc.PrepareShipment(context.Background(), o.ID))
	require.NoError(t, f.svc.Ship(context.Background(), o.ID))

	require.NoError(t, f.svc.OwnerCancel(context.Background(), o.ID))

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestListByCustomer(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	ana := f.addCustomer(t, "Ana", customer.TierNew)
	bruno := f.addCustomer(t, "Bruno", customer.TierFrequent)

	f.createOrder(t, ana, "standard")
	f.createOrder(t, ana, "express")
	f.createOrder(t, bruno, "standard")

	got, err := f.svc.ListByCustomer(context.Background(), ana)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStats_CountsOutcomes(t *testing.T) {
	f := newFixture(t, payment.AutoConfirm())
	id := f.addCustomer(t, "Ana", customer.TierNew)

	o := f.createOrder(t, id, "standard")
	_ = f.svc.Cancel(context.Background(), o.ID)
	_ = f.svc.Cancel(context.Background(), o.ID) // fails: already cancelled

	st := f.svc.Stats()
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(2), st.Succeeded)
	assert.Equal(t, int64(1), st.Failed)
}

func TestSubtotal(t *testing.T) {
	lines := []Line{
		{ProductRef: "a", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 2},
		{ProductRef: "b", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 3},
	}
	assert.True(t, Subtotal(lines).Equal(decimal.RequireFromString("54.98")),
		"subtotal = %s", Subtotal(lines))
}

func TestParseStatus(t *testing.T) {
	got, ok := ParseStatus("paid")
	assert.True(t, ok)
	assert.Equal(t, StatusPaid, got)

	_, ok = ParseStatus("lost")
	assert.False(t, ok)
}
