package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
)

func decodeLines(d *jx.Decoder) ([]order.Line, error) {
	var items []order.Line
	err := d.Arr(func(d *jx.Decoder) error {
		var l order.Line
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "product_ref":
				l.ProductRef, err = d.Str()
			case "unit_price":
				l.UnitPrice, err = decodeDecimal(d)
			case "quantity":
				l.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		items = append(items, l)
		return nil
	})
	return items, err
}

func validateLines(items []order.Line) error {
	if len(items) == 0 {
		return errors.New("order must contain at least one item")
	}
	for _, l := range items {
		if l.Quantity <= 0 {
			return errors.Errorf("item %q: quantity must be positive", l.ProductRef)
		}
		if l.UnitPrice.IsNegative() {
			return errors.Errorf("item %q: unit price must not be negative", l.ProductRef)
		}
	}
	return nil
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	d, err := decodeBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var (
		req       order.CreateRequest
		scheduled string
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_id":
			req.CustomerID, err = d.Int64()
		case "address":
			req.Address, err = d.Str()
		case "items":
			req.Items, err = decodeLines(d)
		case "shipping_price":
			req.ShippingPrice, err = decodeDecimal(d)
		case "shipping_type":
			req.ShippingType, err = d.Str()
		case "scheduled_date":
			scheduled, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		badRequest(w, err)
		return
	}

	if req.CustomerID <= 0 {
		badRequest(w, errors.New("customer_id is required"))
		return
	}
	if err := validateLines(req.Items); err != nil {
		badRequest(w, err)
		return
	}
	if req.ShippingPrice.IsNegative() {
		badRequest(w, errors.New("shipping_price must not be negative"))
		return
	}
	if scheduled != "" {
		date, err := time.Parse(time.RFC3339, scheduled)
		if err != nil {
			badRequest(w, errors.Wrap(err, "scheduled_date"))
			return
		}
		req.ScheduledDate = &date
	}

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// modifyOrder applies a single-field change through the customer path.
func (h *Handler) modifyOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	d, err := decodeBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var (
		mod    order.Modification
		status string
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "field":
			var f string
			f, err = d.Str()
			mod.Field = order.Field(f)
		case "address":
			mod.Address, err = d.Str()
		case "items":
			mod.Items, err = decodeLines(d)
		case "shipping_price":
			mod.ShippingPrice, err = decodeDecimal(d)
		case "status":
			status, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		badRequest(w, err)
		return
	}

	switch mod.Field {
	case order.FieldItems:
		if err := validateLines(mod.Items); err != nil {
			badRequest(w, err)
			return
		}
	case order.FieldShippingPrice:
		if mod.ShippingPrice.IsNegative() {
			badRequest(w, errors.New("shipping_price must not be negative"))
			return
		}
	case order.FieldStatus:
		parsed, ok := order.ParseStatus(status)
		if !ok {
			badRequest(w, errors.Errorf("unknown status: %q", status))
			return
		}
		mod.Status = parsed
	}

	if err := h.orders.Modify(r.Context(), id, mod); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "order updated")
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.orders.Cancel(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "order cancelled")
}

// payOrder settles a pending order. A declined settlement is reported with
// 402 and the receipt; the order stays pending.
func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	d, err := decodeBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var (
		customerID int64
		method     string
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_id":
			customerID, err = d.Int64()
		case "method":
			method, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		badRequest(w, err)
		return
	}

	receipt, err := h.orders.Pay(r.Context(), id, customerID, method)
	if err != nil {
		respondError(w, err)
		return
	}

	status := http.StatusOK
	if receipt.Outcome == payment.Declined {
		status = http.StatusPaymentRequired
	}
	respond(w, status, func(e *jx.Encoder) {
		encodeReceipt(e, receipt)
	})
}

func (h *Handler) prepareShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.orders.PrepareShipment(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "shipment in preparation")
}

func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.orders.Ship(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "order shipped")
}

// ownerSetStatus is the stricter owner-side status change.
func (h *Handler) ownerSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	d, err := decodeBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var status string
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			status, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		badRequest(w, err)
		return
	}
	parsed, ok := order.ParseStatus(status)
	if !ok {
		badRequest(w, errors.Errorf("unknown status: %q", status))
		return
	}

	if err := h.orders.OwnerSetStatus(r.Context(), id, parsed); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "status updated")
}

func (h *Handler) ownerCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.orders.OwnerCancel(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "shipment cancelled")
}

func encodeReceipt(e *jx.Encoder, rc *payment.Receipt) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(rc.ID)
	e.FieldStart("method")
	e.Str(rc.Method)
	e.FieldStart("amount")
	encodeDecimal(e, rc.Amount)
	e.FieldStart("outcome")
	e.Str(string(rc.Outcome))
	e.ObjEnd()
}
