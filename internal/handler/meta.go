package handler

import (
	"net/http"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
)

var one = decimal.NewFromInt(1)

// addDiscount registers a named multiplicative discount for a tier. A factor
// of 0.90 means 10% off.
func (h *Handler) addDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := decodeBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var (
		name   string
		tier   string
		factor decimal.Decimal
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			name, err = d.Str()
		case "tier":
			tier, err = d.Str()
		case "factor":
			factor, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		badRequest(w, err)
		return
	}

	if name == "" {
		badRequest(w, errors.New("name is required"))
		return
	}
	if !factor.IsPositive() || factor.GreaterThan(one) {
		badRequest(w, errors.New("factor must be in (0, 1]"))
		return
	}
	parsed := customer.ParseTier(tier)
	if parsed == customer.TierUnknown {
		badRequest(w, errors.Errorf("unknown tier: %q", tier))
		return
	}

	h.registry.Add(name, factor, parsed)
	respondMessage(w, http.StatusCreated, "discount registered")
}

func (h *Handler) removeDiscount(w http.ResponseWriter, r *http.Request) {
	tier := customer.ParseTier(r.PathValue("tier"))
	if tier == customer.TierUnknown {
		badRequest(w, errors.Errorf("unknown tier: %q", r.PathValue("tier")))
		return
	}
	if err := h.registry.Remove(r.PathValue("name"), tier); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "discount removed")
}

func (h *Handler) listShippingTypes(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, tag := range h.shipping.Tags() {
			t := h.shipping.Resolve(tag)
			e.ObjStart()
			e.FieldStart("tag")
			e.Str(t.Tag())
			e.FieldStart("description")
			e.Str(t.Description())
			e.FieldStart("tax_multiplier")
			encodeDecimal(e, t.TaxMultiplier())
			e.FieldStart("special_conditions")
			e.ArrStart()
			for _, c := range t.SpecialConditions() {
				e.Str(c)
			}
			e.ArrEnd()
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

func (h *Handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	tags := h.payments.Tags()
	sort.Strings(tags)
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, tag := range tags {
			e.Str(tag)
		}
		e.ArrEnd()
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st := h.orders.Stats()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("operations")
		e.ObjStart()
		e.FieldStart("total")
		e.Int64(st.Total)
		e.FieldStart("succeeded")
		e.Int64(st.Succeeded)
		e.FieldStart("failed")
		e.Int64(st.Failed)
		e.ObjEnd()
		e.FieldStart("qr_payments")
		e.ObjStart()
		e.FieldStart("settled")
		e.Int64(h.qrTally.Settled())
		e.FieldStart("declined")
		e.Int64(h.qrTally.Declined())
		e.ObjEnd()
		e.ObjEnd()
	})
}
