package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/benefit"
	"github.com/xenking/storefront/internal/domain/customer"
)

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	d, err := decodeBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var name, address, tier string
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			name, err = d.Str()
		case "address":
			address, err = d.Str()
		case "tier":
			tier, err = d.Str()
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

	id, err := h.customers.CreateCustomer(r.Context(), name, address, customer.ParseTier(tier))
	if err != nil {
		respondError(w, err)
		return
	}

	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(id)
		e.FieldStart("name")
		e.Str(name)
		e.FieldStart("address")
		e.Str(address)
		e.FieldStart("tier")
		e.Str(string(customer.ParseTier(tier)))
		e.ObjEnd()
	})
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.customers.Customer(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	profile, err := h.benefits.ProfileFor(c)
	if err != nil {
		respondError(w, err)
		return
	}

	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(c.ID)
		e.FieldStart("name")
		e.Str(c.Name)
		e.FieldStart("address")
		e.Str(c.Address)
		e.FieldStart("tier")
		e.Str(string(c.Tier))
		e.FieldStart("profile")
		encodeProfile(e, profile)
		e.FieldStart("suggested_benefits")
		e.ArrStart()
		for _, b := range benefit.Suggest(c.Tier) {
			encodeBenefit(e, b)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func (h *Handler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if _, err := h.customers.Customer(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	orders, err := h.orders.ListByCustomer(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range orders {
			encodeOrder(e, o)
		}
		e.ArrEnd()
	})
}

// grantBenefit activates either a named preset or a single benefit for the
// customer and returns the recomputed profile.
func (h *Handler) grantBenefit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.customers.Customer(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	d, err := decodeBody(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var (
		preset string
		kind   string
		amount decimal.Decimal
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "preset":
			preset, err = d.Str()
		case "kind":
			kind, err = d.Str()
		case "amount":
			amount, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		badRequest(w, err)
		return
	}

	if preset != "" {
		err = h.benefits.GrantPreset(id, benefit.Preset(preset))
	} else {
		err = h.benefits.Grant(id, benefit.Benefit{Kind: benefit.Kind(kind), Amount: amount})
	}
	if err != nil {
		badRequest(w, err)
		return
	}

	profile, err := h.benefits.ProfileFor(c)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProfile(e, profile)
	})
}

func (h *Handler) clearBenefits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	h.benefits.Clear(id)
	w.WriteHeader(http.StatusNoContent)
}

func encodeProfile(e *jx.Encoder, p benefit.Profile) {
	e.ObjStart()
	e.FieldStart("discount")
	encodeDecimal(e, p.Discount)
	e.FieldStart("free_shipping")
	e.Bool(p.FreeShipping)
	e.FieldStart("cashback")
	encodeDecimal(e, p.Cashback)
	e.FieldStart("description")
	e.Str(p.Description)
	e.ObjEnd()
}

func encodeBenefit(e *jx.Encoder, b benefit.Benefit) {
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(string(b.Kind))
	e.FieldStart("amount")
	encodeDecimal(e, b.Amount)
	e.ObjEnd()
}
