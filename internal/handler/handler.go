// Package handler exposes the storefront over JSON HTTP. It maps domain
// errors onto status codes and keeps all business rules in the domain
// packages.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/benefit"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipping"
)

// Handler serves the storefront API.
type Handler struct {
	customers customer.Repository
	orders    *order.Service
	registry  *discount.Registry
	benefits  *benefit.Engine
	shipping  *shipping.Registry
	payments  *payment.Dispatcher
	qrTally   *payment.Tally
}

// NewHandler constructs a Handler with the required collaborators. qrTally
// must be the same Tally wired into the payment dispatcher.
func NewHandler(
	customers customer.Repository,
	orders *order.Service,
	registry *discount.Registry,
	benefits *benefit.Engine,
	shippingTypes *shipping.Registry,
	payments *payment.Dispatcher,
	qrTally *payment.Tally,
) *Handler {
	return &Handler{
		customers: customers,
		orders:    orders,
		registry:  registry,
		benefits:  benefits,
		shipping:  shippingTypes,
		payments:  payments,
		qrTally:   qrTally,
	}
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/customers", h.createCustomer)
	mux.HandleFunc("GET /api/customers/{id}", h.getCustomer)
	mux.HandleFunc("GET /api/customers/{id}/orders", h.listCustomerOrders)
	mux.HandleFunc("POST /api/customers/{id}/benefits", h.grantBenefit)
	mux.HandleFunc("DELETE /api/customers/{id}/benefits", h.clearBenefits)

	mux.HandleFunc("POST /api/orders", withTimeout(h.createOrder))
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", withTimeout(h.modifyOrder))
	mux.HandleFunc("DELETE /api/orders/{id}", withTimeout(h.cancelOrder))
	mux.HandleFunc("POST /api/orders/{id}/pay", withTimeout(h.payOrder))
	mux.HandleFunc("POST /api/orders/{id}/prepare", withTimeout(h.prepareShipment))
	mux.HandleFunc("POST /api/orders/{id}/ship", withTimeout(h.shipOrder))
	mux.HandleFunc("PUT /api/orders/{id}/status", withTimeout(h.ownerSetStatus))
	mux.HandleFunc("POST /api/orders/{id}/cancel-shipment", withTimeout(h.ownerCancel))

	mux.HandleFunc("POST /api/discounts", h.addDiscount)
	mux.HandleFunc("DELETE /api/discounts/{tier}/{name}", h.removeDiscount)

	mux.HandleFunc("GET /api/shipping-types", h.listShippingTypes)
	mux.HandleFunc("GET /api/payment-methods", h.listPaymentMethods)
	mux.HandleFunc("GET /api/stats", h.stats)
}

// mutationTimeout bounds order mutations so a stalled payment confirmation
// cannot hold the per-order lock indefinitely.
const mutationTimeout = 30 * time.Second

func withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), mutationTimeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// respond writes a JSON object built by fn with the given status code.
func respond(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	fn(e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respond(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

// respondError maps a domain error onto an HTTP status.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, customer.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, discount.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, order.ErrInvalidState),
		errors.Is(err, order.ErrAlreadyCancelled):
		status = http.StatusConflict
	case errors.Is(err, order.ErrWrongCustomer):
		status = http.StatusForbidden
	case errors.Is(err, order.ErrInvalidField),
		errors.Is(err, benefit.ErrUnknownPreset),
		errors.Is(err, payment.ErrUnknownMethod):
		status = http.StatusBadRequest
	}
	respondMessage(w, status, err.Error())
}

func badRequest(w http.ResponseWriter, err error) {
	respondMessage(w, http.StatusBadRequest, err.Error())
}
