package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/benefit"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipping"
	"github.com/xenking/storefront/internal/storage/memory"
)

func newTestMux(t *testing.T, confirm payment.Confirmer) *http.ServeMux {
	t.Helper()

	ledger := memory.NewCachedLedger(memory.NewLedger(), memory.DefaultCacheCapacity)
	registry := discount.NewRegistry()
	benefits := benefit.NewEngine()
	shippingTypes := shipping.NewRegistry(zap.NewNop(), shipping.DefaultSameDayCutoff)
	qrTally := &payment.Tally{}
	payments := payment.NewDispatcher(payment.Config{
		Confirmer: confirm,
		QRCounter: qrTally,
		Verify:    func(context.Context, string) error { return nil },
	})
	orders := order.NewService(ledger, ledger, registry, benefits, shippingTypes, payments, zap.NewNop())

	mux := http.NewServeMux()
	NewHandler(ledger, orders, registry, benefits, shippingTypes, payments, qrTally).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var decoded map[string]any
	if len(w.Body.Bytes()) > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func createCustomer(t *testing.T, mux *http.ServeMux, tier string) int64 {
	t.Helper()
	w, body := doJSON(t, mux, http.MethodPost, "/api/customers",
		fmt.Sprintf(`{"name":"Test","address":"1 Main St","tier":%q}`, tier))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(body["id"].(float64))
}

func createOrder(t *testing.T, mux *http.ServeMux, customerID int64) int64 {
	t.Helper()
	w, body := doJSON(t, mux, http.MethodPost, "/api/orders", fmt.Sprintf(
		`{"customer_id":%d,"address":"1 Main St","shipping_type":"standard","shipping_price":10,
		  "items":[{"product_ref":"sku-1","unit_price":100,"quantity":1}]}`, customerID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(body["id"].(float64))
}

func TestCreateCustomer_Validation(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())

	w, _ := doJSON(t, mux, http.MethodPost, "/api/customers", `{"address":"1 Main St"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCustomer(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "vip")

	w, body := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/customers/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vip", body["tier"])

	profile := body["profile"].(map[string]any)
	assert.Equal(t, true, profile["free_shipping"])
}

func TestGetCustomer_NotFound(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	w, _ := doJSON(t, mux, http.MethodGet, "/api/customers/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrder_VIPInvoice(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "vip")

	w, body := doJSON(t, mux, http.MethodPost, "/api/orders", fmt.Sprintf(
		`{"customer_id":%d,"address":"1 Main St","shipping_type":"standard","shipping_price":10,
		  "items":[{"product_ref":"sku-1","unit_price":100,"quantity":1}]}`, id))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	invoice := body["invoice"].(map[string]any)
	assert.Equal(t, float64(85), invoice["total"])
	assert.Equal(t, "pending", body["status"])
}

func TestCreateOrder_Validation(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")

	tests := []struct {
		name string
		body string
	}{
		{name: "missing customer", body: `{"items":[{"product_ref":"a","unit_price":1,"quantity":1}]}`},
		{name: "empty items", body: fmt.Sprintf(`{"customer_id":%d,"items":[]}`, id)},
		{
			name: "zero quantity",
			body: fmt.Sprintf(`{"customer_id":%d,"items":[{"product_ref":"a","unit_price":1,"quantity":0}]}`, id),
		},
		{
			name: "negative price",
			body: fmt.Sprintf(`{"customer_id":%d,"items":[{"product_ref":"a","unit_price":-1,"quantity":1}]}`, id),
		},
		{
			name: "negative shipping",
			body: fmt.Sprintf(`{"customer_id":%d,"shipping_price":-5,"items":[{"product_ref":"a","unit_price":1,"quantity":1}]}`, id),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doJSON(t, mux, http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestCreateOrder_UnknownCustomer(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	w, _ := doJSON(t, mux, http.MethodPost, "/api/orders",
		`{"customer_id":42,"items":[{"product_ref":"a","unit_price":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	w, _ := doJSON(t, mux, http.MethodGet, "/api/orders/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModifyOrder_InvalidStatus(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)

	w, _ := doJSON(t, mux, http.MethodPatch, fmt.Sprintf("/api/orders/%d", orderID),
		`{"field":"status","status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Skipping paid is a state conflict, not a validation error.
	w, _ = doJSON(t, mux, http.MethodPatch, fmt.Sprintf("/api/orders/%d", orderID),
		`{"field":"status","status":"preparing"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPayOrder_FullFlow(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "vip")
	orderID := createOrder(t, mux, id)

	w, body := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID),
		fmt.Sprintf(`{"customer_id":%d,"method":"card"}`, id))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "settled", body["outcome"])

	w, _ = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/prepare", orderID), "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/ship", orderID), "")
	require.Equal(t, http.StatusOK, w.Code)

	w, body = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shipped", body["status"])
}

func TestPayOrder_Declined(t *testing.T) {
	decline := payment.ConfirmerFunc(func(context.Context, string) (bool, error) {
		return false, nil
	})
	mux := newTestMux(t, decline)
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)

	w, body := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID),
		fmt.Sprintf(`{"customer_id":%d,"method":"card"}`, id))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "declined", body["outcome"])
}

func TestPayOrder_Cancelled(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)

	w, _ := doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/orders/%d", orderID), "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID),
		fmt.Sprintf(`{"customer_id":%d,"method":"card"}`, id))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPayOrder_WrongCustomer(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	owner := createCustomer(t, mux, "new")
	other := createCustomer(t, mux, "frequent")
	orderID := createOrder(t, mux, owner)

	w, _ := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID),
		fmt.Sprintf(`{"customer_id":%d,"method":"card"}`, other))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPayOrder_UnknownMethod(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)

	w, _ := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID),
		fmt.Sprintf(`{"customer_id":%d,"method":"barter"}`, id))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelOrder_Twice(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)

	w, _ := doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/orders/%d", orderID), "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/orders/%d", orderID), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOwnerSetStatus_RefusesPending(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)

	w, _ := doJSON(t, mux, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", orderID),
		`{"status":"paid"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGrantBenefit_AndListOrders(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "vip")

	w, body := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/customers/%d/benefits", id),
		`{"preset":"vip_premium_temporal"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(20), body["discount"])

	// Discounted order: 100*0.80, free shipping.
	orderID := createOrder(t, mux, id)
	w, body = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), "")
	require.Equal(t, http.StatusOK, w.Code)
	invoice := body["invoice"].(map[string]any)
	assert.Equal(t, float64(80), invoice["total"])

	// Clearing restores the plain VIP pricing for new orders.
	w, _ = doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/customers/%d/benefits", id), "")
	require.Equal(t, http.StatusNoContent, w.Code)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/customers/%d/orders", id), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)
}

func TestGrantBenefit_UnknownPreset(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")

	w, _ := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/customers/%d/benefits", id),
		`{"preset":"spring_sale"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscounts_AddRemove(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())

	w, _ := doJSON(t, mux, http.MethodPost, "/api/discounts",
		`{"name":"summer","factor":0.90,"tier":"new"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The registered discount now drives pricing: 100*0.90 + 10 = 100.
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)
	w, body := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), "")
	require.Equal(t, http.StatusOK, w.Code)
	invoice := body["invoice"].(map[string]any)
	assert.Equal(t, float64(100), invoice["total"])

	w, _ = doJSON(t, mux, http.MethodDelete, "/api/discounts/new/summer", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, mux, http.MethodDelete, "/api/discounts/new/summer", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDiscounts_Validation(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())

	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"factor":0.9,"tier":"new"}`},
		{name: "factor above one", body: `{"name":"x","factor":1.5,"tier":"new"}`},
		{name: "zero factor", body: `{"name":"x","factor":0,"tier":"new"}`},
		{name: "unknown tier", body: `{"name":"x","factor":0.9,"tier":"platinum"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doJSON(t, mux, http.MethodPost, "/api/discounts", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListShippingTypes(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())

	req := httptest.NewRequest(http.MethodGet, "/api/shipping-types", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var types []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.Len(t, types, 6)
	for _, st := range types {
		assert.Len(t, st["special_conditions"], 4)
	}
}

func TestListPaymentMethods(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())

	req := httptest.NewRequest(http.MethodGet, "/api/payment-methods", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var methods []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &methods))
	assert.Equal(t, []string{"bank_transfer", "card", "cash_on_delivery", "crypto", "qr"}, methods)
}

func TestStats(t *testing.T) {
	mux := newTestMux(t, payment.AutoConfirm())
	id := createCustomer(t, mux, "new")
	orderID := createOrder(t, mux, id)

	w, _ := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID),
		fmt.Sprintf(`{"customer_id":%d,"method":"qr"}`, id))
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, mux, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	ops := body["operations"].(map[string]any)
	assert.Equal(t, float64(2), ops["total"])
	assert.Equal(t, float64(2), ops["succeeded"])

	qr := body["qr_payments"].(map[string]any)
	assert.Equal(t, float64(1), qr["settled"])
}
