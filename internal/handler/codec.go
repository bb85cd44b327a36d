package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/shipping"
)

func decodeBody(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return jx.DecodeBytes(data), nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.Format(time.RFC3339))
}

func encodeLine(e *jx.Encoder, l order.Line) {
	e.ObjStart()
	e.FieldStart("product_ref")
	e.Str(l.ProductRef)
	e.FieldStart("unit_price")
	encodeDecimal(e, l.UnitPrice)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.ObjEnd()
}

func encodeEstimate(e *jx.Encoder, est shipping.Estimate) {
	e.ObjStart()
	e.FieldStart("earliest")
	encodeTime(e, est.Earliest)
	e.FieldStart("latest")
	encodeTime(e, est.Latest)
	e.FieldStart("window")
	e.Str(est.Window)
	e.FieldStart("note")
	e.Str(est.Note)
	e.ObjEnd()
}

func encodeCost(e *jx.Encoder, c shipping.Cost) {
	e.ObjStart()
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range c.Lines {
		e.ObjStart()
		e.FieldStart("label")
		e.Str(l.Label)
		e.FieldStart("amount")
		encodeDecimal(e, l.Amount)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	encodeDecimal(e, c.Total)
	e.ObjEnd()
}

func encodeInvoice(e *jx.Encoder, inv order.Invoice) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeDecimal(e, inv.Subtotal)
	e.FieldStart("shipping_charged")
	encodeDecimal(e, inv.ShippingCharged)
	e.FieldStart("discount_percent")
	encodeDecimal(e, inv.DiscountPercent)
	e.FieldStart("discount_multiplier")
	encodeDecimal(e, inv.DiscountMultiplier)
	e.FieldStart("tax_multiplier")
	encodeDecimal(e, inv.TaxMultiplier)
	e.FieldStart("cashback_percent")
	encodeDecimal(e, inv.CashbackPercent)
	e.FieldStart("discounted_subtotal")
	encodeDecimal(e, inv.DiscountedSubtotal)
	e.FieldStart("total")
	encodeDecimal(e, inv.Total)
	e.FieldStart("cashback_amount")
	encodeDecimal(e, inv.CashbackAmount)
	e.FieldStart("applied")
	e.ArrStart()
	for _, label := range inv.Applied {
		e.Str(label)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("customer_id")
	e.Int64(o.CustomerID)
	e.FieldStart("address")
	e.Str(o.Address)
	e.FieldStart("shipping_type")
	e.Str(o.ShippingType)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Items {
		encodeLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("shipping_base")
	encodeDecimal(e, o.ShippingBase)
	e.FieldStart("shipping_charged")
	encodeDecimal(e, o.ShippingCharged)
	e.FieldStart("estimate")
	encodeEstimate(e, o.Estimate)
	e.FieldStart("surcharge")
	encodeCost(e, o.Surcharge)
	e.FieldStart("invoice")
	encodeInvoice(e, o.Invoice)
	e.FieldStart("created_at")
	encodeTime(e, o.CreatedAt)
	e.ObjEnd()
}
