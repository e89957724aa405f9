package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
)

// PlaceOrder checks out the caller's cart into a pending order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	o, err := h.orders.Checkout(r.Context(), owner)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, &e)
}

// GetOrder returns one of the caller's orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	o, err := h.orders.Get(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	orders, err := h.orders.ListByOwner(r.Context(), owner)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("unitPrice")
		money(e, l.UnitPrice)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("lineTotal")
		money(e, l.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	money(e, o.Subtotal)
	e.FieldStart("tax")
	money(e, o.Tax)
	e.FieldStart("discount")
	money(e, o.Discount)
	e.FieldStart("total")
	money(e, o.Total)
	if o.DiscountCode != "" {
		e.FieldStart("discountCode")
		e.Str(o.DiscountCode)
	}
	e.FieldStart("createdAt")
	timestamp(e, o.CreatedAt)
	e.ObjEnd()
}
