package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/pricing"
)

// GetCart returns the caller's items and totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.View(r.Context(), owner)
	h.respondView(w, r, v, err)
}

// AddItem adds a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	req, err := decodeAddItem(r)
	if err == nil {
		err = h.validate.Struct(req)
	}
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.Add(r.Context(), owner, req.ProductID, req.Quantity)
	h.respondView(w, r, v, err)
}

// UpdateItem moves a line quantity one step up or down.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	req, err := decodeUpdateItem(r)
	if err == nil {
		err = h.validate.Struct(req)
	}
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.UpdateQuantity(r.Context(), owner, r.PathValue("productId"), req.Delta)
	h.respondView(w, r, v, err)
}

// SetItem sets a line to an absolute quantity. Zero removes the line.
func (h *Handler) SetItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	req, err := decodeSetItem(r)
	if err == nil {
		err = h.validate.Struct(req)
	}
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.SetQuantity(r.Context(), owner, r.PathValue("productId"), *req.Quantity)
	h.respondView(w, r, v, err)
}

// RemoveItem drops a line. Removing an absent product is not an error.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.Remove(r.Context(), owner, r.PathValue("productId"))
	h.respondView(w, r, v, err)
}

// ClearCart removes every line and the discount code.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.Clear(r.Context(), owner)
	h.respondView(w, r, v, err)
}

// SetDiscount applies a discount code. An unrecognized code clears the
// discount and is answered with 422 and the recomputed cart.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	req, err := decodeDiscount(r)
	if err == nil {
		err = h.validate.Struct(req)
	}
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.SetDiscountCode(r.Context(), owner, req.Code)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	status := http.StatusOK
	if v.Totals.DiscountStatus == pricing.DiscountInvalid {
		status = http.StatusUnprocessableEntity
	}
	h.writeView(w, status, v)
}

// ClearDiscount removes the discount code.
func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	v, err := h.carts.ClearDiscountCode(r.Context(), owner)
	h.respondView(w, r, v, err)
}

// MergeCart folds a guest cart into the authenticated user's cart. The guest
// is the session named in the body, else the caller's own session; client
// held lines may be sent as items.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(w, r)
	if err == nil && owner.Kind != cart.User {
		err = errUserRequired
	}
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	req, err := decodeMerge(r)
	if err == nil {
		err = h.validate.Struct(req)
	}
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}

	mr := cart.MergeRequest{
		User:  owner,
		Lines: req.lines(),
		Key:   req.MergeKey,
	}
	// A session named in the body may only stand in for a caller that has
	// none; it cannot override the caller's own session.
	session, fromCaller := h.guestSession(r)
	if req.GuestSession != "" {
		id, err := uuid.Parse(req.GuestSession)
		if err != nil {
			fail(w, r, &fieldError{Field: "guestSession", Err: err}, mapCartError)
			return
		}
		named := id.String()
		if fromCaller && session != named {
			fail(w, r, errSessionClash, mapCartError)
			return
		}
		session = named
	}
	if session != "" {
		guest := cart.GuestOwner(session)
		mr.Guest = &guest
	}

	v, err := h.carts.Merge(r.Context(), mr)
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	if fromCaller {
		h.expireSession(w)
	}
	h.writeView(w, http.StatusOK, v)
}

func (h *Handler) respondView(w http.ResponseWriter, r *http.Request, v *cart.View, err error) {
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}
	h.writeView(w, http.StatusOK, v)
}

func (h *Handler) writeView(w http.ResponseWriter, status int, v *cart.View) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range v.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		money(&e, it.Price)
		e.FieldStart("imageUrl")
		e.Str(h.imageURL(it.ImageURL))
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("stock")
		e.Int(it.Stock)
		e.FieldStart("subtotal")
		money(&e, it.Subtotal)
		e.ObjEnd()
	}
	e.ArrEnd()

	t := v.Totals
	e.FieldStart("totals")
	e.ObjStart()
	e.FieldStart("subtotal")
	money(&e, t.Subtotal)
	e.FieldStart("tax")
	money(&e, t.Tax)
	e.FieldStart("discount")
	money(&e, t.Discount)
	e.FieldStart("total")
	money(&e, t.Total)
	e.ObjEnd()

	e.FieldStart("discountCode")
	if t.DiscountCode == "" {
		e.Null()
	} else {
		e.Str(t.DiscountCode)
	}
	e.FieldStart("discountStatus")
	e.Str(string(t.DiscountStatus))
	e.ObjEnd()

	writeJSON(w, status, &e)
}
