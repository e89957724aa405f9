package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

// ListProducts returns the active catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListActive(r.Context())
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		h.encodeProduct(&e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct returns one active product. Inactive products are reported as
// not found.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err == nil && !p.Active {
		err = product.ErrNotFound
	}
	if err != nil {
		fail(w, r, err, mapCartError)
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	money(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("imageUrl")
	e.Str(h.imageURL(p.ImageURL))
	e.ObjEnd()
}
