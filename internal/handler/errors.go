package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

const msgInvalidQuantity = "invalid quantity"

func isQuantityField(name string) bool {
	return name == "quantity" || name == "delta"
}

// mapRequestError handles failures shared by every endpoint: identity,
// body decoding and validation.
func mapRequestError(err error) (int, string, bool) {
	var fe *fieldError
	if errors.As(err, &fe) {
		if isQuantityField(fe.Field) {
			return http.StatusBadRequest, msgInvalidQuantity, true
		}
		return http.StatusBadRequest, fe.Error(), true
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		if isQuantityField(ve[0].Field()) {
			return http.StatusBadRequest, msgInvalidQuantity, true
		}
		return http.StatusBadRequest, "invalid " + ve[0].Field(), true
	}

	switch {
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, errMalformedBody.Error(), true
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", true
	case errors.Is(err, errForbidden), errors.Is(err, errUserRequired), errors.Is(err, errSessionClash):
		return http.StatusForbidden, err.Error(), true
	}
	return 0, "", false
}

// mapCartError converts cart domain errors to a status and message.
func mapCartError(err error) (int, string) {
	if status, msg, ok := mapRequestError(err); ok {
		return status, msg
	}

	var puErr *cart.ProductUnavailableError
	if errors.As(err, &puErr) {
		return http.StatusUnprocessableEntity, puErr.Error()
	}

	var lnfErr *cart.LineNotFoundError
	if errors.As(err, &lnfErr) {
		return http.StatusNotFound, lnfErr.Error()
	}

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest, msgInvalidQuantity
	case errors.Is(err, cart.ErrInvalidOwner):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// mapOrderError converts checkout errors to a status and message.
func mapOrderError(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		return http.StatusConflict, err.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, err.Error()
	}
	return mapCartError(err)
}

func fail(w http.ResponseWriter, r *http.Request, err error, mapper func(error) (int, string)) {
	status, msg := mapper(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeError(w, status, msg)
}
