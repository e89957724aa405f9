package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
)

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=128"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=10000"`
}

type updateItemRequest struct {
	Delta int `json:"delta" validate:"oneof=-1 1"`
}

type setItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=10000"`
}

type discountRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type mergeLine struct {
	ProductID string `json:"productId" validate:"required,max=128"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=10000"`
}

type mergeRequest struct {
	GuestSession string      `json:"guestSession" validate:"omitempty,uuid"`
	Items        []mergeLine `json:"items" validate:"max=200,dive"`
	MergeKey     string      `json:"mergeKey" validate:"max=128"`
}

func decodeAddItem(r *http.Request) (addItemRequest, error) {
	req := addItemRequest{Quantity: 1}
	err := readObject(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "productId":
			req.ProductID, err = decodeStr(d, key)
		case "quantity":
			req.Quantity, err = decodeInt(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeUpdateItem(r *http.Request) (updateItemRequest, error) {
	var req updateItemRequest
	err := readObject(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "delta":
			req.Delta, err = decodeInt(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeSetItem(r *http.Request) (setItemRequest, error) {
	var req setItemRequest
	err := readObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "quantity":
			q, err := decodeInt(d, key)
			if err != nil {
				return err
			}
			req.Quantity = &q
			return nil
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeDiscount(r *http.Request) (discountRequest, error) {
	var req discountRequest
	err := readObject(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			req.Code, err = decodeStr(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeMerge(r *http.Request) (mergeRequest, error) {
	var req mergeRequest
	err := readObject(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "guestSession":
			req.GuestSession, err = decodeStr(d, key)
		case "mergeKey":
			req.MergeKey, err = decodeStr(d, key)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				line := mergeLine{Quantity: 1}
				if err := d.ObjBytes(func(d *jx.Decoder, k []byte) (err error) {
					switch string(k) {
					case "productId":
						line.ProductID, err = decodeStr(d, "productId")
					case "quantity":
						line.Quantity, err = decodeInt(d, "quantity")
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, line)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func (m mergeRequest) lines() []cart.Line {
	lines := make([]cart.Line, 0, len(m.Items))
	for _, it := range m.Items {
		lines = append(lines, cart.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}
