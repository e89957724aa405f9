package db

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

// ParseProducts decodes a JSON array of products. Prices are decimal strings
// or numbers; products are active unless "active" is false.
func ParseProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p := product.Product{Active: true}
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "price":
				p.Price, err = decodePrice(d)
			case "stock":
				p.Stock, err = d.Int()
			case "active":
				p.Active, err = d.Bool()
			case "category":
				p.Category, err = d.Str()
			case "imageUrl":
				p.ImageURL, err = d.Str()
			default:
				err = d.Skip()
			}
			return errors.Wrapf(err, "field %q", key)
		}); err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		if p.ID == "" {
			return errors.Errorf("product %d: missing id", len(out))
		}
		if p.Price.IsNegative() || p.Stock < 0 {
			return errors.Errorf("product %s: negative price or stock", p.ID)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse products")
	}
	return out, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	}
	return decimal.NewFromString(raw)
}
