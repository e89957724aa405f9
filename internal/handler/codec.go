package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// fieldError reports a body field with the wrong JSON type.
type fieldError struct {
	Field string
	Err   error
}

func (e *fieldError) Error() string {
	return "invalid " + e.Field
}

func (e *fieldError) Unwrap() error { return e.Err }

// readObject decodes the request body as a JSON object, calling fn for each
// field. An empty body is treated as {}.
func readObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if len(body) == 0 {
		return nil
	}
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		var fe *fieldError
		if errors.As(err, &fe) {
			return fe
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

var errWrongType = errors.New("wrong JSON type")

func decodeInt(d *jx.Decoder, field string) (int, error) {
	switch d.Next() {
	case jx.Number:
		v, err := d.Int()
		if err != nil {
			return 0, &fieldError{Field: field, Err: err}
		}
		return v, nil
	case jx.Invalid:
		return 0, d.Skip()
	default:
		if err := d.Skip(); err != nil {
			return 0, err
		}
		return 0, &fieldError{Field: field, Err: errWrongType}
	}
}

func decodeStr(d *jx.Decoder, field string) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	case jx.Invalid:
		return "", d.Skip()
	default:
		if err := d.Skip(); err != nil {
			return "", err
		}
		return "", &fieldError{Field: field, Err: errWrongType}
	}
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// money writes an amount as a JSON number with two decimals.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func timestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}
