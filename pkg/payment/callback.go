package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// CallbackShape is derived from which fields a callback carries; the gateway
// sends no discriminant.
type CallbackShape int

const (
	ShapeUnknown CallbackShape = iota
	// ShapeSuccess carries CallbackMetadata with receipt details.
	ShapeSuccess
	// ShapeError carries a result code and description but no metadata.
	ShapeError
)

func (s CallbackShape) String() string {
	switch s {
	case ShapeSuccess:
		return "success"
	case ShapeError:
		return "error"
	}
	return "unknown"
}

// CallbackItem is one entry of CallbackMetadata.Item. Daraja sends
// {"Name": "...", "Value": ...}; some relays flatten it to {"<Name>": ...}.
type CallbackItem map[string]any

// STKCallback is the normalized form of an STK push callback. Absent fields
// stay at their zero value; ResultCode is nil when the payload has no numeric
// result code.
type STKCallback struct {
	Shape             CallbackShape
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        *float64
	ResultDesc        string
	Items             []CallbackItem
}

// ParseSTKCallback reads the {"Body":{"stkCallback":{...}}} envelope. Only
// malformed JSON is an error; every missing or mistyped field is left empty.
func ParseSTKCallback(raw []byte) (*STKCallback, error) {
	if !json.Valid(raw) {
		return nil, errors.New("callback payload is not valid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	cb := &STKCallback{}
	stk := object(object(root, "Body"), "stkCallback")
	if stk == nil {
		return cb, nil
	}
	cb.MerchantRequestID, _ = stk["MerchantRequestID"].(string)
	cb.CheckoutRequestID, _ = stk["CheckoutRequestID"].(string)
	cb.ResultCode = number(stk["ResultCode"])
	cb.ResultDesc, _ = stk["ResultDesc"].(string)

	_, hasDesc := stk["ResultDesc"]
	_, hasCode := stk["ResultCode"]
	if meta, ok := stk["CallbackMetadata"].(map[string]any); ok {
		cb.Shape = ShapeSuccess
		if items, ok := meta["Item"].([]any); ok {
			for _, it := range items {
				if m, ok := it.(map[string]any); ok {
					cb.Items = append(cb.Items, CallbackItem(m))
				}
			}
		}
	} else if hasCode || hasDesc {
		cb.Shape = ShapeError
	}
	return cb, nil
}

// Lookup returns the value of the first metadata item named name, formatted
// as a string. It returns nil when no item matches or the value is not a
// scalar.
func (c *STKCallback) Lookup(name string) *string {
	for _, it := range c.Items {
		if v, ok := it[name]; ok {
			return scalar(v)
		}
		if n, _ := it["Name"].(string); n == name {
			return scalar(it["Value"])
		}
	}
	return nil
}

func object(v any, key string) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	child, _ := m[key].(map[string]any)
	return child
}

func number(v any) *float64 {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// FormatResultCode renders a result code in plain decimal without exponent:
// 1032, 1.5, 10000000000000000000.
func FormatResultCode(code float64) string {
	return strconv.FormatFloat(code, 'f', -1, 64)
}

func scalar(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}
