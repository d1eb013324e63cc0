package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeAmount converts a numeric or numeric-string amount to float64.
// Input that does not parse yields NaN rather than an error.
func NormalizeAmount(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// amountString is the amount as sent to the gateway: strings pass through
// untouched, numbers use their shortest decimal form.
func amountString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return strconv.FormatFloat(NormalizeAmount(v), 'f', -1, 64)
}
