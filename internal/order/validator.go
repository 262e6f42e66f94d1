// Package order turns webhook payloads into brokerage orders.
package order

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"signal_relay/internal/broker"
	apperrors "signal_relay/internal/errors"
)

// Intent is a validated, normalized order request.
type Intent struct {
	Direction  broker.Direction
	Instrument string
	Size       decimal.Decimal
	TakeProfit *decimal.Decimal
	StopLoss   *decimal.Decimal
}

// Required fields, in the order they are checked.
var requiredFields = []string{"action", "symbol", "size"}

// Validate converts a decoded webhook payload into an Intent. Unknown fields
// are ignored. It does not modify raw.
func Validate(raw map[string]any) (Intent, error) {
	for _, field := range requiredFields {
		if isMissing(raw[field]) {
			return Intent{}, apperrors.MissingField(field)
		}
	}

	direction, err := parseAction(raw["action"])
	if err != nil {
		return Intent{}, err
	}

	symbol, ok := raw["symbol"].(string)
	if !ok {
		return Intent{}, apperrors.InvalidSymbol(raw["symbol"])
	}

	size, err := parseDecimal(raw["size"])
	if err != nil {
		return Intent{}, apperrors.InvalidSize(err.Error())
	}
	if !size.IsPositive() {
		return Intent{}, apperrors.InvalidSize("must be greater than zero")
	}

	intent := Intent{
		Direction:  direction,
		Instrument: strings.TrimSpace(symbol),
		Size:       size,
	}

	if intent.TakeProfit, err = parseLevel(raw, "tp"); err != nil {
		return Intent{}, err
	}
	if intent.StopLoss, err = parseLevel(raw, "sl"); err != nil {
		return Intent{}, err
	}

	return intent, nil
}

func isMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

func parseAction(v any) (broker.Direction, error) {
	s, ok := v.(string)
	if !ok {
		return "", apperrors.InvalidAction(fmt.Sprint(v))
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return broker.Buy, nil
	case "sell":
		return broker.Sell, nil
	default:
		return "", apperrors.InvalidAction(s)
	}
}

// parseLevel returns nil when the field is absent.
func parseLevel(raw map[string]any, field string) (*decimal.Decimal, error) {
	v, ok := raw[field]
	if !ok || isMissing(v) {
		return nil, nil
	}
	d, err := parseDecimal(v)
	if err != nil {
		return nil, apperrors.InvalidLevel(field, err.Error())
	}
	if !d.IsPositive() {
		return nil, apperrors.InvalidLevel(field, "must be greater than zero")
	}
	return &d, nil
}

func parseDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%q is not a number", val)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported type %T", v)
	}
}
