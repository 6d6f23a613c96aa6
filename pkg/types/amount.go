package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits stored for money values.
const AmountScale = 2

// MaxAmount is the largest value a numeric(18,2) column holds.
var MaxAmount = MustParseAmount("9999999999999999.99")

// Amount is a fixed-point money value. It always crosses the wire as a decimal
// string ("100.50") and is stored as numeric(18,2).
type Amount struct {
	value decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// AmountFromInt is a convenience for whole-unit amounts.
func AmountFromInt(units int64) Amount {
	return Amount{value: decimal.NewFromInt(units)}
}

// ParseAmount parses a decimal string.
func ParseAmount(raw string) (Amount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Amount{}, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return Amount{value: d}, nil
}

// MustParseAmount panics on invalid input; intended for fixtures.
func MustParseAmount(raw string) Amount {
	a, err := ParseAmount(raw)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal { return a.value }

func (a Amount) String() string { return a.value.String() }

func (a Amount) IsPositive() bool { return a.value.IsPositive() }

func (a Amount) IsNegative() bool { return a.value.IsNegative() }

func (a Amount) IsZero() bool { return a.value.IsZero() }

// HasValidScale reports whether the amount fits the stored precision.
func (a Amount) HasValidScale() bool {
	return a.value.Equal(a.value.Truncate(AmountScale))
}

// Fits reports whether the amount can be stored without rounding or overflow.
func (a Amount) Fits() bool {
	return a.HasValidScale() && a.value.Abs().LessThanOrEqual(MaxAmount.value)
}

func (a Amount) Add(other Amount) Amount { return Amount{value: a.value.Add(other.value)} }

func (a Amount) Sub(other Amount) Amount { return Amount{value: a.value.Sub(other.value)} }

func (a Amount) LessThan(other Amount) bool { return a.value.LessThan(other.value) }

func (a Amount) GreaterThan(other Amount) bool { return a.value.GreaterThan(other.value) }

func (a Amount) Equal(other Amount) bool { return a.value.Equal(other.value) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value.String())
}

// UnmarshalJSON accepts "12.34" or 12.34. Numbers are read from their literal
// text so no binary float conversion happens.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		a.value = decimal.Zero
		return nil
	}
	raw := string(trimmed)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	a.value = parsed.value
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.value.StringFixed(AmountScale), nil
}

func (a *Amount) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan amount: %w", err)
	}
	a.value = d
	return nil
}
