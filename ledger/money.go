package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal helpers and the minor-unit storage encoding
// =============================================================================

// MinorUnitExp is the number of decimal places kept for every amount.
const MinorUnitExp = 2

var hundred = decimal.NewFromInt(100)

// MaxAmount bounds every stored amount so that sums of many amounts still
// fit in int64 minor units.
var MaxAmount = decimal.New(1, 15)

// Round rounds to the stored precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitExp)
}

// ToMinor converts an amount to integer minor units (kuruş/cents) for storage.
// SQL increments on integers are exact, which keeps concurrent balance
// updates free of rounding drift.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(MinorUnitExp).Round(0).IntPart()
}

// FromMinor is the inverse of ToMinor.
func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -MinorUnitExp)
}

// MustParseDecimal parses s, returning zero on malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmount parses a user-supplied amount and rejects non-positive values.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid(field, "not a number: %q", s)
	}
	return CheckAmount(field, d)
}

// CheckAmount rounds d to the stored precision and requires the result to
// be positive and at most MaxAmount. 0.001 rounds to zero and is refused.
func CheckAmount(field string, d decimal.Decimal) (decimal.Decimal, error) {
	d = Round(d)
	if !d.IsPositive() {
		return decimal.Zero, Invalid(field, "must be positive")
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, Invalid(field, "must not exceed %s", MaxAmount)
	}
	return d, nil
}

// CheckNonNegative is CheckAmount for values that may be zero, such as fees.
func CheckNonNegative(field string, d decimal.Decimal) (decimal.Decimal, error) {
	d = Round(d)
	if d.IsNegative() {
		return decimal.Zero, Invalid(field, "must not be negative")
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, Invalid(field, "must not exceed %s", MaxAmount)
	}
	return d, nil
}

// CheckSigned bounds the magnitude of a value that may take either sign,
// such as an initial balance or a manual adjustment.
func CheckSigned(field string, d decimal.Decimal) (decimal.Decimal, error) {
	d = Round(d)
	if d.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, Invalid(field, "magnitude must not exceed %s", MaxAmount)
	}
	return d, nil
}

// Percent returns amount × rate / 100.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}
