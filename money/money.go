/*
Package money provides the fixed-precision amount type used by every posting.

PURPOSE:
  A Money value is a decimal magnitude paired with a scale (number of
  fractional digits). All ledger arithmetic goes through this type so that
  no amount ever picks up floating-point error or silently loses a cent.

PRECISION RULES:
  - Construction fails with ErrInvalidScale when the input has more
    fractional digits than the scale, unless rounding is asked for
    explicitly (ParseRound, MulRound, Round).
  - Add/Sub between different scales widen to the larger scale. This is
    lossless because the magnitude is an arbitrary-precision decimal.
  - There is no overflow: decimal.Decimal grows as needed.

EXAMPLE:
  net := money.MustParse("1000.00", 2)
  tax, _ := net.Mul(decimal.RequireFromString("0.12"))  // 120.00
  total := net.Add(tax)                                   // 1120.00

SEE ALSO:
  - ledger/posting.go: Debit/Credit take Money
  - report/: all report columns are Money
*/
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultScale is the posting precision used when nothing else is configured.
const DefaultScale int32 = 2

// ErrInvalidScale is returned when a value cannot be represented at the
// requested scale without rounding.
var ErrInvalidScale = errors.New("invalid scale")

// ScaleError describes which value did not fit which scale.
type ScaleError struct {
	Value string
	Scale int32
}

func (e *ScaleError) Error() string {
	return fmt.Sprintf("invalid scale: %s has more than %d fractional digits", e.Value, e.Scale)
}

func (e *ScaleError) Unwrap() error { return ErrInvalidScale }

// Money is an immutable decimal amount with a fixed scale.
// The zero value is 0 at scale 0.
type Money struct {
	value decimal.Decimal
	scale int32
}

// Zero returns 0 at the given scale.
func Zero(scale int32) Money {
	return Money{value: decimal.Zero, scale: scale}
}

// FromMinor builds a value from integer minor units: FromMinor(1999, 2) = 19.99.
func FromMinor(units int64, scale int32) Money {
	return Money{value: decimal.New(units, -scale), scale: scale}
}

// FromDecimal wraps d, failing if d needs more than scale fractional digits.
func FromDecimal(d decimal.Decimal, scale int32) (Money, error) {
	if scale < 0 {
		return Money{}, &ScaleError{Value: d.String(), Scale: scale}
	}
	if !d.Equal(d.Round(scale)) {
		return Money{}, &ScaleError{Value: d.String(), Scale: scale}
	}
	return Money{value: d, scale: scale}, nil
}

// Parse reads a decimal literal such as "1120.00" or "-3.5".
func Parse(s string, scale int32) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d, scale)
}

// ParseRound reads a decimal literal and rounds it half-to-even to scale.
func ParseRound(s string, scale int32) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money{value: d.RoundBank(scale), scale: scale}, nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string, scale int32) Money {
	m, err := Parse(s, scale)
	if err != nil {
		panic(err)
	}
	return m
}

// Sum adds values, starting from zero at scale.
func Sum(scale int32, values ...Money) Money {
	total := Zero(scale)
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Arithmetic. Mixed scales widen to the larger one.
func (m Money) Add(o Money) Money { return Money{value: m.value.Add(o.value), scale: maxScale(m, o)} }
func (m Money) Sub(o Money) Money { return Money{value: m.value.Sub(o.value), scale: maxScale(m, o)} }
func (m Money) Neg() Money { return Money{value: m.value.Neg(), scale: m.scale} }
func (m Money) Abs() Money { return Money{value: m.value.Abs(), scale: m.scale} }

// Mul multiplies by a scalar. The exact product must fit the scale.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	return FromDecimal(m.value.Mul(factor), m.scale)
}

// MulRound multiplies by a scalar and rounds half-to-even to the scale.
func (m Money) MulRound(factor decimal.Decimal) Money {
	return Money{value: m.value.Mul(factor).RoundBank(m.scale), scale: m.scale}
}

// Round rounds half away from zero to places fractional digits, keeping the
// scale. Round(0) on 1119.60 gives 1120.00.
func (m Money) Round(places int32) Money {
	return Money{value: m.value.Round(places), scale: m.scale}
}

// Rescale changes the scale. Narrowing fails if digits would be lost.
func (m Money) Rescale(scale int32) (Money, error) {
	return FromDecimal(m.value, scale)
}

// Comparison. Equality ignores scale: 1.0 equals 1.00.
func (m Money) Equal(o Money) bool { return m.value.Equal(o.value) }
func (m Money) Cmp(o Money) int { return m.value.Cmp(o.value) }
func (m Money) GreaterThan(o Money) bool { return m.value.GreaterThan(o.value) }
func (m Money) LessThan(o Money) bool { return m.value.LessThan(o.value) }

// Sign tests. Exact; decimal has no representation error.
func (m Money) Sign() int { return m.value.Sign() }
func (m Money) IsZero() bool { return m.value.IsZero() }
func (m Money) IsPositive() bool { return m.value.IsPositive() }
func (m Money) IsNegative() bool { return m.value.IsNegative() }

// Accessors.
func (m Money) Scale() int32 { return m.scale }
func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) MinorUnits() int64 { return m.value.Shift(m.scale).IntPart() }
func (m Money) String() string { return m.value.StringFixed(m.scale) }

func maxScale(a, b Money) int32 {
	if a.scale > b.scale {
		return a.scale
	}
	return b.scale
}
