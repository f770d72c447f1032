package money

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// MarshalJSON renders the amount as a quoted fixed-scale string so that
// clients never see a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts "12.50" or 12.50. The scale is taken from the
// literal; callers rescale to the posting precision.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := fromLiteral(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as TEXT.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan reads an amount stored as TEXT (or an integer column).
func (m *Money) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		*m = Money{value: decimal.NewFromInt(v), scale: 0}
		return nil
	case nil:
		*m = Money{}
		return nil
	default:
		return fmt.Errorf("scan amount: unsupported type %T", src)
	}
	parsed, err := fromLiteral(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func fromLiteral(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	scale := -d.Exponent()
	if scale < 0 {
		scale = 0
	}
	return Money{value: d, scale: scale}, nil
}
