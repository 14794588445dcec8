package domain

import (
	"database/sql/driver"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Money is a fixed-point amount in minor units (cents).
// Decimal columns may come back from the driver as []byte or string; Scan normalizes both.
type Money int64

// MoneyFromMajor converts a whole currency amount to Money.
func MoneyFromMajor(v int64) Money { return Money(v * 100) }

// MaxMoney is the largest amount a DECIMAL(14,2) column holds: 999,999,999,999.99.
const MaxMoney Money = 99_999_999_999_999

var moneyPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]{1,2})?$`)

// ParseMoney accepts "4500", "4500.5", "4500.50" and "-12.30". Anything with more than two
// fraction digits, a stray sign or a magnitude above MaxMoney is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !moneyPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > int64(MaxMoney)/100 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	f, _ := strconv.ParseInt((frac + "00")[:2], 10, 64)
	v := w*100 + f
	if v > int64(MaxMoney) {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	if neg {
		v = -v
	}
	return Money(v), nil
}

// MoneyFromFloat rounds a client supplied float to cents.
func MoneyFromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

func (m Money) Float() float64 { return float64(m) / 100 }

// String renders with two decimals, the same text MySQL stores for DECIMAL(14,2).
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON emits a JSON number so clients never see decimal strings.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', -1, 64)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case []byte:
		p, err := ParseMoney(string(v))
		if err != nil {
			return err
		}
		*m = p
	case string:
		p, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = p
	case int64:
		*m = Money(v * 100)
	case float64:
		*m = MoneyFromFloat(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
	return nil
}

// Value implements driver.Valuer and writes the decimal text form.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
