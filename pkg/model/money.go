package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (cents). It renders as a decimal with
// two fractional digits so that clients never see binary floating point.
type Money int64

// MoneyFromFloat converts a major-unit amount such as 99.95 into Money, rounding to
// the nearest cent.
func MoneyFromFloat(amount float64) Money {
	return Money(math.Round(amount * 100))
}

func (m Money) Mul(n int) Money {
	return m * Money(n)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	negative := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	var cents int64
	if hasFrac {
		if frac == "" || len(frac) > 2 || !isDigits(frac) {
			return fmt.Errorf("invalid money amount %q: fractional part must be one or two digits", s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid money amount %q: %w", s, err)
		}
	}
	total := units*100 + cents
	if negative {
		total = -total
	}
	*m = Money(total)
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
