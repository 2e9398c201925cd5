// Package money provides an exact, 8-fractional-digit decimal amount type.
//
// Payout amounts must never pass through float64: a mining pool settles real
// money, and binary floating point cannot represent most decimal fractions
// exactly. Amount stores a count of 1e-8ths (the same granularity Bitcoin
// and its derivatives use for satoshis) as an int64, and all arithmetic is
// carried out on that integer directly or, where overflow is a concern,
// through math/big.
package money

import (
	"fmt"
	"math/big"
)

// Scale is the number of fractional digits every Amount is exact to.
const Scale = 8

var scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(Scale), nil)

// Amount is an exact decimal quantity with 8 fractional digits, stored as a
// count of 1e-8 units. The zero value is zero.
type Amount struct {
	units int64
}

// Zero is the additive identity.
var Zero = Amount{}

// FromUnits builds an Amount directly from a count of 1e-8 units.
func FromUnits(units int64) Amount {
	return Amount{units: units}
}

// Units returns the underlying count of 1e-8 units.
func (a Amount) Units() int64 {
	return a.units
}

// Parse parses a decimal string (e.g. "0.50000000", "1", "12.3") into an
// Amount. The string may carry more than 8 fractional digits only if the
// trailing digits are all zero; anything else is a precision error.
func Parse(s string) (Amount, error) {
	if s == "" {
		return Zero, fmt.Errorf("money: empty amount string")
	}

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	for i, c := range s {
		if c == '.' {
			whole, frac = s[:i], s[i+1:]
			break
		}
	}
	if whole == "" {
		whole = "0"
	}

	for _, c := range whole {
		if c < '0' || c > '9' {
			return Zero, fmt.Errorf("money: invalid character in amount %q", s)
		}
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return Zero, fmt.Errorf("money: invalid character in amount %q", s)
		}
	}

	if len(frac) > Scale {
		for _, c := range frac[Scale:] {
			if c != '0' {
				return Zero, fmt.Errorf("money: amount %q has more than %d fractional digits", s, Scale)
			}
		}
		frac = frac[:Scale]
	}
	for len(frac) < Scale {
		frac += "0"
	}

	combined := whole + frac
	units := new(big.Int)
	if _, ok := units.SetString(combined, 10); !ok {
		return Zero, fmt.Errorf("money: invalid amount %q", s)
	}
	if neg {
		units.Neg(units)
	}
	if !units.IsInt64() {
		return Zero, fmt.Errorf("money: amount %q overflows", s)
	}

	return Amount{units: units.Int64()}, nil
}

// MustParse is Parse but panics on error; intended for literals in tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount as a decimal string with every trailing
// fractional zero removed (matching the teacher's FormatAmount style); a
// whole amount has no decimal point at all ("1", not "1.0").
func (a Amount) String() string {
	units := big.NewInt(a.units)
	neg := units.Sign() < 0
	if neg {
		units.Neg(units)
	}

	whole := new(big.Int).Div(units, scaleFactor)
	frac := new(big.Int).Mod(units, scaleFactor)

	fracStr := fmt.Sprintf("%0*d", Scale, frac)
	for len(fracStr) > 0 && fracStr[len(fracStr)-1] == '0' {
		fracStr = fracStr[:len(fracStr)-1]
	}

	sign := ""
	if neg {
		sign = "-"
	}
	if fracStr == "" {
		return fmt.Sprintf("%s%s", sign, whole.String())
	}
	return fmt.Sprintf("%s%s.%s", sign, whole.String(), fracStr)
}

// Float64 is a display-only conversion for tabular reporting. It must never
// be used as an input to arithmetic.
func (a Amount) Float64() float64 {
	return float64(a.units) / float64(scaleFactor.Int64())
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{units: a.units + b.units}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{units: a.units - b.units}
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.units == 0
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.units > 0
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.units < b.units:
		return -1
	case a.units > b.units:
		return 1
	default:
		return 0
	}
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.units < b.units
}

// Sum adds a slice of Amounts.
func Sum(amounts []Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Ratio renders a/b as a decimal string with up to 8 fractional digits,
// via math/big so the division itself never touches float64. Intended for
// display-only figures (e.g. an average price) that are logged but never
// fed back into further arithmetic. Returns "undefined" if b is zero.
func Ratio(a, b Amount) string {
	if b.units == 0 {
		return "undefined"
	}
	r := big.NewRat(a.units, b.units)
	return r.FloatString(Scale)
}

// Mul multiplies the amount by a rational numerator/denominator pair,
// rounding to the nearest unit (half away from zero). Used for pro-rata
// trade-fee splits, where the multiplier itself is not representable as a
// fixed 8-digit Amount.
func (a Amount) Mul(numerator, denominator int64) Amount {
	if denominator == 0 {
		return Zero
	}
	units := big.NewInt(a.units)
	num := big.NewInt(numerator)
	den := big.NewInt(denominator)

	product := new(big.Int).Mul(units, num)

	quot, rem := new(big.Int), new(big.Int)
	quot.QuoRem(product, den, rem)

	rem.Abs(rem)
	rem.Mul(rem, big.NewInt(2))
	if rem.Cmp(new(big.Int).Abs(den)) >= 0 {
		if (product.Sign() < 0) != (den.Sign() < 0) {
			quot.Sub(quot, big.NewInt(1))
		} else {
			quot.Add(quot, big.NewInt(1))
		}
	}

	return Amount{units: quot.Int64()}
}
