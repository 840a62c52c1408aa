// Package fixed provides the integer arithmetic shared by level generation and
// movement. Every participant of a session runs the same integer operations, so
// results are bit-identical regardless of CPU, compiler or instruction order.
// It contains no floating point on the simulation path; float conversions exist
// only for configuration input and render output.
package fixed

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Fixed is a signed Q47.16 fixed-point number.
type Fixed int64

// FracBits is the number of fractional bits in a Fixed.
const FracBits = 16

const (
	// One is 1.0 in fixed-point.
	One Fixed = 1 << FracBits
	// Half is 0.5 in fixed-point.
	Half Fixed = One / 2
	// Epsilon is the smallest positive Fixed.
	Epsilon Fixed = 1
)

// FromInt converts an integer to fixed-point.
func FromInt(i int) Fixed {
	return Fixed(int64(i) << FracBits)
}

// FromRatio returns num/den in fixed-point, truncated toward zero.
func FromRatio(num, den int64) Fixed {
	if den == 0 {
		return 0
	}
	return Fixed((num << FracBits) / den)
}

// FromFloat converts a float to the nearest fixed-point value.
// Only used for configuration input; a single rounded multiply is exact
// under IEEE-754 so every platform lands on the same value.
func FromFloat(f float64) Fixed {
	return Fixed(math.Round(f * float64(One)))
}

// Int returns the integer part, rounding toward negative infinity.
func (f Fixed) Int() int {
	return int(int64(f) >> FracBits)
}

// Float64 converts to float64 for display and rendering.
func (f Fixed) Float64() float64 {
	return float64(f) / float64(One)
}

// Float32 converts to float32 for rendering.
func (f Fixed) Float32() float32 {
	return float32(f.Float64())
}

// Mul returns f*g.
func (f Fixed) Mul(g Fixed) Fixed {
	return Fixed((int64(f) * int64(g)) >> FracBits)
}

// Div returns f/g. Division by zero returns zero.
func (f Fixed) Div(g Fixed) Fixed {
	if g == 0 {
		return 0
	}
	return Fixed((int64(f) << FracBits) / int64(g))
}

// MulInt returns f*i.
func (f Fixed) MulInt(i int) Fixed {
	return f * Fixed(i)
}

// DivInt returns f/i truncated toward zero.
func (f Fixed) DivInt(i int) Fixed {
	if i == 0 {
		return 0
	}
	return f / Fixed(i)
}

// Abs returns the absolute value.
func (f Fixed) Abs() Fixed {
	if f < 0 {
		return -f
	}
	return f
}

// String formats the value with four decimals.
func (f Fixed) String() string {
	return strconv.FormatFloat(f.Float64(), 'f', 4, 64)
}

// UnmarshalYAML reads a decimal number such as `0.5` or `20`.
func (f *Fixed) UnmarshalYAML(value *yaml.Node) error {
	var v float64
	if err := value.Decode(&v); err != nil {
		return fmt.Errorf("fixed: cannot decode %q: %w", value.Value, err)
	}
	*f = FromFloat(v)
	return nil
}

// MarshalYAML writes the value as a decimal number.
func (f Fixed) MarshalYAML() (any, error) {
	return f.Float64(), nil
}

// Clamp restricts a value to be within [lo, hi].
func Clamp(v, lo, hi Fixed) Fixed {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min returns the smaller of two values.
func Min(a, b Fixed) Fixed {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two values.
func Max(a, b Fixed) Fixed {
	if a > b {
		return a
	}
	return b
}

// Sqrt returns the square root, or zero for non-positive input.
func Sqrt(f Fixed) Fixed {
	if f <= 0 {
		return 0
	}
	return Fixed(isqrt(uint64(f) << FracBits))
}

// isqrt is the integer square root by Newton iteration.
func isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
