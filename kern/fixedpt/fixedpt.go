// Package fixedpt implements signed 17.16 fixed-point arithmetic.
//
// The scheduler's accounting formulas (load average, recent CPU usage) need
// fractional math in interrupt context, where no floating-point unit is
// assumed. A Value is a plain int32 with 16 fractional bits; multiply and
// divide widen through int64 before rescaling so intermediate products do not
// overflow. Overflow of the final 32-bit result truncates silently.
package fixedpt

// Value is a 17.16 signed fixed-point number.
type Value int32

const fracBits = 16

// One is the fixed-point representation of 1.
const One Value = 1 << fracBits

// FromInt converts an integer to fixed-point.
func FromInt(n int) Value { return Value(n) << fracBits }

// Ratio returns num/den as a fixed-point value.
func Ratio(num, den int) Value {
	return Value((int64(num) << (2 * fracBits)) / (int64(den) << fracBits))
}

// Trunc converts v to an integer, rounding toward negative infinity.
func (v Value) Trunc() int { return int(v >> fracBits) }

// Round converts v to the nearest integer, rounding half away from zero.
// The negative branch divides rather than shifts: a shift would floor.
func (v Value) Round() int {
	if v >= 0 {
		return int((v + 1<<(fracBits-1)) >> fracBits)
	}
	return int((v - 1<<(fracBits-1)) / (1 << fracBits))
}

// Add returns v + o.
func (v Value) Add(o Value) Value { return v + o }

// Sub returns v - o.
func (v Value) Sub(o Value) Value { return v - o }

// AddInt returns v + n for integer n.
func (v Value) AddInt(n int) Value { return v + FromInt(n) }

// SubInt returns v - n for integer n.
func (v Value) SubInt(n int) Value { return v - FromInt(n) }

// Mul returns v * o.
func (v Value) Mul(o Value) Value {
	return Value(int64(v) * int64(o) >> fracBits)
}

// MulInt returns v * n for integer n.
func (v Value) MulInt(n int) Value { return v * Value(n) }

// Div returns v / o.
func (v Value) Div(o Value) Value {
	return Value((int64(v) << fracBits) / int64(o))
}

// DivInt returns v / n for integer n.
func (v Value) DivInt(n int) Value { return v / Value(n) }
