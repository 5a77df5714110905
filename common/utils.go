package common

import "cmp"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Clamp limits v to the closed interval [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound, must not be less than lo
//
// Returns:
//   - T: lo if v < lo, hi if v > hi, otherwise v
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// EucMod returns the Euclidean remainder of a divided by base, always in [0, base).
//
// Parameters:
//   - a: the dividend
//   - base: the divisor, must be positive
//
// Returns:
//   - int64: the non-negative remainder
func EucMod(a, base int64) int64 {
	m := a % base
	if m < 0 {
		m += base
	}
	return m
}

// EucMod2 applies EucMod to both components of an integer pair.
func EucMod2(a [2]int64, base int64) [2]int64 {
	return [2]int64{EucMod(a[0], base), EucMod(a[1], base)}
}
