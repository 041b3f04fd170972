package externalapi

import "math"

// NormalizedAmount converts an amount expressed in the given unit base
// into base-0 units. It returns false if the result does not fit in a
// uint64.
func NormalizedAmount(amount uint64, base uint32) (uint64, bool) {
	for i := uint32(0); i < base; i++ {
		if amount == 0 {
			return 0, true
		}
		if amount > math.MaxUint64/10 {
			return 0, false
		}
		amount *= 10
	}
	return amount, true
}

// AddAmounts returns a+b, or false if the sum overflows
func AddAmounts(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
