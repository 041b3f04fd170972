package externalapi

import (
	"math"
	"testing"
)

func TestNormalizedAmount(t *testing.T) {
	tests := []struct {
		amount     uint64
		base       uint32
		expected   uint64
		expectedOK bool
	}{
		{amount: 0, base: 0, expected: 0, expectedOK: true},
		{amount: 123, base: 0, expected: 123, expectedOK: true},
		{amount: 123, base: 2, expected: 12300, expectedOK: true},
		{amount: 0, base: 1000, expected: 0, expectedOK: true},
		{amount: math.MaxUint64 / 10, base: 1, expected: math.MaxUint64 / 10 * 10, expectedOK: true},
		{amount: math.MaxUint64/10 + 1, base: 1, expectedOK: false},
		{amount: 1, base: 20, expectedOK: false},
		{amount: 1, base: 19, expected: 10000000000000000000, expectedOK: true},
	}
	for i, test := range tests {
		result, ok := NormalizedAmount(test.amount, test.base)
		if ok != test.expectedOK {
			t.Fatalf("%d: expected ok=%t but got %t", i, test.expectedOK, ok)
		}
		if ok && result != test.expected {
			t.Fatalf("%d: expected %d but got %d", i, test.expected, result)
		}
	}
}

func TestAddAmounts(t *testing.T) {
	sum, ok := AddAmounts(40, 2)
	if !ok || sum != 42 {
		t.Fatalf("expected 42, got %d (ok=%t)", sum, ok)
	}
	_, ok = AddAmounts(math.MaxUint64, 1)
	if ok {
		t.Fatalf("expected an overflow")
	}
	_, ok = AddAmounts(1<<63, 1<<63)
	if ok {
		t.Fatalf("expected an overflow")
	}
}
