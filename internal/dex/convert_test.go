package dex

import (
	"math/big"
	"testing"
)

func TestAsUint8RejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
	}{
		{"uint64 overflow", uint64(300)},
		{"uint32 overflow", uint32(256)},
		{"big overflow", big.NewInt(1000)},
		{"negative big", big.NewInt(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := asUint8(tc.value); err == nil {
				t.Fatalf("asUint8(%v) accepted an out-of-range value", tc.value)
			}
		})
	}
}

func TestAsUint8Accepts(t *testing.T) {
	for _, value := range []interface{}{uint8(18), uint64(255), big.NewInt(6)} {
		got, err := asUint8(value)
		if err != nil {
			t.Fatalf("asUint8(%v): %v", value, err)
		}
		if got == 0 {
			t.Fatalf("asUint8(%v) = 0", value)
		}
	}
}
