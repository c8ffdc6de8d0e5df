package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false", u)
		}
	}
	for _, u := range []string{"", "miles", "KM", "feet"} {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true", u)
		}
	}
}

func TestConvertHeight(t *testing.T) {
	testCases := []struct {
		unit string
		want float64
	}{
		{KM, 1.5},
		{M, 1500},
		{FT, 4921.25985},
		{FL, 49.2125985},
		{"unknown", 1.5},
	}
	for _, tc := range testCases {
		if got := ConvertHeight(1.5, tc.unit); math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("ConvertHeight(1.5, %q) = %v, want %v", tc.unit, got, tc.want)
		}
	}
}
