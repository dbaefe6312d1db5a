package payments

import "testing"

func TestToMinorUnitsRoundsHalfUp(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{19.995, 2000},
		{19.9951, 2000},
		{19.9949, 1999},
		{19.994, 1999},
		{19.99, 1999},
		{59.40, 5940},
		{0.01, 1},
		{0.005, 1},
		{100, 10000},
		{2.675, 268},
	}
	for _, tc := range tests {
		got, err := ToMinorUnits(tc.amount)
		if err != nil {
			t.Fatalf("ToMinorUnits(%v) returned error: %v", tc.amount, err)
		}
		if got != tc.want {
			t.Errorf("ToMinorUnits(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestToMinorUnitsRejectsInvalidAmounts(t *testing.T) {
	for _, amount := range []float64{0, -1, -0.01} {
		if _, err := ToMinorUnits(amount); err != ErrInvalidAmount {
			t.Errorf("ToMinorUnits(%v) expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}
