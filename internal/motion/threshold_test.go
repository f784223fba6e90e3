package motion

import "testing"

func TestThresholdFormula(t *testing.T) {
	cases := []struct {
		sensitivity float64
		want        float64
	}{
		{0, 10.0},
		{50, 5.25},
		{100, 0.5},
	}
	for _, c := range cases {
		got := Threshold(c.sensitivity)
		if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Threshold(%v) = %v, want %v", c.sensitivity, got, c.want)
		}
	}
}
