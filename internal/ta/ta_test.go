package ta

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		n      int
		want   float64
	}{
		{"last three", []float64{1, 2, 3, 4, 5}, 3, 4},
		{"full series", []float64{2, 4, 6}, 3, 4},
		{"window of one", []float64{2, 4, 6}, 1, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.closes, tt.n)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SMA(%v, %d) = %v, want %v", tt.closes, tt.n, got, tt.want)
			}
		})
	}
}

func TestSMA_ShortSeries(t *testing.T) {
	if got := SMA([]float64{1, 2}, 3); !math.IsNaN(got) {
		t.Errorf("SMA() on short series = %v, want NaN", got)
	}
	if got := SMA(nil, 1); !math.IsNaN(got) {
		t.Errorf("SMA() on empty series = %v, want NaN", got)
	}
}

func TestRSI(t *testing.T) {
	// Monotonic rise has no losses, RSI saturates at 100.
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	if got := RSI(up, 5); got != 100 {
		t.Errorf("RSI(rising, 5) = %v, want 100", got)
	}

	// Equal gains and losses balance out to 50.
	flat := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10}
	got := RSI(flat, 6)
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("RSI(alternating, 6) = %v, want 50", got)
	}

	if got := RSI([]float64{1, 2}, 5); !math.IsNaN(got) {
		t.Errorf("RSI() on short series = %v, want NaN", got)
	}
}

func TestBollinger(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10}

	mid, up, low := Bollinger(closes, 5, 2)
	if mid != 10 || up != 10 || low != 10 {
		t.Errorf("Bollinger(constant) = (%v, %v, %v), want (10, 10, 10)", mid, up, low)
	}

	closes = []float64{8, 12, 8, 12, 8, 12}
	mid, up, low = Bollinger(closes, 6, 2)
	if mid != 10 {
		t.Errorf("Bollinger() mid = %v, want 10", mid)
	}
	if up <= mid || low >= mid {
		t.Errorf("Bollinger() bands (%v, %v) do not straddle mid %v", up, low, mid)
	}
	if math.Abs((up-mid)-(mid-low)) > 1e-9 {
		t.Errorf("Bollinger() bands not symmetric: up-mid=%v mid-low=%v", up-mid, mid-low)
	}
}
