package earnings

import (
	"math"
	"testing"
)

func rate(v float64) *float64 { return &v }

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		rate     *float64
		expected float64
	}{
		{name: "one hour", seconds: 3600, rate: rate(100), expected: 100.00},
		{name: "half hour", seconds: 1800, rate: rate(100), expected: 50.00},
		{name: "one minute rounds up", seconds: 60, rate: rate(100), expected: 1.67},
		{name: "thirty seven minutes", seconds: 2220, rate: rate(90), expected: 55.50},
		{name: "zero duration", seconds: 0, rate: rate(100), expected: 0},
		{name: "zero rate", seconds: 7200, rate: rate(0), expected: 0},
		{name: "half cent rounds up", seconds: 18, rate: rate(1), expected: 0.01},
		{name: "below half cent rounds down", seconds: 17, rate: rate(1), expected: 0},
		{name: "fractional rate", seconds: 5400, rate: rate(33.33), expected: 50.00},
		{name: "negative duration clamps", seconds: -50, rate: rate(100), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.seconds, tt.rate)
			if got == nil {
				t.Fatalf("expected %.2f, got nil", tt.expected)
			}
			if *got != tt.expected {
				t.Fatalf("expected %.2f, got %v", tt.expected, *got)
			}
		})
	}
}

func TestCalculateNilRate(t *testing.T) {
	if got := Calculate(3600, nil); got != nil {
		t.Fatalf("expected nil earnings without a rate, got %v", *got)
	}
}

func TestCalculateMatchesFormula(t *testing.T) {
	for _, r := range []float64{0, 1, 12.5, 45, 99.99, 250} {
		for seconds := int64(0); seconds <= 7200; seconds += 37 {
			got := Calculate(seconds, &r)
			want := Round2(float64(seconds) / 3600 * r)
			diff := *got - want
			if diff > 0.010001 || diff < -0.010001 {
				t.Fatalf("seconds=%d rate=%v: got %v want about %v", seconds, r, *got, want)
			}
		}
	}
}

func TestHourlyRate(t *testing.T) {
	if got := HourlyRate(150, 5400); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := HourlyRate(10, 0); got != 0 {
		t.Fatalf("expected 0 with no time, got %v", got)
	}
}

func TestCalculateHugeRateStaysPositive(t *testing.T) {
	for _, r := range []float64{1e13, 9.3e12, math.Inf(1)} {
		got := Calculate(3600, &r)
		if got == nil || *got != MaxHourlyRateUSD {
			t.Fatalf("rate=%v: expected earnings capped at %d, got %v", r, MaxHourlyRateUSD, got)
		}
	}
}

func TestValidRate(t *testing.T) {
	tests := []struct {
		rate  float64
		valid bool
	}{
		{0, true},
		{120.5, true},
		{MaxHourlyRateUSD, true},
		{-0.01, false},
		{MaxHourlyRateUSD + 1, false},
		{1e13, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := ValidRate(tt.rate); got != tt.valid {
			t.Errorf("ValidRate(%v) = %v, want %v", tt.rate, got, tt.valid)
		}
	}
}
