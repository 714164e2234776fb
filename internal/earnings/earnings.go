// Package earnings converts tracked time into money at an hourly rate.
package earnings

import (
	"math"
	"math/big"
)

// rateScale is the precision rates are fixed to before multiplying (micro-dollars).
const rateScale = 1_000_000

// MaxHourlyRateUSD is the largest rate accepted; micro-dollar rates above it
// would not fit in an int64.
const MaxHourlyRateUSD = 1_000_000_000

// ValidRate reports whether rate is a finite, non-negative rate no larger
// than MaxHourlyRateUSD.
func ValidRate(rate float64) bool {
	return rate >= 0 && rate <= MaxHourlyRateUSD
}

// Calculate returns the earnings for durationSeconds of work billed at
// hourlyRateUSD, rounded half-up to the cent. A nil rate yields nil.
// Negative durations count as zero.
func Calculate(durationSeconds int64, hourlyRateUSD *float64) *float64 {
	if hourlyRateUSD == nil {
		return nil
	}
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	rate := *hourlyRateUSD
	if rate < 0 || math.IsNaN(rate) {
		rate = 0
	}
	if rate > MaxHourlyRateUSD {
		rate = MaxHourlyRateUSD
	}

	// cents = round(seconds * micro / 3600 / 10_000)
	micro := big.NewInt(int64(math.Round(rate * rateScale)))
	num := new(big.Int).Mul(big.NewInt(durationSeconds), micro)
	denom := big.NewInt(3600 * rateScale / 100)

	num.Mul(num, big.NewInt(2))
	num.Add(num, denom)
	cents := num.Quo(num, new(big.Int).Mul(denom, big.NewInt(2)))

	value := float64(cents.Int64()) / 100
	return &value
}

// Round2 rounds v half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// HourlyRate returns the effective rate of totalEarnings over totalSeconds,
// or 0 when no time was tracked.
func HourlyRate(totalEarnings float64, totalSeconds int64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	return Round2(totalEarnings / (float64(totalSeconds) / 3600))
}
