package alert

import (
	"math"

	"fundwatch/internal/models"
)

// tradingDaysPerYear annualizes daily return volatility.
const tradingDaysPerYear = 252

// EvaluateThreshold triggers when the current NAV reaches the configured
// absolute level. No threshold configured means never trigger.
func EvaluateThreshold(currentNav float64, params models.RuleParams) bool {
	if params.ThresholdValue == nil {
		return false
	}
	return currentNav >= *params.ThresholdValue
}

// EvaluateDrawdown measures the fall from the series peak to the last value
// as a percentage. The computed drawdown is returned whether or not it
// triggers, so callers can record it.
func EvaluateDrawdown(navSeries []float64, params models.RuleParams) (bool, float64) {
	if len(navSeries) == 0 {
		return false, 0
	}

	peak := navSeries[0]
	for _, v := range navSeries[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return false, 0
	}

	last := navSeries[len(navSeries)-1]
	drawdownPct := (peak - last) / peak * 100

	if params.ThresholdPct != nil {
		return drawdownPct >= *params.ThresholdPct, drawdownPct
	}
	return false, drawdownPct
}

// EvaluateVolatility annualizes the sample standard deviation of
// day-over-day returns. Steps with a non-positive prior value are skipped.
// Fewer than two returns yields no trigger and 0.
func EvaluateVolatility(navSeries []float64, params models.RuleParams) (bool, float64) {
	if len(navSeries) < 2 {
		return false, 0
	}

	returns := make([]float64, 0, len(navSeries)-1)
	for i := 1; i < len(navSeries); i++ {
		if navSeries[i-1] > 0 {
			returns = append(returns, (navSeries[i]-navSeries[i-1])/navSeries[i-1])
		}
	}
	if len(returns) < 2 {
		return false, 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	stdDev := math.Sqrt(sumSq / float64(len(returns)-1))

	annualizedVol := stdDev * math.Sqrt(tradingDaysPerYear) * 100

	if params.ThresholdPct != nil {
		return annualizedVol >= *params.ThresholdPct, annualizedVol
	}
	return false, annualizedVol
}

// EvaluateNewHigh triggers when the last value is the window maximum.
// A tie with an earlier peak still counts.
func EvaluateNewHigh(navSeries []float64) bool {
	if len(navSeries) == 0 {
		return false
	}
	last := navSeries[len(navSeries)-1]
	for _, v := range navSeries {
		if v > last {
			return false
		}
	}
	return true
}

// EvaluateNewLow triggers when the last value is the window minimum.
func EvaluateNewLow(navSeries []float64) bool {
	if len(navSeries) == 0 {
		return false
	}
	last := navSeries[len(navSeries)-1]
	for _, v := range navSeries {
		if v < last {
			return false
		}
	}
	return true
}
