package pricing

import "math"

// VolatilitySource records how an estimate was produced, so callers can log
// fallbacks without treating them as errors.
type VolatilitySource string

const (
	VolEstimated           VolatilitySource = "estimated"
	VolDefaultInsufficient VolatilitySource = "default_insufficient_data"
	VolDefaultOutOfRange   VolatilitySource = "default_out_of_range"
)

// VolatilityEstimator derives annualized volatility from a daily close series.
// Invalid closes (NaN, zero, negative) are treated as gaps; pairs touching a
// gap contribute no return. Estimates outside [MinAnnualized, MaxAnnualized]
// are discarded in favor of Default.
type VolatilityEstimator struct {
	Default            float64
	TradingDaysPerYear float64
	MinClosePoints     int
	MinReturns         int
	MinAnnualized      float64
	MaxAnnualized      float64
}

// NewVolatilityEstimator returns an estimator with the reference thresholds:
// 252 trading days, >=20 raw closes, >=15 valid returns, sanity band [0.10, 2.0].
func NewVolatilityEstimator(defaultVol float64) VolatilityEstimator {
	return VolatilityEstimator{
		Default:            defaultVol,
		TradingDaysPerYear: 252,
		MinClosePoints:     20,
		MinReturns:         15,
		MinAnnualized:      0.10,
		MaxAnnualized:      2.0,
	}
}

// Estimate returns the annualized volatility and the source of the value.
// It never fails: insufficient or out-of-range data degrades to Default.
func (e VolatilityEstimator) Estimate(closes []float64) (float64, VolatilitySource) {
	if len(closes) < e.MinClosePoints {
		return e.Default, VolDefaultInsufficient
	}

	returns := DailyReturns(closes)
	if len(returns) < e.MinReturns {
		return e.Default, VolDefaultInsufficient
	}

	dailyVol := math.Sqrt(SampleVariance(returns))
	annualized := dailyVol * math.Sqrt(e.TradingDaysPerYear)

	if annualized < e.MinAnnualized || annualized > e.MaxAnnualized {
		return e.Default, VolDefaultOutOfRange
	}
	return annualized, VolEstimated
}

// DailyReturns builds simple returns over adjacent valid closes, skipping any
// pair where either side is missing.
func DailyReturns(closes []float64) []float64 {
	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if !validClose(closes[i]) || !validClose(closes[i-1]) {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

// SampleVariance uses the n-1 denominator. Fewer than two points yields 0.
func SampleVariance(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(n-1)
}

func validClose(v float64) bool {
	return !math.IsNaN(v) && v > 0
}
