package pricing

import (
	"math"
	"time"
)

// Result is the fair value of a binary call paying 1 if S_T > K, plus the
// undiscounted risk-neutral probability it resolves YES.
type Result struct {
	FairValue   float64
	Probability float64
}

// minTimeToExpiry keeps T strictly positive so d2 stays finite.
const minTimeToExpiry = 0.001

// sigmaFloor avoids division by zero for degenerate volatility inputs.
const sigmaFloor = 0.001

// NormCDF is the standard normal CDF via the Abramowitz-Stegun rational
// approximation (7.1.26), max error ~1e-7. erf is deliberately not used so
// the output matches the reference coefficients bit-for-bit in tests.
func NormCDF(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// BinaryCall prices a digital call under risk-neutral measure:
// probability = N(d2), fair value = e^(-rT) * N(d2).
// T <= 0 collapses to the expiry indicator 1{S > K}.
func BinaryCall(s, k, t, r, sigma, q float64) Result {
	if t <= 0 {
		prob := 0.0
		if s > k {
			prob = 1.0
		}
		return Result{FairValue: prob, Probability: prob}
	}

	if sigma <= 0 {
		sigma = sigmaFloor
	}

	d2 := (math.Log(s/k) + (r-q-0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	probability := NormCDF(d2)
	fairValue := math.Exp(-r*t) * probability

	return Result{FairValue: fairValue, Probability: probability}
}

// TimeToExpiry converts the span from now to the resolution date into years of
// trading time. Calendar days are scaled by 5/7 to approximate the weekday
// trading calendar, then floored at a small positive epsilon.
func TimeToExpiry(resolution, now time.Time, tradingDaysPerYear float64) float64 {
	if tradingDaysPerYear <= 0 {
		tradingDaysPerYear = 252
	}
	calendarDays := resolution.Sub(now).Hours() / 24
	tradingDays := calendarDays * (5.0 / 7.0)
	return math.Max(tradingDays/tradingDaysPerYear, minTimeToExpiry)
}
