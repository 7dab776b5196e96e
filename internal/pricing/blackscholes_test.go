package pricing

import (
	"math"
	"testing"
	"time"
)

func TestNormCDF_Zero(t *testing.T) {
	if got := NormCDF(0); got != 0.5 {
		t.Fatalf("NormCDF(0)=%v want=0.5", got)
	}
}

func TestNormCDF_Symmetry(t *testing.T) {
	for _, x := range []float64{0.5, 1, 2, 3} {
		sum := NormCDF(x) + NormCDF(-x)
		if math.Abs(sum-1.0) > 1e-6 {
			t.Fatalf("NormCDF(%v)+NormCDF(-%v)=%v want=1", x, x, sum)
		}
	}
}

func TestNormCDF_KnownValues(t *testing.T) {
	cases := []struct {
		x    float64
		want float64
	}{
		{1.0, 0.8413447},
		{-1.0, 0.1586553},
		{1.96, 0.9750021},
		{2.575, 0.9949976},
	}
	for _, tc := range cases {
		if got := NormCDF(tc.x); math.Abs(got-tc.want) > 1e-5 {
			t.Fatalf("NormCDF(%v)=%v want~%v", tc.x, got, tc.want)
		}
	}
}

func TestBinaryCall_AtTheMoneyZeroDrift(t *testing.T) {
	// sigma=0 is floored to 0.001; with S=K and r=q=0 the drift term is
	// -sigma^2/2*T, which is negligible, so probability sits at ~0.5.
	res := BinaryCall(100, 100, 1, 0, 0, 0)
	if math.Abs(res.Probability-0.5) > 1e-3 {
		t.Fatalf("probability=%v want~0.5", res.Probability)
	}
	if math.Abs(res.FairValue-res.Probability) > 1e-12 {
		t.Fatalf("fairValue=%v want=%v (r=0 means no discounting)", res.FairValue, res.Probability)
	}
}

func TestBinaryCall_ExpiredIndicator(t *testing.T) {
	if res := BinaryCall(150, 100, 0, 0.045, 0.3, 0); res.Probability != 1.0 || res.FairValue != 1.0 {
		t.Fatalf("S>K at T=0: got %+v want prob=fv=1", res)
	}
	if res := BinaryCall(90, 100, 0, 0.045, 0.3, 0); res.Probability != 0.0 || res.FairValue != 0.0 {
		t.Fatalf("S<K at T=0: got %+v want prob=fv=0", res)
	}
	if res := BinaryCall(90, 100, -0.5, 0.045, 0.3, 0); res.Probability != 0.0 {
		t.Fatalf("negative T: got %+v want prob=0", res)
	}
}

func TestBinaryCall_MatchesClosedForm(t *testing.T) {
	s, k, tt, r, sigma, q := 200.0, 210.0, 0.25, 0.045, 0.3, 0.0
	d2 := (math.Log(s/k) + (r-q-0.5*sigma*sigma)*tt) / (sigma * math.Sqrt(tt))
	wantProb := NormCDF(d2)
	wantFV := math.Exp(-r*tt) * wantProb

	res := BinaryCall(s, k, tt, r, sigma, q)
	if math.Abs(res.Probability-wantProb) > 1e-12 {
		t.Fatalf("probability=%v want=%v", res.Probability, wantProb)
	}
	if math.Abs(res.FairValue-wantFV) > 1e-12 {
		t.Fatalf("fairValue=%v want=%v", res.FairValue, wantFV)
	}
}

func TestBinaryCall_Discounting(t *testing.T) {
	res := BinaryCall(200, 150, 1, 0.05, 0.3, 0)
	if res.FairValue >= res.Probability {
		t.Fatalf("fairValue=%v should be discounted below probability=%v", res.FairValue, res.Probability)
	}
	ratio := res.FairValue / res.Probability
	if math.Abs(ratio-math.Exp(-0.05)) > 1e-12 {
		t.Fatalf("discount factor=%v want=%v", ratio, math.Exp(-0.05))
	}
}

func TestTimeToExpiry_TradingDayScaling(t *testing.T) {
	now := time.Date(2026, 1, 2, 21, 0, 0, 0, time.UTC)
	resolution := now.AddDate(0, 0, 14) // 14 calendar days -> 10 trading days

	got := TimeToExpiry(resolution, now, 252)
	want := 14.0 * (5.0 / 7.0) / 252.0
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("T=%v want=%v", got, want)
	}
}

func TestTimeToExpiry_FloorsAtEpsilon(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if got := TimeToExpiry(now.Add(-time.Hour), now, 252); got != minTimeToExpiry {
		t.Fatalf("past resolution: T=%v want=%v", got, minTimeToExpiry)
	}
	if got := TimeToExpiry(now, now, 252); got != minTimeToExpiry {
		t.Fatalf("zero span: T=%v want=%v", got, minTimeToExpiry)
	}
}
