package rank

import (
	"math"
	"testing"

	"polyedge/internal/orderbook"
	"polyedge/internal/pricing"
)

func TestComputeMetrics_YesSide(t *testing.T) {
	fv := pricing.Result{FairValue: 0.40, Probability: 0.42}
	book := orderbook.Summary{BestBid: 0.25, BestAsk: 0.30}

	m := ComputeMetrics(fv, book)

	wantROIYes := (0.40 - 0.30) / 0.30
	if math.Abs(m.ROIYes-wantROIYes) > 1e-12 {
		t.Fatalf("roiYes=%v want=%v", m.ROIYes, wantROIYes)
	}
	wantKellyYes := (0.42 - 0.30) / (1 - 0.30)
	if math.Abs(m.KellyYes-wantKellyYes) > 1e-12 {
		t.Fatalf("kellyYes=%v want=%v", m.KellyYes, wantKellyYes)
	}
	if m.Side != SideYes {
		t.Fatalf("side=%s want=YES", m.Side)
	}
	if m.ROI != m.ROIYes || m.Kelly != m.KellyYes {
		t.Fatalf("headline metrics not taken from YES side: %+v", m)
	}
}

func TestComputeMetrics_NoSideUsesDiscountFactor(t *testing.T) {
	// Fair value discounted below probability: the NO price must reuse the
	// same discount factor rather than 1-probability.
	fv := pricing.Result{FairValue: 0.18, Probability: 0.20}
	book := orderbook.Summary{BestBid: 0.90, BestAsk: 0.95}

	m := ComputeMetrics(fv, book)

	discount := 0.18 / 0.20
	wantNoPrice := discount * (1 - 0.20)
	if math.Abs(m.BSNoPrice-wantNoPrice) > 1e-12 {
		t.Fatalf("bsNoPrice=%v want=%v", m.BSNoPrice, wantNoPrice)
	}
	wantBuyNo := 1 - 0.90
	if math.Abs(m.BuyNoPrice-wantBuyNo) > 1e-12 {
		t.Fatalf("buyNoPrice=%v want=%v", m.BuyNoPrice, wantBuyNo)
	}
	wantROINo := (wantNoPrice - wantBuyNo) / wantBuyNo
	if math.Abs(m.ROINo-wantROINo) > 1e-12 {
		t.Fatalf("roiNo=%v want=%v", m.ROINo, wantROINo)
	}
	if m.Side != SideNo {
		t.Fatalf("side=%s want=NO", m.Side)
	}
	wantKellyNo := ((1 - 0.20) - wantBuyNo) / (1 - wantBuyNo)
	if math.Abs(m.KellyNo-wantKellyNo) > 1e-12 {
		t.Fatalf("kellyNo=%v want=%v", m.KellyNo, wantKellyNo)
	}
}

func TestComputeMetrics_TinyProbabilitySkipsDiscountDivision(t *testing.T) {
	fv := pricing.Result{FairValue: 0.0005, Probability: 0.0005}
	book := orderbook.Summary{BestBid: 0.01, BestAsk: 0.02}

	m := ComputeMetrics(fv, book)
	// probability <= 0.001: discount factor pinned to 1.0.
	want := 1.0 * (1 - 0.0005)
	if math.Abs(m.BSNoPrice-want) > 1e-12 {
		t.Fatalf("bsNoPrice=%v want=%v", m.BSNoPrice, want)
	}
}

func TestComputeMetrics_TieBreakFavorsYes(t *testing.T) {
	// Symmetric setup: fv=0.5, prob=0.5, ask=0.4, bid=0.6 gives
	// roiYes = roiNo = 0.25 exactly.
	fv := pricing.Result{FairValue: 0.5, Probability: 0.5}
	book := orderbook.Summary{BestBid: 0.6, BestAsk: 0.4}

	m := ComputeMetrics(fv, book)
	if math.Abs(m.ROIYes-m.ROINo) > 1e-12 {
		t.Fatalf("setup not a tie: roiYes=%v roiNo=%v", m.ROIYes, m.ROINo)
	}
	if m.Side != SideYes {
		t.Fatalf("tie side=%s want=YES", m.Side)
	}
}

func TestComputeMetrics_KellyGatedOnPositiveROI(t *testing.T) {
	fv := pricing.Result{FairValue: 0.30, Probability: 0.31}
	book := orderbook.Summary{BestBid: 0.60, BestAsk: 0.65}

	m := ComputeMetrics(fv, book)
	if m.ROIYes > 0 {
		t.Fatalf("roiYes=%v expected negative", m.ROIYes)
	}
	if m.KellyYes != 0 {
		t.Fatalf("kellyYes=%v want=0 when roiYes <= 0", m.KellyYes)
	}
	if m.ROINo > 0 {
		t.Fatalf("roiNo=%v expected negative", m.ROINo)
	}
	if m.KellyNo != 0 {
		t.Fatalf("kellyNo=%v want=0 when roiNo <= 0", m.KellyNo)
	}
}

func TestComputeMetrics_UnavailableDenominators(t *testing.T) {
	fv := pricing.Result{FairValue: 0.5, Probability: 0.5}

	// bestAsk 0 (no book data at all would not reach here, but a zero ask
	// must not divide).
	m := ComputeMetrics(fv, orderbook.Summary{BestBid: 1.0, BestAsk: 0})
	if m.ROIYes != ROIUnavailable {
		t.Fatalf("roiYes=%v want sentinel", m.ROIYes)
	}
	// bestBid 1 -> buyNoPrice 0.
	if m.ROINo != ROIUnavailable {
		t.Fatalf("roiNo=%v want sentinel", m.ROINo)
	}
	if m.Available() {
		t.Fatalf("metrics should be unavailable: %+v", m)
	}
}

func TestDisplayKelly_Clamped(t *testing.T) {
	if got := (Metrics{Kelly: 1.7}).DisplayKelly(); got != 1 {
		t.Fatalf("clamp high: got %v want 1", got)
	}
	if got := (Metrics{Kelly: -0.3}).DisplayKelly(); got != 0 {
		t.Fatalf("clamp low: got %v want 0", got)
	}
	if got := (Metrics{Kelly: 0.25}).DisplayKelly(); got != 0.25 {
		t.Fatalf("passthrough: got %v want 0.25", got)
	}
}

func TestRank_SortsAndTruncates(t *testing.T) {
	opps := []Opportunity{
		{Ticker: "AAPL", StrikePrice: 240, ROI: 0.05},
		{Ticker: "NVDA", StrikePrice: 150, ROI: 0.30},
		{Ticker: "TSLA", StrikePrice: 400, ROI: -0.10},
		{Ticker: "MSFT", StrikePrice: 430, ROI: 0.12},
	}

	ranked := Rank(opps, 3)
	if len(ranked) != 3 {
		t.Fatalf("len=%d want=3", len(ranked))
	}
	if ranked[0].Ticker != "NVDA" || ranked[1].Ticker != "MSFT" || ranked[2].Ticker != "AAPL" {
		t.Fatalf("order=%v %v %v", ranked[0].Ticker, ranked[1].Ticker, ranked[2].Ticker)
	}
	// Input untouched.
	if opps[0].Ticker != "AAPL" {
		t.Fatalf("input mutated: %v", opps[0].Ticker)
	}
}

func TestRank_NoTruncationWhenTopNZero(t *testing.T) {
	opps := []Opportunity{{ROI: 1}, {ROI: 2}, {ROI: 3}}
	if got := Rank(opps, 0); len(got) != 3 {
		t.Fatalf("len=%d want=3", len(got))
	}
}
