// Package rank turns fair values and order-book summaries into ROI/Kelly
// metrics, selects the better contract side, and ranks opportunities across
// instruments.
package rank

import (
	"sort"

	"polyedge/internal/orderbook"
	"polyedge/internal/pricing"
)

// Side of a binary contract.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// ROIUnavailable is the sentinel for metrics that cannot be computed
// (missing book, zero denominators). Surfaced to callers as N/A.
const ROIUnavailable = -999

// probFloor guards the fair-value/probability division when backing the
// discount factor out of the YES price.
const probFloor = 0.001

// Metrics holds both sides' figures for one contract plus the selected
// headline side. Kelly values are raw (unclamped); DisplayKelly applies the
// [0, 1] presentation clamp.
type Metrics struct {
	BSNoPrice  float64
	BuyNoPrice float64

	ROIYes   float64
	KellyYes float64
	ROINo    float64
	KellyNo  float64

	EdgeVsAsk float64
	EdgeVsBid float64

	Side  Side
	ROI   float64
	Kelly float64
}

// Available reports whether the headline ROI could be computed at all.
func (m Metrics) Available() bool {
	return m.ROI > ROIUnavailable
}

// DisplayKelly clamps the headline Kelly fraction to [0, 1] for presentation.
func (m Metrics) DisplayKelly() float64 {
	if m.Kelly <= 0 {
		return 0
	}
	if m.Kelly > 1 {
		return 1
	}
	return m.Kelly
}

// ComputeMetrics derives per-side ROI and Kelly from a fair-value result and a
// book summary, then picks the side with the higher ROI (ties favor YES).
//
// The NO price reuses the YES discount factor: discount = fairValue/probability
// when probability is meaningful, so both sides are discounted consistently.
func ComputeMetrics(fv pricing.Result, book orderbook.Summary) Metrics {
	m := Metrics{
		ROIYes: ROIUnavailable,
		ROINo:  ROIUnavailable,
	}

	discount := 1.0
	if fv.Probability > probFloor {
		discount = fv.FairValue / fv.Probability
	}
	m.BSNoPrice = discount * (1 - fv.Probability)
	m.BuyNoPrice = 1 - book.BestBid

	m.EdgeVsAsk = fv.FairValue - book.BestAsk
	m.EdgeVsBid = m.BSNoPrice - m.BuyNoPrice

	if book.BestAsk > 0 {
		m.ROIYes = (fv.FairValue - book.BestAsk) / book.BestAsk
		if m.ROIYes > 0 && book.BestAsk < 1 {
			m.KellyYes = (fv.Probability - book.BestAsk) / (1 - book.BestAsk)
		}
	}

	if m.BuyNoPrice > 0 {
		m.ROINo = (m.BSNoPrice - m.BuyNoPrice) / m.BuyNoPrice
		if m.ROINo > 0 && m.BuyNoPrice < 1 {
			m.KellyNo = ((1 - fv.Probability) - m.BuyNoPrice) / (1 - m.BuyNoPrice)
		}
	}

	if m.ROIYes >= m.ROINo {
		m.Side, m.ROI, m.Kelly = SideYes, m.ROIYes, m.KellyYes
	} else {
		m.Side, m.ROI, m.Kelly = SideNo, m.ROINo, m.KellyNo
	}
	return m
}

// Opportunity is one ranked row of the cross-instrument table. Rebuilt in full
// every refresh cycle; never mutated after ranking.
type Opportunity struct {
	Ticker      string
	StrikePrice float64

	Probability float64
	BestAsk     float64
	BestBid     float64
	BuyNoPrice  float64

	ROI   float64
	Side  Side
	Kelly float64

	EdgeVsAsk float64
	EdgeVsBid float64

	YesProbability *float64
}

// Key identifies an opportunity across refresh cycles for change detection.
func (o Opportunity) Key() string {
	return opportunityKey(o.Ticker, o.StrikePrice)
}

// Rank sorts opportunities by headline ROI descending and truncates to topN.
// topN <= 0 means no truncation. The input slice is not modified.
func Rank(opps []Opportunity, topN int) []Opportunity {
	out := make([]Opportunity, len(opps))
	copy(out, opps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ROI > out[j].ROI })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
