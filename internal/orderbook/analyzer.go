// Package orderbook reduces raw CLOB levels to the summary figures the
// pricing pipeline consumes. All functions are pure.
package orderbook

import "sort"

// Level is one price level of a book side. Input order is not assumed.
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Summary is the reduced view of one token's book.
//
// An empty ask side prices as certain-to-resolve-at-1 and an empty bid side as
// worthless; a crossed book (BestBid > BestAsk) is passed through uncorrected.
type Summary struct {
	BestBid           float64 `json:"best_bid"`
	BestAsk           float64 `json:"best_ask"`
	Spread            float64 `json:"spread"`
	TotalBidLiquidity float64 `json:"total_bid_liquidity"`
	TotalAskLiquidity float64 `json:"total_ask_liquidity"`
}

// Analyze sorts bids descending and asks ascending, then extracts best prices
// and unweighted liquidity totals.
func Analyze(bids, asks []Level) Summary {
	bidsSorted := make([]Level, len(bids))
	copy(bidsSorted, bids)
	sort.Slice(bidsSorted, func(i, j int) bool { return bidsSorted[i].Price > bidsSorted[j].Price })

	asksSorted := make([]Level, len(asks))
	copy(asksSorted, asks)
	sort.Slice(asksSorted, func(i, j int) bool { return asksSorted[i].Price < asksSorted[j].Price })

	bestBid := 0.0
	if len(bidsSorted) > 0 {
		bestBid = bidsSorted[0].Price
	}
	bestAsk := 1.0
	if len(asksSorted) > 0 {
		bestAsk = asksSorted[0].Price
	}

	totalBid := 0.0
	for _, b := range bids {
		totalBid += b.Size
	}
	totalAsk := 0.0
	for _, a := range asks {
		totalAsk += a.Size
	}

	return Summary{
		BestBid:           bestBid,
		BestAsk:           bestAsk,
		Spread:            bestAsk - bestBid,
		TotalBidLiquidity: totalBid,
		TotalAskLiquidity: totalAsk,
	}
}
