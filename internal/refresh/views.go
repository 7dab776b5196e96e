package refresh

import (
	"time"

	"polyedge/internal/orderbook"
	"polyedge/internal/pricing"
	"polyedge/internal/rank"
)

// StockSnapshot is the per-ticker market data one refresh cycle prices with.
// Cached briefly so manual refreshes do not hammer the chart API.
type StockSnapshot struct {
	Price         float64                  `json:"price"`
	Volatility    float64                  `json:"volatility"`
	VolSource     pricing.VolatilitySource `json:"volatilitySource"`
	DividendYield float64                  `json:"dividendYield"`
}

// ContractView is one market of an instrument as served by the API. Pointer
// fields are null when the upstream data was missing or unparseable.
type ContractView struct {
	Question       string   `json:"question"`
	StrikePrice    *float64 `json:"strikePrice"`
	YesTokenID     string   `json:"yesTokenId,omitempty"`
	YesProbability *float64 `json:"yesProbability"`
	NoProbability  *float64 `json:"noProbability"`

	FairValue    *float64 `json:"bsFairValue,omitempty"`
	Probability  *float64 `json:"bsProbability,omitempty"`
	EdgeVsMarket *float64 `json:"edgeVsMarket,omitempty"`
	EdgeVsBid    *float64 `json:"edgeVsBid,omitempty"`
	EdgeVsAsk    *float64 `json:"edgeVsAsk,omitempty"`

	Orderbook *orderbook.Summary `json:"yesOrderbook,omitempty"`
}

// InstrumentView is one instrument with its priced contracts.
type InstrumentView struct {
	Ticker           string         `json:"ticker"`
	Name             string         `json:"name"`
	EventSlug        string         `json:"eventSlug"`
	EventTitle       string         `json:"eventTitle"`
	SpotPrice        float64        `json:"spotPrice"`
	Volatility       float64        `json:"volatility"`
	VolatilitySource string         `json:"volatilitySource"`
	DividendYield    float64        `json:"dividendYield"`
	TimeToExpiry     float64        `json:"timeToExpiry"`
	Contracts        []ContractView `json:"contracts"`
}

// OpportunityView is one ranked row plus its change markers.
type OpportunityView struct {
	Rank        int     `json:"rank"`
	Ticker      string  `json:"ticker"`
	Question    string  `json:"question"`
	StrikePrice float64 `json:"strikePrice"`
	Side        string  `json:"side"`

	Probability float64 `json:"probability"`
	BestAsk     float64 `json:"bestAsk"`
	BestBid     float64 `json:"bestBid"`
	BuyNoPrice  float64 `json:"buyNoPrice"`

	ROI       *float64 `json:"roi"`
	Kelly     float64  `json:"kelly"`
	EdgeVsAsk float64  `json:"edgeVsAsk"`
	EdgeVsBid float64  `json:"edgeVsBid"`

	IsNew         bool     `json:"isNew,omitempty"`
	ChangedFields []string `json:"changedFields,omitempty"`
}

// Snapshot is the full output of one refresh cycle. A snapshot is immutable
// once published; readers always see a complete, internally consistent cycle.
type Snapshot struct {
	RunID         uint64            `json:"runId"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	DurationMS    int64             `json:"durationMs"`
	TriggeredBy   string            `json:"triggeredBy"`
	Instruments   []InstrumentView  `json:"instruments"`
	Opportunities []OpportunityView `json:"opportunities"`
	Failed        []string          `json:"failedTickers,omitempty"`
}

// roiJSON maps the unavailable sentinel to null for presentation.
func roiJSON(m rank.Metrics) *float64 {
	if !m.Available() {
		return nil
	}
	v := m.ROI
	return &v
}
