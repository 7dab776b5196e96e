package refresh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"polyedge/internal/client/clob"
	"polyedge/internal/client/gamma"
	"polyedge/internal/models"
	"polyedge/internal/orderbook"
	"polyedge/internal/rank"
)

// persist writes the cycle's output through the Store. Failures are logged
// and swallowed: the in-memory snapshot is the source of truth for the API,
// the database is history.
func (r *Refresher) persist(ctx context.Context, snap *Snapshot, contracts []models.Contract, books []*models.OrderbookLatest, startedAt, finishedAt time.Time) {
	if r.Store == nil {
		return
	}

	run := &models.RefreshRun{
		StartedAt:         startedAt,
		FinishedAt:        finishedAt,
		TriggeredBy:       snap.TriggeredBy,
		InstrumentsOK:     len(snap.Instruments),
		InstrumentsFailed: len(snap.Failed),
		Contracts:         len(contracts),
		Opportunities:     len(snap.Opportunities),
	}
	if err := r.Store.InsertRefreshRun(ctx, run); err != nil {
		r.logPersistErr("refresh run", err)
	} else if run.ID != 0 {
		snap.RunID = run.ID
	}

	for i := range snap.Instruments {
		iv := &snap.Instruments[i]
		item := &models.Instrument{
			Ticker:           iv.Ticker,
			Name:             iv.Name,
			EventSlug:        iv.EventSlug,
			EventTitle:       iv.EventTitle,
			SpotPrice:        decimal.NewFromFloat(iv.SpotPrice),
			Volatility:       decimal.NewFromFloat(iv.Volatility),
			VolatilitySource: iv.VolatilitySource,
			DividendYield:    decimal.NewFromFloat(iv.DividendYield),
			RiskFreeRate:     decimal.NewFromFloat(r.RiskFreeRate),
			TimeToExpiry:     decimal.NewFromFloat(iv.TimeToExpiry),
			LastRefreshAt:    finishedAt,
		}
		if err := r.Store.UpsertInstrument(ctx, item); err != nil {
			r.logPersistErr("instrument", err)
		}
	}

	if err := r.Store.UpsertContracts(ctx, contracts); err != nil {
		r.logPersistErr("contracts", err)
	}
	for _, book := range books {
		if err := r.Store.UpsertOrderbookLatest(ctx, book); err != nil {
			r.logPersistErr("order book", err)
		}
	}

	rows := make([]models.Opportunity, 0, len(snap.Opportunities))
	for _, o := range snap.Opportunities {
		roi := decimal.NewFromInt(rank.ROIUnavailable)
		if o.ROI != nil {
			roi = decimal.NewFromFloat(*o.ROI)
		}
		row := models.Opportunity{
			Ticker:      o.Ticker,
			StrikePrice: decimal.NewFromFloat(o.StrikePrice),
			Side:        o.Side,
			Rank:        o.Rank,
			ROI:         roi,
			Kelly:       decimal.NewFromFloat(o.Kelly),
			Probability: decimal.NewFromFloat(o.Probability),
			BestAsk:     decimal.NewFromFloat(o.BestAsk),
			BestBid:     decimal.NewFromFloat(o.BestBid),
			BuyNoPrice:  decimal.NewFromFloat(o.BuyNoPrice),
			EdgeVsAsk:   decimal.NewFromFloat(o.EdgeVsAsk),
			EdgeVsBid:   decimal.NewFromFloat(o.EdgeVsBid),
		}
		if o.IsNew {
			kind := "new"
			row.ChangeKind = &kind
		} else if len(o.ChangedFields) > 0 {
			kind := "changed"
			row.ChangeKind = &kind
			if fields, err := json.Marshal(o.ChangedFields); err == nil {
				row.ChangedFields = datatypes.JSON(fields)
			}
		}
		rows = append(rows, row)
	}
	if err := r.Store.ReplaceOpportunities(ctx, snap.RunID, rows); err != nil {
		r.logPersistErr("opportunities", err)
	}
}

func (r *Refresher) logPersistErr(what string, err error) {
	if r.Logger != nil {
		r.Logger.Warn("persist failed", zap.String("what", what), zap.Error(err))
	}
}

func contractModel(ticker string, m *gamma.Market, cv ContractView, now time.Time) models.Contract {
	item := models.Contract{
		InstrumentTicker: ticker,
		Question:         m.Question,
		LastSeenAt:       now,
	}
	if cv.YesTokenID != "" {
		tokenID := cv.YesTokenID
		item.YesTokenID = &tokenID
	}
	item.StrikePrice = decimalPtr(cv.StrikePrice)
	item.YesProbability = decimalPtr(cv.YesProbability)
	item.NoProbability = decimalPtr(cv.NoProbability)
	item.FairValue = decimalPtr(cv.FairValue)
	item.Probability = decimalPtr(cv.Probability)
	if raw := m.Raw(); len(raw) > 0 {
		item.RawJSON = datatypes.JSON(raw)
	}
	return item
}

func orderbookModel(tokenID string, book *clob.OrderBook, summary orderbook.Summary, now time.Time) *models.OrderbookLatest {
	item := &models.OrderbookLatest{
		TokenID:      tokenID,
		SnapshotTS:   now,
		BestBid:      &summary.BestBid,
		BestAsk:      &summary.BestAsk,
		Spread:       &summary.Spread,
		BidLiquidity: summary.TotalBidLiquidity,
		AskLiquidity: summary.TotalAskLiquidity,
		UpdatedAt:    now,
	}
	source := "rest"
	item.Source = &source
	if bids, err := json.Marshal(clob.Levels(book.Bids)); err == nil {
		item.BidsJSON = datatypes.JSON(bids)
	}
	if asks, err := json.Marshal(clob.Levels(book.Asks)); err == nil {
		item.AsksJSON = datatypes.JSON(asks)
	}
	return item
}

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
