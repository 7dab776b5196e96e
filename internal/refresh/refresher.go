package refresh

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"polyedge/internal/client/clob"
	"polyedge/internal/client/gamma"
	"polyedge/internal/client/yahoo"
	"polyedge/internal/config"
	"polyedge/internal/models"
	"polyedge/internal/orderbook"
	"polyedge/internal/pricing"
	"polyedge/internal/rank"
)

// ErrBusy is returned when a refresh is requested while one is running.
var ErrBusy = errors.New("refresh already in progress")

type EventFetcher interface {
	GetEventBySlug(ctx context.Context, slug string) (*gamma.Event, error)
}

type BookFetcher interface {
	GetBook(ctx context.Context, tokenID string) ([]byte, *clob.OrderBook, error)
}

type ChartFetcher interface {
	GetDailyChart(ctx context.Context, ticker string) (*yahoo.Chart, error)
}

// Store is the persistence surface the refresher writes through. Persistence
// is best effort; a nil Store disables it entirely.
type Store interface {
	UpsertInstrument(ctx context.Context, item *models.Instrument) error
	UpsertContracts(ctx context.Context, items []models.Contract) error
	UpsertOrderbookLatest(ctx context.Context, item *models.OrderbookLatest) error
	InsertRefreshRun(ctx context.Context, item *models.RefreshRun) error
	ReplaceOpportunities(ctx context.Context, runID uint64, items []models.Opportunity) error
	DeleteRefreshRunsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Refresher runs the full pipeline: stock data, event markets, order books,
// fair values, ranking and change detection. At most one cycle runs at a
// time; overlapping requests are rejected with ErrBusy.
type Refresher struct {
	Gamma  EventFetcher
	Clob   BookFetcher
	Yahoo  ChartFetcher
	Store  Store
	Logger *zap.Logger

	Instruments []config.InstrumentConfig
	Volatility  config.VolatilityConfig

	RiskFreeRate       float64
	TradingDaysPerYear float64
	Resolution         time.Time
	TopN               int
	Thresholds         rank.Thresholds
	StockCacheTTL      time.Duration
	RunRetention       time.Duration

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time

	busy atomic.Bool

	mu       sync.RWMutex
	snapshot *Snapshot
	previous []rank.SnapshotEntry

	cacheMu    sync.Mutex
	stockCache map[string]cachedStock
	runSeq     atomic.Uint64
}

type cachedStock struct {
	data    StockSnapshot
	fetched time.Time
}

type instrumentResult struct {
	view       InstrumentView
	candidates []candidate
	contracts  []models.Contract
	books      []*models.OrderbookLatest
	err        error
}

type candidate struct {
	opp      rank.Opportunity
	question string
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Current returns the last published snapshot, or nil before the first cycle.
func (r *Refresher) Current() *Snapshot {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Busy reports whether a cycle is in flight.
func (r *Refresher) Busy() bool {
	return r != nil && r.busy.Load()
}

// Refresh runs one full cycle and publishes its snapshot. All instruments are
// fetched concurrently; a failed instrument is skipped and reported, never
// fatal. The published snapshot is swapped in atomically once the whole cycle
// has finished.
func (r *Refresher) Refresh(ctx context.Context, triggeredBy string) (*Snapshot, error) {
	if r == nil {
		return nil, errors.New("refresher is nil")
	}
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.busy.Store(false)

	startedAt := r.now()
	timeToExpiry := pricing.TimeToExpiry(r.Resolution, startedAt, r.TradingDaysPerYear)

	results := make([]instrumentResult, len(r.Instruments))
	var wg sync.WaitGroup
	for i, ic := range r.Instruments {
		wg.Add(1)
		go func(i int, ic config.InstrumentConfig) {
			defer wg.Done()
			results[i] = r.refreshInstrument(ctx, ic, timeToExpiry, startedAt)
		}(i, ic)
	}
	wg.Wait()

	snap := &Snapshot{
		RunID:       r.runSeq.Add(1),
		GeneratedAt: startedAt,
		TriggeredBy: triggeredBy,
	}
	var candidates []candidate
	var contracts []models.Contract
	var books []*models.OrderbookLatest
	for i, res := range results {
		if res.err != nil {
			snap.Failed = append(snap.Failed, r.Instruments[i].Ticker)
			if r.Logger != nil {
				r.Logger.Warn("instrument refresh failed",
					zap.String("ticker", r.Instruments[i].Ticker),
					zap.Error(res.err))
			}
			continue
		}
		snap.Instruments = append(snap.Instruments, res.view)
		candidates = append(candidates, res.candidates...)
		contracts = append(contracts, res.contracts...)
		books = append(books, res.books...)
	}

	opps := make([]rank.Opportunity, len(candidates))
	questionByKey := make(map[string]string, len(candidates))
	for i, c := range candidates {
		opps[i] = c.opp
		questionByKey[c.opp.Key()] = c.question
	}
	ranked := rank.Rank(opps, r.TopN)

	r.mu.Lock()
	changes := rank.DetectChanges(r.previous, ranked, r.Thresholds)
	r.previous = rank.Snapshot(ranked)
	r.mu.Unlock()

	for i, o := range ranked {
		key := o.Key()
		m := rank.Metrics{ROI: o.ROI, Kelly: o.Kelly}
		snap.Opportunities = append(snap.Opportunities, OpportunityView{
			Rank:          i + 1,
			Ticker:        o.Ticker,
			Question:      questionByKey[key],
			StrikePrice:   o.StrikePrice,
			Side:          string(o.Side),
			Probability:   o.Probability,
			BestAsk:       o.BestAsk,
			BestBid:       o.BestBid,
			BuyNoPrice:    o.BuyNoPrice,
			ROI:           roiJSON(m),
			Kelly:         m.DisplayKelly(),
			EdgeVsAsk:     o.EdgeVsAsk,
			EdgeVsBid:     o.EdgeVsBid,
			IsNew:         changes.New[key],
			ChangedFields: changes.Changed[key],
		})
	}

	finishedAt := r.now()
	snap.DurationMS = finishedAt.Sub(startedAt).Milliseconds()

	r.persist(ctx, snap, contracts, books, startedAt, finishedAt)

	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()

	if r.Logger != nil {
		r.Logger.Info("refresh cycle finished",
			zap.Uint64("run_id", snap.RunID),
			zap.String("triggered_by", triggeredBy),
			zap.Int("instruments", len(snap.Instruments)),
			zap.Int("failed", len(snap.Failed)),
			zap.Int("opportunities", len(snap.Opportunities)),
			zap.Int64("duration_ms", snap.DurationMS))
	}
	return snap, nil
}

func (r *Refresher) refreshInstrument(ctx context.Context, ic config.InstrumentConfig, timeToExpiry float64, now time.Time) instrumentResult {
	stock := r.stockSnapshot(ctx, ic, now)

	event, err := r.Gamma.GetEventBySlug(ctx, ic.Slug)
	if err != nil {
		return instrumentResult{err: err}
	}
	if event == nil {
		return instrumentResult{err: errors.New("event not found: " + ic.Slug)}
	}

	view := InstrumentView{
		Ticker:           ic.Ticker,
		Name:             ic.Name,
		EventSlug:        ic.Slug,
		EventTitle:       event.Title,
		SpotPrice:        stock.Price,
		Volatility:       stock.Volatility,
		VolatilitySource: string(stock.VolSource),
		DividendYield:    stock.DividendYield,
		TimeToExpiry:     timeToExpiry,
	}

	// All book fetches for the event go out in parallel; a failed book only
	// degrades that one contract.
	type bookResult struct {
		summary *orderbook.Summary
		model   *models.OrderbookLatest
	}
	bookResults := make([]bookResult, len(event.Markets))
	var wg sync.WaitGroup
	for i := range event.Markets {
		tokenID := event.Markets[i].YesTokenID()
		if tokenID == "" {
			continue
		}
		wg.Add(1)
		go func(i int, tokenID string) {
			defer wg.Done()
			_, book, err := r.Clob.GetBook(ctx, tokenID)
			if err != nil || book == nil {
				if r.Logger != nil {
					r.Logger.Debug("order book fetch failed",
						zap.String("ticker", ic.Ticker),
						zap.String("token_id", tokenID),
						zap.Error(err))
				}
				return
			}
			summary := orderbook.Analyze(clob.Levels(book.Bids), clob.Levels(book.Asks))
			bookResults[i] = bookResult{
				summary: &summary,
				model:   orderbookModel(tokenID, book, summary, now),
			}
		}(i, tokenID)
	}
	wg.Wait()

	res := instrumentResult{view: view}
	for i := range event.Markets {
		m := &event.Markets[i]
		cv := ContractView{
			Question:   m.Question,
			YesTokenID: m.YesTokenID(),
		}
		if yes, ok := m.YesProbability(); ok {
			cv.YesProbability = &yes
		}
		if no, ok := m.NoProbability(); ok {
			cv.NoProbability = &no
		}
		strike, hasStrike := rank.ExtractStrike(m.Question)
		if hasStrike {
			cv.StrikePrice = &strike
		}

		var fv pricing.Result
		if hasStrike {
			fv = pricing.BinaryCall(stock.Price, strike, timeToExpiry, r.RiskFreeRate, stock.Volatility, stock.DividendYield)
			cv.FairValue = &fv.FairValue
			cv.Probability = &fv.Probability
			if cv.YesProbability != nil {
				edge := fv.FairValue - *cv.YesProbability
				cv.EdgeVsMarket = &edge
			}
		}

		book := bookResults[i]
		if book.summary != nil {
			cv.Orderbook = book.summary
			if hasStrike {
				metrics := rank.ComputeMetrics(fv, *book.summary)
				cv.EdgeVsAsk = &metrics.EdgeVsAsk
				cv.EdgeVsBid = &metrics.EdgeVsBid
				res.candidates = append(res.candidates, candidate{
					question: m.Question,
					opp: rank.Opportunity{
						Ticker:         ic.Ticker,
						StrikePrice:    strike,
						Probability:    fv.Probability,
						BestAsk:        book.summary.BestAsk,
						BestBid:        book.summary.BestBid,
						BuyNoPrice:     metrics.BuyNoPrice,
						ROI:            metrics.ROI,
						Side:           metrics.Side,
						Kelly:          metrics.Kelly,
						EdgeVsAsk:      metrics.EdgeVsAsk,
						EdgeVsBid:      metrics.EdgeVsBid,
						YesProbability: cv.YesProbability,
					},
				})
			}
		}
		if book.model != nil {
			res.books = append(res.books, book.model)
		}

		view.Contracts = append(view.Contracts, cv)
		res.contracts = append(res.contracts, contractModel(ic.Ticker, m, cv, now))
	}

	// Serve contracts in strike order regardless of upstream market order;
	// unparseable strikes sort as zero.
	sort.SliceStable(view.Contracts, func(i, j int) bool {
		return strikeOrZero(view.Contracts[i].StrikePrice) < strikeOrZero(view.Contracts[j].StrikePrice)
	})

	res.view = view
	return res
}

func strikeOrZero(strike *float64) float64 {
	if strike == nil {
		return 0
	}
	return *strike
}

// stockSnapshot serves from the short-lived cache when fresh, otherwise
// fetches the daily chart and estimates volatility. A failed fetch degrades
// to the configured defaults rather than failing the instrument.
func (r *Refresher) stockSnapshot(ctx context.Context, ic config.InstrumentConfig, now time.Time) StockSnapshot {
	r.cacheMu.Lock()
	if cached, ok := r.stockCache[ic.Ticker]; ok && now.Sub(cached.fetched) < r.StockCacheTTL {
		r.cacheMu.Unlock()
		return cached.data
	}
	r.cacheMu.Unlock()

	estimator := pricing.VolatilityEstimator{
		Default:            ic.DefaultVolatility,
		TradingDaysPerYear: r.TradingDaysPerYear,
		MinClosePoints:     r.Volatility.MinClosePoints,
		MinReturns:         r.Volatility.MinReturns,
		MinAnnualized:      r.Volatility.MinAnnualized,
		MaxAnnualized:      r.Volatility.MaxAnnualized,
	}

	snap := StockSnapshot{
		Price:         ic.DefaultPrice,
		Volatility:    ic.DefaultVolatility,
		VolSource:     pricing.VolDefaultInsufficient,
		DividendYield: ic.DividendYield,
	}
	chart, err := r.Yahoo.GetDailyChart(ctx, ic.Ticker)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("stock data fetch failed, using defaults",
				zap.String("ticker", ic.Ticker), zap.Error(err))
		}
		return snap
	}
	if chart.RegularMarketPrice > 0 {
		snap.Price = chart.RegularMarketPrice
	}
	snap.Volatility, snap.VolSource = estimator.Estimate(chart.Closes)
	if snap.VolSource != pricing.VolEstimated && r.Logger != nil {
		r.Logger.Warn("volatility fallback",
			zap.String("ticker", ic.Ticker),
			zap.String("source", string(snap.VolSource)),
			zap.Float64("default", ic.DefaultVolatility))
	}

	r.cacheMu.Lock()
	if r.stockCache == nil {
		r.stockCache = make(map[string]cachedStock)
	}
	r.stockCache[ic.Ticker] = cachedStock{data: snap, fetched: now}
	r.cacheMu.Unlock()
	return snap
}

// PruneRuns deletes refresh run rows older than the retention window.
func (r *Refresher) PruneRuns(ctx context.Context) (int64, error) {
	if r == nil || r.Store == nil || r.RunRetention <= 0 {
		return 0, nil
	}
	return r.Store.DeleteRefreshRunsBefore(ctx, r.now().Add(-r.RunRetention))
}
