package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"polyedge/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertInstrument(ctx context.Context, item *models.Instrument) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Ticker) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"event_slug",
			"event_title",
			"spot_price",
			"volatility",
			"volatility_source",
			"dividend_yield",
			"risk_free_rate",
			"time_to_expiry",
			"last_refresh_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) UpsertContracts(ctx context.Context, items []models.Contract) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument_ticker"}, {Name: "question"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"strike_price",
			"yes_token_id",
			"yes_probability",
			"no_probability",
			"fair_value",
			"probability",
			"raw_json",
			"last_seen_at",
			"updated_at",
		}),
	}).Create(&items).Error
}

func (s *Store) UpsertOrderbookLatest(ctx context.Context, item *models.OrderbookLatest) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.TokenID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"snapshot_ts",
			"bids_json",
			"asks_json",
			"best_bid",
			"best_ask",
			"spread",
			"bid_liquidity",
			"ask_liquidity",
			"source",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) InsertRefreshRun(ctx context.Context, item *models.RefreshRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// ReplaceOpportunities swaps the stored ranked set: the new run's rows go in
// and every older run's rows go out, in one transaction.
func (s *Store) ReplaceOpportunities(ctx context.Context, runID uint64, items []models.Opportunity) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id <> ?", runID).Delete(&models.Opportunity{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].RunID = runID
		}
		return tx.Create(&items).Error
	})
}

func (s *Store) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Instrument
	if err := s.db.WithContext(ctx).Order("ticker asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListContractsByTicker(ctx context.Context, ticker string) ([]models.Contract, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Contract
	err := s.db.WithContext(ctx).
		Where("instrument_ticker = ?", strings.ToUpper(strings.TrimSpace(ticker))).
		Order("strike_price asc nulls last").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListYesTokenIDs(ctx context.Context, limit int) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("yes_token_id IS NOT NULL AND yes_token_id <> ''").
		Order("last_seen_at desc").
		Limit(limit).
		Pluck("yes_token_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListOpportunitiesByRun(ctx context.Context, runID uint64) ([]models.Opportunity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Opportunity
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("rank asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListRefreshRuns(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var items []models.RefreshRun
	if err := s.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteRefreshRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("started_at < ?", before).Delete(&models.RefreshRun{})
	return res.RowsAffected, res.Error
}
