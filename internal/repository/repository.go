package repository

import (
	"context"
	"time"

	"polyedge/internal/models"
)

// Repository persists refresh-cycle output and serves the read paths that are
// not covered by the in-memory snapshot (history, retained orderbooks).
type Repository interface {
	UpsertInstrument(ctx context.Context, item *models.Instrument) error
	UpsertContracts(ctx context.Context, items []models.Contract) error
	UpsertOrderbookLatest(ctx context.Context, item *models.OrderbookLatest) error

	InsertRefreshRun(ctx context.Context, item *models.RefreshRun) error
	ReplaceOpportunities(ctx context.Context, runID uint64, items []models.Opportunity) error

	ListInstruments(ctx context.Context) ([]models.Instrument, error)
	ListContractsByTicker(ctx context.Context, ticker string) ([]models.Contract, error)
	ListYesTokenIDs(ctx context.Context, limit int) ([]string, error)
	ListOpportunitiesByRun(ctx context.Context, runID uint64) ([]models.Opportunity, error)
	ListRefreshRuns(ctx context.Context, limit int) ([]models.RefreshRun, error)
	DeleteRefreshRunsBefore(ctx context.Context, before time.Time) (int64, error)
}
