// Package stream keeps orderbook_latest warm between refresh cycles by
// consuming the CLOB market websocket. Ranking never reads from the stream
// directly; every published snapshot is still priced from one consistent
// refresh cycle.
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"polyedge/internal/client/clob"
	"polyedge/internal/models"
	"polyedge/internal/orderbook"
)

// BookStore is the persistence slice the stream writes through.
type BookStore interface {
	UpsertOrderbookLatest(ctx context.Context, item *models.OrderbookLatest) error
	ListYesTokenIDs(ctx context.Context, limit int) ([]string, error)
}

type Options struct {
	URL             string
	RefreshInterval time.Duration
	MaxAssets       int
}

type Service struct {
	Store  BookStore
	Logger *zap.Logger
}

// Run blocks until ctx is cancelled. The subscription set tracks the YES
// tokens most recently seen by the refresh pipeline.
func (s *Service) Run(ctx context.Context, opts Options) error {
	if s == nil || s.Store == nil {
		return nil
	}
	if opts.MaxAssets <= 0 {
		opts.MaxAssets = 200
	}
	if s.Logger != nil {
		s.Logger.Info("clob stream starting",
			zap.String("url", opts.URL),
			zap.Duration("refresh_interval", opts.RefreshInterval),
			zap.Int("max_assets", opts.MaxAssets))
	}
	stream := clob.NewMarketStream(clob.MarketStreamOptions{
		URL:             opts.URL,
		RefreshInterval: opts.RefreshInterval,
		Logger:          s.Logger,
		AssetIDProvider: func(ctx context.Context) ([]string, error) {
			ids, err := s.Store.ListYesTokenIDs(ctx, opts.MaxAssets)
			if err != nil && s.Logger != nil {
				s.Logger.Warn("list stream asset ids failed", zap.Error(err))
			}
			return ids, err
		},
	})
	return stream.Run(ctx, func(env clob.BookEnvelope, raw []byte) {
		s.handleMessage(ctx, env, raw)
	})
}

func (s *Service) handleMessage(ctx context.Context, env clob.BookEnvelope, raw []byte) {
	if !strings.EqualFold(env.EventType, "book") {
		return
	}
	var event clob.BookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("decode book event failed", zap.Error(err))
		}
		return
	}
	tokenID := strings.TrimSpace(event.AssetID)
	if tokenID == "" {
		tokenID = strings.TrimSpace(env.AssetID)
	}
	if tokenID == "" {
		return
	}

	now := time.Now().UTC()
	summary := orderbook.Analyze(clob.Levels(event.Bids), clob.Levels(event.Asks))
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
	source := "stream"
	item.Source = &source
	if bids, err := json.Marshal(clob.Levels(event.Bids)); err == nil {
		item.BidsJSON = datatypes.JSON(bids)
	}
	if asks, err := json.Marshal(clob.Levels(event.Asks)); err == nil {
		item.AsksJSON = datatypes.JSON(asks)
	}
	if err := s.Store.UpsertOrderbookLatest(ctx, item); err != nil && s.Logger != nil {
		s.Logger.Warn("persist stream book failed",
			zap.String("token_id", tokenID), zap.Error(err))
	}
}
