package models

import (
	"time"

	"gorm.io/datatypes"
)

// OrderbookLatest is the most recent book snapshot per YES token, written by
// the refresh cycle and optionally kept fresh by the CLOB websocket stream.
type OrderbookLatest struct {
	TokenID      string         `gorm:"primaryKey;type:text"`
	SnapshotTS   time.Time      `gorm:"type:timestamptz;not null"`
	BidsJSON     datatypes.JSON `gorm:"type:jsonb"`
	AsksJSON     datatypes.JSON `gorm:"type:jsonb"`
	BestBid      *float64       `gorm:"type:numeric"`
	BestAsk      *float64       `gorm:"type:numeric"`
	Spread       *float64       `gorm:"type:numeric"`
	BidLiquidity float64        `gorm:"not null;default:0"`
	AskLiquidity float64        `gorm:"not null;default:0"`
	Source       *string        `gorm:"type:text"`
	UpdatedAt    time.Time      `gorm:"type:timestamptz;not null"`
}

func (OrderbookLatest) TableName() string {
	return "orderbook_latest"
}
