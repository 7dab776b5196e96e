package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Opportunity is one row of the ranked top-N table for a refresh run. The set
// for each run is replaced wholesale; rows are never patched in place.
type Opportunity struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	RunID uint64 `gorm:"index;not null"`

	Ticker      string          `gorm:"type:text;index;not null"`
	StrikePrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Side        string          `gorm:"type:varchar(3);not null"`
	Rank        int             `gorm:"not null"`

	// Store money-like values as numeric to avoid float errors.
	ROI         decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Kelly       decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Probability decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	BestAsk     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	BestBid     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	BuyNoPrice  decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	EdgeVsAsk   decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	EdgeVsBid   decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	ChangeKind    *string        `gorm:"type:varchar(10)"`
	ChangedFields datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}
