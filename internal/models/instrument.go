package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is one tracked underlying stock plus the latest snapshot of the
// inputs its contracts were priced with. Superseded wholesale every refresh.
type Instrument struct {
	Ticker           string          `gorm:"primaryKey;type:text"`
	Name             string          `gorm:"type:text;not null"`
	EventSlug        string          `gorm:"type:text;uniqueIndex;not null"`
	EventTitle       string          `gorm:"type:text"`
	SpotPrice        decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Volatility       decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	VolatilitySource string          `gorm:"type:text;not null"`
	DividendYield    decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	RiskFreeRate     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	TimeToExpiry     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	LastRefreshAt    time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt        time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Instrument) TableName() string {
	return "instruments"
}
