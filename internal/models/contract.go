package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Contract is one above/below market of an instrument's event. A null strike
// means the question text carried no parseable numeric token; such contracts
// stay visible per-instrument but are excluded from ranking.
type Contract struct {
	ID               uint64           `gorm:"primaryKey;autoIncrement"`
	InstrumentTicker string           `gorm:"type:text;index;not null;uniqueIndex:idx_contract_question,priority:1"`
	Question         string           `gorm:"type:text;not null;uniqueIndex:idx_contract_question,priority:2"`
	StrikePrice      *decimal.Decimal `gorm:"type:numeric(20,10);index"`
	YesTokenID       *string          `gorm:"type:text;index"`
	YesProbability   *decimal.Decimal `gorm:"type:numeric(20,10)"`
	NoProbability    *decimal.Decimal `gorm:"type:numeric(20,10)"`
	FairValue        *decimal.Decimal `gorm:"type:numeric(20,10)"`
	Probability      *decimal.Decimal `gorm:"type:numeric(20,10)"`
	RawJSON          datatypes.JSON   `gorm:"type:jsonb"`
	LastSeenAt       time.Time        `gorm:"type:timestamptz;not null"`
	UpdatedAt        time.Time        `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Contract) TableName() string {
	return "contracts"
}
