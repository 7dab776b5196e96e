package models

import "time"

// RefreshRun records one full refresh cycle for observability and retention.
type RefreshRun struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement"`
	StartedAt         time.Time `gorm:"type:timestamptz;not null;index"`
	FinishedAt        time.Time `gorm:"type:timestamptz;not null"`
	TriggeredBy       string    `gorm:"type:varchar(20);not null"`
	InstrumentsOK     int       `gorm:"not null"`
	InstrumentsFailed int       `gorm:"not null"`
	Contracts         int       `gorm:"not null"`
	Opportunities     int       `gorm:"not null"`
	CreatedAt         time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (RefreshRun) TableName() string {
	return "refresh_runs"
}
