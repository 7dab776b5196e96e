package db

import (
	"polyedge/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Instrument{},
		&models.Contract{},
		&models.OrderbookLatest{},
		&models.Opportunity{},
		&models.RefreshRun{},
	)
}
