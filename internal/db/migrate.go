package db

import (
	"fundwatch/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Fund{},
		&models.FundNAV{},
		&models.Trade{},
		&models.AlertRule{},
		&models.AlertEvent{},
		&models.JobRun{},
	)
}
