package db

import (
	"adsoptimizer/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		// synced advertising data
		&models.AmazonConnection{},
		&models.Campaign{},
		&models.AdGroup{},
		&models.Keyword{},
		&models.SearchTerm{},
		// optimizer state
		&models.OptimizationRule{},
		&models.ExecutionLog{},
		&models.SystemSetting{},
	)
}
