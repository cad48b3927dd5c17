package database

import (
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/models"
)

// AutoMigrate creates or updates the schema for every persistent model. It is
// idempotent and safe to re-run after a storage fallback switch.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ExpansionRecord{},
		&models.CardRecord{},
		&models.HashEntry{},
		&models.ScanAttempt{},
		&models.TranslationCacheEntry{},
		&models.CollectionItem{},
	)
}
