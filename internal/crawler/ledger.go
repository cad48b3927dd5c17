package crawler

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EvoluTechs/riftcollect/internal/models"
)

// attemptExists reports whether the ledger already holds an attempt for the
// given candidate URL.
func (c *Crawler) attemptExists(ctx context.Context, candidate string) (bool, error) {
	var attempt models.ScanAttempt
	err := c.db.WithContext(ctx).
		Select("url").
		Where("url = ?", candidate).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// recordAttempt upserts the probe result so the ledger always reflects the
// latest observation per URL.
func (c *Crawler) recordAttempt(ctx context.Context, candidate, status string, httpCode int) error {
	attempt := models.ScanAttempt{
		URL:         candidate,
		Status:      status,
		HTTPCode:    httpCode,
		LastChecked: time.Now().UTC(),
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "http_code", "last_checked"}),
		}).
		Create(&attempt).Error
}
