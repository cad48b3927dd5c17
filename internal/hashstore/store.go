// Package hashstore maintains the durable fingerprint cache: one perceptual
// hash per catalog card, invalidated by the backing asset's modification
// time.
package hashstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/models"
	"github.com/EvoluTechs/riftcollect/pkg/metrics"
)

// Store refreshes and persists HashEntry rows.
type Store struct {
	db            *gorm.DB
	hasher        imagehash.Hasher
	assetRoot     string
	assetFilename string
	log           *zap.Logger
}

// NewStore constructs a hash store over the given database handle and local
// asset mirror layout (<root>/<SET>/<ID>/<filename>).
func NewStore(db *gorm.DB, hasher imagehash.Hasher, assetRoot, assetFilename string, log *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("hashstore: db is required")
	}
	if assetFilename == "" {
		assetFilename = "full-desk.jpg"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Store{
		db:            db,
		hasher:        hasher,
		assetRoot:     assetRoot,
		assetFilename: assetFilename,
		log:           log,
	}, nil
}

// AssetPath resolves the local scan backing a card.
func (s *Store) AssetPath(card models.CardRecord) string {
	return filepath.Join(s.assetRoot, card.SetCode, card.ID, s.assetFilename)
}

// Load returns the persisted fingerprint map.
func (s *Store) Load(ctx context.Context) (map[string]models.HashEntry, error) {
	var rows []models.HashEntry
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("hashstore: load: %w", err)
	}

	entries := make(map[string]models.HashEntry, len(rows))
	for _, row := range rows {
		entries[row.CardID] = row
	}
	return entries, nil
}

// Refresh brings the fingerprint cache up to date for the given catalog
// entries. A hash is recomputed only when the backing asset's modification
// time changed; cards whose asset no longer resolves are dropped from the
// snapshot. The full result is persisted in one transaction, so a crash
// mid-refresh cannot corrupt previously valid entries.
//
// Individual decode failures are collected and reported but never abort the
// refresh of the remaining entries.
func (s *Store) Refresh(ctx context.Context, cards []models.CardRecord) (map[string]models.HashEntry, error) {
	previous, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	var errs error
	entries := make(map[string]models.HashEntry, len(cards))

	for _, card := range cards {
		path := s.AssetPath(card)

		info, err := os.Stat(path)
		if err != nil {
			metrics.HashRefreshes.WithLabelValues("dropped").Inc()
			continue
		}
		mtime := info.ModTime().UnixNano()

		if prev, ok := previous[card.ID]; ok && prev.SourceMTime == mtime && prev.Hash != "" {
			prev.SourcePath = path
			entries[card.ID] = prev
			metrics.HashRefreshes.WithLabelValues("reused").Inc()
			continue
		}

		hash, err := s.hashFile(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("hashstore: %s: %w", card.ID, err))
			metrics.HashRefreshes.WithLabelValues("dropped").Inc()
			continue
		}

		entries[card.ID] = models.HashEntry{
			CardID:      card.ID,
			Hash:        hash,
			SourcePath:  path,
			SourceMTime: mtime,
		}
		metrics.HashRefreshes.WithLabelValues("recomputed").Inc()
	}

	if err := s.persist(ctx, entries); err != nil {
		return nil, err
	}

	if errs != nil {
		s.log.Warn("hash refresh completed with asset failures", zap.Error(errs))
	}
	return entries, errs
}

func (s *Store) hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return s.hasher.DecodeAndHash(f)
}

// persist writes the complete snapshot inside one transaction: the old rows
// are only gone once the new set has committed.
func (s *Store) persist(ctx context.Context, entries map[string]models.HashEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.HashEntry{}).Error; err != nil {
			return err
		}
		for _, entry := range entries {
			record := entry
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("hashstore: persist snapshot: %w", err)
	}
	return nil
}
