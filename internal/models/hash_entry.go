package models

import "time"

// HashEntry caches the perceptual fingerprint computed from a card's backing
// asset. Entries are derived state: they are recomputed whenever the source
// asset's modification time changes and are never edited by hand.
type HashEntry struct {
	CardID      string    `gorm:"primaryKey;size:32" json:"card_id"`
	Hash        string    `gorm:"size:64" json:"hash"`
	SourcePath  string    `gorm:"size:512" json:"source_path"`
	SourceMTime int64     `json:"source_mtime"`
	UpdatedAt   time.Time `json:"updated_at"`
}
