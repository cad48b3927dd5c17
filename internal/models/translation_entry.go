package models

import "time"

// TranslationCacheEntry memoizes one external translation call. The key is a
// content hash of (target language, source text); a key is written at most
// once for the lifetime of the cache.
type TranslationCacheEntry struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Lang      string    `gorm:"size:8;index" json:"lang"`
	SrcText   string    `gorm:"type:text" json:"src_text"`
	DstText   string    `gorm:"type:text" json:"dst_text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
