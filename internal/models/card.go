package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// CardRecord is the canonical catalog entry for a single printed card.
// The natural key is the printed collector id, e.g. "OGN-042" or "OGN-042s".
// Rows are created or refreshed by origin sync and crawler ingestion and are
// only removed by an explicit catalog re-seed.
type CardRecord struct {
	ID          string         `gorm:"primaryKey;size:32" json:"id"`
	Name        string         `gorm:"size:255;index" json:"name"`
	Rarity      string         `gorm:"size:64;index" json:"rarity"`
	SetCode     string         `gorm:"size:16;index" json:"set_code"`
	Number      int            `gorm:"index" json:"number"`
	Variant     string         `gorm:"size:8" json:"variant,omitempty"`
	Color       string         `gorm:"size:64;index" json:"color"`
	CardType    string         `gorm:"size:64;index" json:"card_type"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `gorm:"size:512" json:"image_url"`
	RawPayload  datatypes.JSON `json:"raw_payload,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

var cardIDPattern = regexp.MustCompile(`^([A-Za-z]+)-0*(\d+)([A-Za-z*]*)$`)

// SplitCardID breaks a collector id into set code, numeric part and variant
// suffix. The numeric part drives natural in-set ordering regardless of
// zero-padding. Returns ok=false for ids that do not follow the
// <SET>-<NNN>[variant] convention.
func SplitCardID(id string) (setCode string, number int, variant string, ok bool) {
	match := cardIDPattern.FindStringSubmatch(strings.TrimSpace(id))
	if match == nil {
		return "", 0, "", false
	}

	number, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, "", false
	}

	return strings.ToUpper(match[1]), number, match[3], true
}
