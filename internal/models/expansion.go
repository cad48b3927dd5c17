package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExpansionRecord describes a card set ("expansion") known to the catalog.
type ExpansionRecord struct {
	Code       string         `gorm:"primaryKey;size:16" json:"code"`
	Name       string         `gorm:"size:255;index" json:"name"`
	ReleasedAt *time.Time     `json:"released_at,omitempty"`
	RawPayload datatypes.JSON `json:"raw_payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
