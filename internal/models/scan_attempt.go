package models

import "time"

// Scan attempt outcomes. These are terminal states of the per-URL crawl
// state machine and are stable across runs.
const (
	ScanStatusFound   = "found"
	ScanStatusMissing = "missing"
	ScanStatusDenied  = "denied"
	ScanStatusOther   = "other"
)

// ScanAttempt is one row of the durable crawl ledger, keyed by the normalized
// absolute asset URL. The key must stay byte-for-byte stable across runs so a
// crawl with rescan disabled can skip previously probed URLs.
type ScanAttempt struct {
	URL         string    `gorm:"primaryKey;size:512" json:"url"`
	Status      string    `gorm:"size:16;index" json:"status"`
	HTTPCode    int       `json:"http_code"`
	LastChecked time.Time `json:"last_checked"`
}
