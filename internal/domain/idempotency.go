package domain

import "time"

// Sources of processed events.
const (
	SourceTelegram = "telegram"
	SourceHTTP     = "http"
)

// ProcessedEvent records an inbound event that has already been handled,
// keyed by (source, key). Telegram redeliveries are keyed by update_id and
// HTTP retries by their Idempotency-Key; Response holds the JSON-encoded
// replies so a retry can be answered without re-running the engine.
type ProcessedEvent struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Source    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_processed_source_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_processed_source_key,priority:2"`
	ChannelID int64     `gorm:"not null;index"`
	Response  string    `gorm:"type:TEXT NOT NULL;default:''"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedEvent) TableName() string { return "processed_events" }

// Expired reports whether the record is past its retention window at now.
func (p ProcessedEvent) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}
