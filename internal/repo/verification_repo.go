// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ContactVerification model.
//
// Verification rows are keyed by channel_id. Writes are single statements so
// concurrent submissions from one channel never produce a second row.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// GetVerification fetches the verification record of a channel, or
// ErrNotFound.
func GetVerification(ctx context.Context, db *gorm.DB, channelID int64) (*domain.ContactVerification, error) {
	var v domain.ContactVerification
	err := db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpsertVerification inserts v or, when the channel already has a record,
// overwrites its email, identity and code and resets it to unconfirmed.
// CreatedAt of an existing row is preserved.
func UpsertVerification(ctx context.Context, db *gorm.DB, v *domain.ContactVerification) error {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	v.Confirmed = false
	v.ConfirmedAt = nil
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"identity", "email", "confirmation_code", "confirmed", "confirmed_at", "updated_at",
			}),
		}).
		Create(v).Error
}

// MarkVerificationConfirmed flips the channel's record to confirmed. It
// returns ErrNotFound if the channel has no record.
func MarkVerificationConfirmed(ctx context.Context, db *gorm.DB, channelID int64, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ContactVerification{}).
		Where("channel_id = ?", channelID).
		Updates(map[string]any{
			"confirmed":    true,
			"confirmed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountVerifications returns the number of verification rows for a channel.
// Used by tests and diagnostics; the schema guarantees 0 or 1.
func CountVerifications(ctx context.Context, db *gorm.DB, channelID int64) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ContactVerification{}).
		Where("channel_id = ?", channelID).
		Count(&n).Error
	return n, err
}
