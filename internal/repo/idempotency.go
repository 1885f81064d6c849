// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for ProcessedEvent,
// which deduplicates Telegram redeliveries and HTTP retries.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// GetProcessedEvent returns a non-expired record or ErrNotFound.
func GetProcessedEvent(ctx context.Context, db *gorm.DB, source, key string, now time.Time) (*domain.ProcessedEvent, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ProcessedEvent
	err := db.WithContext(ctx).
		Where("source = ? AND key = ? AND expires_at > ?", source, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateProcessedEvent inserts a record and returns ErrDuplicate on unique
// violation, meaning another worker already claimed (source, key).
func CreateProcessedEvent(ctx context.Context, db *gorm.DB, source, key string, channelID int64, response string, ttl time.Duration) (*domain.ProcessedEvent, error) {
	now := time.Now().UTC()
	rec := &domain.ProcessedEvent{
		ID:        uuid.NewString(),
		Source:    source,
		Key:       key,
		ChannelID: channelID,
		Response:  response,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// UpdateProcessedResponse stores the response of a claimed event.
func UpdateProcessedResponse(ctx context.Context, db *gorm.DB, source, key, response string) error {
	return db.WithContext(ctx).
		Model(&domain.ProcessedEvent{}).
		Where("source = ? AND key = ?", source, key).
		Update("response", response).Error
}

// PurgeExpiredProcessedEvents deletes records whose retention ended before
// now and returns how many were removed.
func PurgeExpiredProcessedEvents(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.ProcessedEvent{})
	return res.RowsAffected, res.Error
}

// DeleteProcessedEvent releases a claim so the event can be processed again.
func DeleteProcessedEvent(ctx context.Context, db *gorm.DB, source, key string) error {
	return db.WithContext(ctx).
		Where("source = ? AND key = ?", source, key).
		Delete(&domain.ProcessedEvent{}).Error
}
