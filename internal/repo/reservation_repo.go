// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Reservation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - Missing rows yield ErrNotFound (gorm.ErrRecordNotFound).
//   - Unique index violations yield ErrDuplicate. For CreateReservation this
//     means the owner already holds the tuple; for ConfirmReservation it
//     means another reservation already confirmed the (date, time) slot.
//   - Other DB errors are propagated raw.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// CreateReservation inserts r as given. The caller assigns the ID.
func CreateReservation(ctx context.Context, db *gorm.DB, r *domain.Reservation) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetReservation fetches a reservation by ID.
func GetReservation(ctx context.Context, db *gorm.DB, id string) (*domain.Reservation, error) {
	var r domain.Reservation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// FindReservation fetches the owner's reservation for an exact
// (service, date, time) tuple, pending or confirmed.
func FindReservation(ctx context.Context, db *gorm.DB, channelID int64, service, date, tm string) (*domain.Reservation, error) {
	var r domain.Reservation
	err := db.WithContext(ctx).
		Where("channel_id = ? AND service_name = ? AND date = ? AND time = ?", channelID, service, date, tm).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ConfirmReservation flips the owner's pending reservation for the tuple to
// confirmed in a single UPDATE. The partial unique slot index makes the
// statement fail with ErrDuplicate if the slot was confirmed by anyone else
// first.
func ConfirmReservation(ctx context.Context, db *gorm.DB, channelID int64, service, date, tm string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("channel_id = ? AND service_name = ? AND date = ? AND time = ? AND confirmed = ?", channelID, service, date, tm, false).
		Updates(map[string]any{"confirmed": true, "confirmed_at": at})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SlotConfirmed reports whether any confirmed reservation holds (date, time).
func SlotConfirmed(ctx context.Context, db *gorm.DB, date, tm string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("date = ? AND time = ? AND confirmed = ?", date, tm, true).
		Count(&n).Error
	return n > 0, err
}

// ListConfirmedReservations returns the owner's confirmed reservations in
// chronological order.
func ListConfirmedReservations(ctx context.Context, db *gorm.DB, channelID int64) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := db.WithContext(ctx).
		Where("channel_id = ? AND confirmed = ?", channelID, true).
		Order("date asc, time asc").
		Find(&out).Error
	return out, err
}

// CountConfirmedReservations returns the number of confirmed reservations of
// a channel.
func CountConfirmedReservations(ctx context.Context, db *gorm.DB, channelID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("channel_id = ? AND confirmed = ?", channelID, true).
		Count(&total).Error
	return total, err
}

// ListConfirmedReservationsPage is the paginated form of
// ListConfirmedReservations. The caller computes offset and limit.
func ListConfirmedReservationsPage(ctx context.Context, db *gorm.DB, channelID int64, offset, limit int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := db.WithContext(ctx).
		Where("channel_id = ? AND confirmed = ?", channelID, true).
		Order("date asc, time asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteReservation removes a reservation by ID and returns ErrNotFound if
// nothing was deleted.
func DeleteReservation(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Reservation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOwnedReservation removes a reservation only if it belongs to
// channelID.
func DeleteOwnedReservation(ctx context.Context, db *gorm.DB, channelID int64, id string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND channel_id = ?", id, channelID).
		Delete(&domain.Reservation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
