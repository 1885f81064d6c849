package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// Store adapts the free functions of this package to the method sets the
// service layer depends on.
type Store struct{}

func (Store) GetVerification(ctx context.Context, db *gorm.DB, channelID int64) (*domain.ContactVerification, error) {
	return GetVerification(ctx, db, channelID)
}

func (Store) UpsertVerification(ctx context.Context, db *gorm.DB, v *domain.ContactVerification) error {
	return UpsertVerification(ctx, db, v)
}

func (Store) MarkVerificationConfirmed(ctx context.Context, db *gorm.DB, channelID int64, at time.Time) error {
	return MarkVerificationConfirmed(ctx, db, channelID, at)
}

func (Store) CreateReservation(ctx context.Context, db *gorm.DB, r *domain.Reservation) error {
	return CreateReservation(ctx, db, r)
}

func (Store) GetReservation(ctx context.Context, db *gorm.DB, id string) (*domain.Reservation, error) {
	return GetReservation(ctx, db, id)
}

func (Store) FindReservation(ctx context.Context, db *gorm.DB, channelID int64, service, date, tm string) (*domain.Reservation, error) {
	return FindReservation(ctx, db, channelID, service, date, tm)
}

func (Store) ConfirmReservation(ctx context.Context, db *gorm.DB, channelID int64, service, date, tm string, at time.Time) error {
	return ConfirmReservation(ctx, db, channelID, service, date, tm, at)
}

func (Store) SlotConfirmed(ctx context.Context, db *gorm.DB, date, tm string) (bool, error) {
	return SlotConfirmed(ctx, db, date, tm)
}

func (Store) ListConfirmedReservations(ctx context.Context, db *gorm.DB, channelID int64) ([]domain.Reservation, error) {
	return ListConfirmedReservations(ctx, db, channelID)
}

func (Store) CountConfirmedReservations(ctx context.Context, db *gorm.DB, channelID int64) (int64, error) {
	return CountConfirmedReservations(ctx, db, channelID)
}

func (Store) ListConfirmedReservationsPage(ctx context.Context, db *gorm.DB, channelID int64, offset, limit int) ([]domain.Reservation, error) {
	return ListConfirmedReservationsPage(ctx, db, channelID, offset, limit)
}

func (Store) DeleteReservation(ctx context.Context, db *gorm.DB, id string) error {
	return DeleteReservation(ctx, db, id)
}

func (Store) DeleteOwnedReservation(ctx context.Context, db *gorm.DB, channelID int64, id string) error {
	return DeleteOwnedReservation(ctx, db, channelID, id)
}

func (Store) ConfirmedCountsByDate(ctx context.Context, db *gorm.DB, fromDate string) (map[string]int64, error) {
	return ConfirmedCountsByDate(ctx, db, fromDate)
}

func (Store) ConfirmedTimes(ctx context.Context, db *gorm.DB, date string) ([]string, error) {
	return ConfirmedTimes(ctx, db, date)
}
