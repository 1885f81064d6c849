// Package services defines the business logic for contact verification,
// reservations, and the discount game. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// conversation and handler layers.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-booking-bot/internal/repo"
	"gorm.io/gorm"
)

var (
	// ErrInvalidInput is returned for malformed identifiers, dates or times.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates that the referenced reservation does not exist,
	// e.g. a confirm after a restart lost the pending row.
	ErrNotFound = errors.New("reservation not found")

	// ErrIdentityNotVerified is returned when a reservation is created for a
	// channel without a confirmed contact verification.
	ErrIdentityNotVerified = errors.New("contact identity not verified")

	// ErrSlotTaken is returned when the (date, time) slot is already
	// confirmed by another reservation.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrUnknownService is returned for a service key outside the catalog.
	ErrUnknownService = errors.New("unknown service")

	// ErrAlreadyPlayedToday is returned when the discount game is replayed on
	// the same local day.
	ErrAlreadyPlayedToday = errors.New("discount game already played today")

	// ErrStorageUnavailable wraps every unexpected persistence failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	// Fallback to GORM's sentinel.
	return errors.Is(err, gorm.ErrRecordNotFound)
}
