// Package handlers provides HTTP handler implementations for the public API.
//
// This file declares the service contracts consumed by the handlers, the
// Handlers wiring type and the DTOs shared across endpoints. Handlers are
// transport-thin: they validate input, call application services, and
// translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/conversation"
	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/services"
	"github.com/tbourn/go-booking-bot/internal/utils"
)

//
// Service contracts (context-aware)
//

// BookingService exposes availability and reservation operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BookingService interface {
	// BookableDates lists the dates that can currently be picked.
	BookableDates(ctx context.Context) ([]time.Time, error)
	// BookableTimes lists the free slots of a bookable date (YYYY-MM-DD).
	BookableTimes(ctx context.Context, date string) ([]string, error)
	// ListConfirmedPage returns a page of a channel's confirmed reservations.
	ListConfirmedPage(ctx context.Context, channelID int64, page, pageSize int) ([]domain.Reservation, int64, error)
	// DeleteByIdentity removes a reservation regardless of owner.
	DeleteByIdentity(ctx context.Context, id string) error
}

// Engine runs one conversation event and returns the replies it produced.
// conversation.Dispatcher implements it.
type Engine interface {
	Do(ctx context.Context, ev conversation.Event) ([]conversation.Reply, error)
}

//
// Handler wiring
//

// DefaultIdempotencyTTL bounds how long a replayable event response is kept.
const DefaultIdempotencyTTL = 24 * time.Hour

// Handlers groups the HTTP endpoints for availability, reservations and
// conversation events.
type Handlers struct {
	bookings BookingService
	engine   Engine

	// DB stores Idempotency-Key claims; nil disables replay support.
	DB *gorm.DB
	// IdempotencyTTL defaults to DefaultIdempotencyTTL.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(bookings BookingService, engine Engine, db *gorm.DB) *Handlers {
	return &Handlers{bookings: bookings, engine: engine, DB: db, IdempotencyTTL: DefaultIdempotencyTTL}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// channelParam parses the :channel_id path segment. Telegram group chats use
// negative identifiers, so only zero is rejected.
func channelParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel_id must be a non-zero integer")
		return 0, false
	}
	return id, true
}

// failService maps service-layer sentinels onto the error envelope.
func failService(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reservation not found")
	case errors.Is(err, services.ErrSlotTaken):
		fail(c, http.StatusConflict, ErrCodeSlotTaken, err.Error())
	case errors.Is(err, services.ErrIdentityNotVerified):
		fail(c, http.StatusForbidden, ErrCodeNotVerified, err.Error())
	case errors.Is(err, services.ErrUnknownService):
		fail(c, http.StatusBadRequest, ErrCodeUnknownService, err.Error())
	case errors.Is(err, services.ErrStorageUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
	case errors.Is(err, conversation.ErrDispatcherClosed):
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "shutting down")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
