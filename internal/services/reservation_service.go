// Package services – ReservationService
//
// This file implements the reservation lifecycle: create (pending), confirm,
// list, and delete. Slot exclusivity is enforced by the store through unique
// indexes, never by read-then-write checks alone: two channels racing for the
// same (date, time) both pass the availability check, and the second
// confirming UPDATE fails on the partial slot index and maps to ErrSlotTaken.
//
// Observability: public methods are OpenTelemetry-instrumented and counted
// in booking_reservation_operations_total.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/availability"
	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/events"
	"github.com/tbourn/go-booking-bot/internal/repo"
	"github.com/tbourn/go-booking-bot/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReservationRepo defines the repository contract required by
// ReservationService.
type ReservationRepo interface {
	CreateReservation(ctx context.Context, db *gorm.DB, r *domain.Reservation) error
	GetReservation(ctx context.Context, db *gorm.DB, id string) (*domain.Reservation, error)
	FindReservation(ctx context.Context, db *gorm.DB, channelID int64, service, date, tm string) (*domain.Reservation, error)
	ConfirmReservation(ctx context.Context, db *gorm.DB, channelID int64, service, date, tm string, at time.Time) error
	SlotConfirmed(ctx context.Context, db *gorm.DB, date, tm string) (bool, error)
	ListConfirmedReservations(ctx context.Context, db *gorm.DB, channelID int64) ([]domain.Reservation, error)
	CountConfirmedReservations(ctx context.Context, db *gorm.DB, channelID int64) (int64, error)
	ListConfirmedReservationsPage(ctx context.Context, db *gorm.DB, channelID int64, offset, limit int) ([]domain.Reservation, error)
	DeleteReservation(ctx context.Context, db *gorm.DB, id string) error
	DeleteOwnedReservation(ctx context.Context, db *gorm.DB, channelID int64, id string) error
	ConfirmedCountsByDate(ctx context.Context, db *gorm.DB, fromDate string) (map[string]int64, error)
	ConfirmedTimes(ctx context.Context, db *gorm.DB, date string) ([]string, error)
}

// ReservationService implements ReservationLifecycle on top of the repo and
// answers availability questions for the current local time.
type ReservationService struct {
	DB            *gorm.DB
	Repo          ReservationRepo
	Verifications VerificationRepo
	Calendar      *availability.Calculator
	Events        events.Publisher
	Now           func() time.Time
	// Catalog restricts service names accepted by Create. Empty accepts any.
	Catalog domain.Catalog
}

// NewReservationService returns a service with a no-op publisher.
func NewReservationService(db *gorm.DB, r ReservationRepo, v VerificationRepo, cal *availability.Calculator) *ReservationService {
	return &ReservationService{DB: db, Repo: r, Verifications: v, Calendar: cal, Events: events.Nop{}, Now: time.Now}
}

func (s *ReservationService) tracer(ctx context.Context, op string, channelID int64) (context.Context, trace.Span) {
	return otel.Tracer("services/ReservationService").Start(ctx, op,
		trace.WithAttributes(attribute.Int64("channel.id", channelID)),
	)
}

// Create records a pending reservation for a verified channel. Calling it
// again for the same tuple returns the existing pending row.
func (s *ReservationService) Create(ctx context.Context, channelID int64, service, date, tm string) (*domain.Reservation, error) {
	ctx, span := s.tracer(ctx, "Create", channelID)
	defer span.End()

	if service == "" || !validDate(date) || !validTime(tm) {
		return nil, ErrInvalidInput
	}
	if len(s.Catalog) > 0 && !s.Catalog.HasName(service) {
		reservationOps.WithLabelValues("create", "unknown_service").Inc()
		return nil, ErrUnknownService
	}

	v, err := s.Verifications.GetVerification(ctx, s.DB, channelID)
	if err != nil {
		if isNotFound(err) {
			reservationOps.WithLabelValues("create", "not_verified").Inc()
			return nil, ErrIdentityNotVerified
		}
		return nil, storageErr(err)
	}
	if !v.Confirmed {
		reservationOps.WithLabelValues("create", "not_verified").Inc()
		return nil, ErrIdentityNotVerified
	}

	taken, err := s.Repo.SlotConfirmed(ctx, s.DB, date, tm)
	if err != nil {
		return nil, storageErr(err)
	}
	if taken {
		reservationOps.WithLabelValues("create", "slot_taken").Inc()
		return nil, ErrSlotTaken
	}

	r := &domain.Reservation{
		ID:                   uuid.NewString(),
		ChannelID:            channelID,
		VerificationIdentity: v.Identity,
		ServiceName:          service,
		Date:                 date,
		Time:                 tm,
		CreatedAt:            s.now().UTC(),
	}
	err = s.Repo.CreateReservation(ctx, s.DB, r)
	if errors.Is(err, repo.ErrDuplicate) {
		existing, ferr := s.Repo.FindReservation(ctx, s.DB, channelID, service, date, tm)
		if ferr != nil {
			return nil, storageErr(ferr)
		}
		if existing.Confirmed {
			reservationOps.WithLabelValues("create", "slot_taken").Inc()
			return nil, ErrSlotTaken
		}
		reservationOps.WithLabelValues("create", "reused").Inc()
		return existing, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	reservationOps.WithLabelValues("create", "ok").Inc()
	return r, nil
}

// Confirm finalizes the channel's pending reservation for the tuple.
// Confirming an already confirmed reservation of the same owner succeeds.
func (s *ReservationService) Confirm(ctx context.Context, channelID int64, service, date, tm string) error {
	ctx, span := s.tracer(ctx, "Confirm", channelID)
	defer span.End()

	err := s.Repo.ConfirmReservation(ctx, s.DB, channelID, service, date, tm, s.now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrDuplicate):
		reservationOps.WithLabelValues("confirm", "slot_taken").Inc()
		return ErrSlotTaken
	case isNotFound(err):
		existing, ferr := s.Repo.FindReservation(ctx, s.DB, channelID, service, date, tm)
		if ferr == nil && existing.Confirmed {
			reservationOps.WithLabelValues("confirm", "already").Inc()
			return nil
		}
		if ferr != nil && !isNotFound(ferr) {
			return storageErr(ferr)
		}
		reservationOps.WithLabelValues("confirm", "not_found").Inc()
		return ErrNotFound
	default:
		return storageErr(err)
	}

	reservationOps.WithLabelValues("confirm", "ok").Inc()
	if r, ferr := s.Repo.FindReservation(ctx, s.DB, channelID, service, date, tm); ferr == nil {
		s.publish(ctx, events.ReservationConfirmed, r)
	}
	return nil
}

// Book runs Create then Confirm.
func (s *ReservationService) Book(ctx context.Context, channelID int64, service, date, tm string) (*domain.Reservation, error) {
	r, err := s.Create(ctx, channelID, service, date, tm)
	if err != nil {
		return nil, err
	}
	if err := s.Confirm(ctx, channelID, service, date, tm); err != nil {
		return nil, err
	}
	r.Confirmed = true
	return r, nil
}

// ListConfirmed returns the channel's confirmed reservations in
// chronological order.
func (s *ReservationService) ListConfirmed(ctx context.Context, channelID int64) ([]domain.Reservation, error) {
	ctx, span := s.tracer(ctx, "ListConfirmed", channelID)
	defer span.End()

	out, err := s.Repo.ListConfirmedReservations(ctx, s.DB, channelID)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// ListConfirmedPage returns one page of confirmed reservations and the total.
func (s *ReservationService) ListConfirmedPage(ctx context.Context, channelID int64, page, pageSize int) ([]domain.Reservation, int64, error) {
	ctx, span := otel.Tracer("services/ReservationService").Start(ctx, "ListConfirmedPage",
		trace.WithAttributes(
			attribute.Int64("channel.id", channelID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, size, offset := utils.Paginate(page, pageSize, 20, 100)
	total, err := s.Repo.CountConfirmedReservations(ctx, s.DB, channelID)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	if total == 0 {
		return []domain.Reservation{}, 0, nil
	}
	items, err := s.Repo.ListConfirmedReservationsPage(ctx, s.DB, channelID, offset, size)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	return items, total, nil
}

// DeleteByIdentity removes a reservation regardless of owner.
func (s *ReservationService) DeleteByIdentity(ctx context.Context, id string) error {
	ctx, span := s.tracer(ctx, "DeleteByIdentity", 0)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidInput
	}
	r, err := s.Repo.GetReservation(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			reservationOps.WithLabelValues("delete", "not_found").Inc()
			return ErrNotFound
		}
		return storageErr(err)
	}
	return s.finishDelete(ctx, r, s.Repo.DeleteReservation(ctx, s.DB, id))
}

// DeleteOwned removes a reservation only if channelID owns it; foreign
// reservations are reported as ErrNotFound.
func (s *ReservationService) DeleteOwned(ctx context.Context, channelID int64, id string) error {
	ctx, span := s.tracer(ctx, "DeleteOwned", channelID)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidInput
	}
	r, err := s.Repo.GetReservation(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			reservationOps.WithLabelValues("delete", "not_found").Inc()
			return ErrNotFound
		}
		return storageErr(err)
	}
	return s.finishDelete(ctx, r, s.Repo.DeleteOwnedReservation(ctx, s.DB, channelID, id))
}

func (s *ReservationService) finishDelete(ctx context.Context, r *domain.Reservation, err error) error {
	if err != nil {
		if isNotFound(err) {
			reservationOps.WithLabelValues("delete", "not_found").Inc()
			return ErrNotFound
		}
		return storageErr(err)
	}
	reservationOps.WithLabelValues("delete", "ok").Inc()
	s.publish(ctx, events.ReservationDeleted, r)
	return nil
}

// OccupiedDates returns the fully booked dates from today on.
func (s *ReservationService) OccupiedDates(ctx context.Context) (availability.DateSet, error) {
	today := s.Calendar.Today().Format(domain.DateLayout)
	counts, err := s.Repo.ConfirmedCountsByDate(ctx, s.DB, today)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.Calendar.FullDates(counts), nil
}

// OccupiedTimes returns the confirmed times on date.
func (s *ReservationService) OccupiedTimes(ctx context.Context, date string) (availability.TimeSet, error) {
	times, err := s.Repo.ConfirmedTimes(ctx, s.DB, date)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make(availability.TimeSet, len(times))
	for _, t := range times {
		out[t] = struct{}{}
	}
	return out, nil
}

// BookableDates lists the dates a user may currently pick.
func (s *ReservationService) BookableDates(ctx context.Context) ([]time.Time, error) {
	occupied, err := s.OccupiedDates(ctx)
	if err != nil {
		return nil, err
	}
	return s.Calendar.BookableDates(occupied), nil
}

// BookableTimes lists the free slots of date. date must be a bookable date;
// other dates come back empty.
func (s *ReservationService) BookableTimes(ctx context.Context, date string) ([]string, error) {
	day, err := s.Calendar.ParseDate(date)
	if err != nil {
		return nil, ErrInvalidInput
	}
	occupiedDates, err := s.OccupiedDates(ctx)
	if err != nil {
		return nil, err
	}
	if !s.Calendar.IsBookableDate(date, occupiedDates) {
		return []string{}, nil
	}
	occupied, err := s.OccupiedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	out := s.Calendar.BookableTimes(day, occupied)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *ReservationService) publish(ctx context.Context, key string, r *domain.Reservation) {
	if s.Events == nil {
		return
	}
	ev := events.Reservation{
		ID:          r.ID,
		ChannelID:   r.ChannelID,
		ServiceName: r.ServiceName,
		Date:        r.Date,
		Time:        r.Time,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.Events.Publish(ctx, key, ev); err != nil {
		log.Warn().Err(err).Str("event", key).Str("reservation_id", r.ID).Msg("publish reservation event failed")
	}
}

func (s *ReservationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func validDate(s string) bool {
	_, err := time.Parse(domain.DateLayout, s)
	return err == nil
}

func validTime(s string) bool {
	_, err := time.Parse(domain.TimeLayout, s)
	return err == nil && len(s) == len(domain.TimeLayout)
}
