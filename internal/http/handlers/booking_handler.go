// Availability and reservation HTTP handlers.
//
// This file exposes REST endpoints for operators:
//   - GET    /availability/dates                     (bookable dates)
//   - GET    /availability/dates/{date}/times        (free slots of a date)
//   - GET    /channels/{channel_id}/reservations     (confirmed, paginated)
//   - DELETE /reservations/{id}                      (cancel)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// AvailableDatesResponse lists bookable dates as YYYY-MM-DD.
type AvailableDatesResponse struct {
	Dates []string `json:"dates" example:"2024-06-03,2024-06-04"`
}

// AvailableTimesResponse lists the free slots of one date as HH:MM.
type AvailableTimesResponse struct {
	Date  string   `json:"date"  example:"2024-06-03"`
	Times []string `json:"times" example:"10:00,11:00"`
}

// ListReservationsResponse wraps a page of reservations and pagination information.
type ListReservationsResponse struct {
	Reservations []domain.Reservation `json:"reservations"`
	Pagination   Pagination           `json:"pagination"`
}

// ListDates godoc
// @ID          listAvailableDates
// @Summary     List bookable dates
// @Description Returns the dates inside the lookahead window that still have a free slot.
// @Tags        Availability
// @Produce     json
// @Success     200  {object}  handlers.AvailableDatesResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /availability/dates [get]
func (h *Handlers) ListDates(c *gin.Context) {
	days, err := h.bookings.BookableDates(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format(domain.DateLayout))
	}
	ok(c, http.StatusOK, AvailableDatesResponse{Dates: out})
}

// ListTimes godoc
// @ID          listAvailableTimes
// @Summary     List free slots of a date
// @Description Returns the free hourly slots of a date. Dates outside the window come back empty.
// @Tags        Availability
// @Produce     json
// @Param       date  path  string  true  "Date (YYYY-MM-DD)"  example(2024-06-03)
// @Success     200  {object}  handlers.AvailableTimesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /availability/dates/{date}/times [get]
func (h *Handlers) ListTimes(c *gin.Context) {
	date := c.Param("date")
	times, err := h.bookings.BookableTimes(c.Request.Context(), date)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, AvailableTimesResponse{Date: date, Times: times})
}

// ListReservations godoc
// @ID          listReservations
// @Summary     List confirmed reservations of a channel (paginated)
// @Description Returns the channel's confirmed reservations in chronological order.
// @Tags        Reservations
// @Produce     json
// @Param       channel_id  path   int  true   "Channel ID"      example(42)
// @Param       page        query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size   query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListReservationsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /channels/{channel_id}/reservations [get]
func (h *Handlers) ListReservations(c *gin.Context) {
	channelID, okID := channelParam(c)
	if !okID {
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.bookings.ListConfirmedPage(c.Request.Context(), channelID, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListReservationsResponse{
		Reservations: items,
		Pagination:   newPagination(page, pageSize, total),
	})
}

// DeleteReservation godoc
// @ID          deleteReservation
// @Summary     Cancel a reservation
// @Description Operator-only. Deletes a reservation by id regardless of owner, freeing its slot.
// @Description Requires the X-API-Key header to match OPERATOR_API_KEY; the route is disabled when no key is configured.
// @Tags        Reservations
// @Security    OperatorKey
// @Param       id  path  string  true  "Reservation ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid API key"
// @Failure     403  {object}  handlers.ErrorResponse  "Operator endpoints disabled"
// @Failure     404  {object}  handlers.ErrorResponse  "Reservation not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /reservations/{id} [delete]
func (h *Handlers) DeleteReservation(c *gin.Context) {
	if err := h.bookings.DeleteByIdentity(c.Request.Context(), c.Param("id")); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
