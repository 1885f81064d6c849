// Package availability computes bookable dates and hourly slots from the set
// of confirmed reservations.
//
// A day has one slot per hour from OpenHour to CloseHour inclusive. A date is
// fully booked once its confirmed count reaches that capacity; partial
// availability is always computed exactly from the taken slots.
package availability

import (
	"fmt"
	"time"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// Defaults for a single-chair salon day.
const (
	DefaultOpenHour      = 10
	DefaultCloseHour     = 18
	DefaultCutoffHour    = 18
	DefaultLookaheadDays = 15
)

// DateSet is a set of calendar dates encoded with domain.DateLayout.
type DateSet map[string]struct{}

// Has reports whether d is in the set.
func (s DateSet) Has(d string) bool { _, ok := s[d]; return ok }

// TimeSet is a set of times-of-day encoded with domain.TimeLayout.
type TimeSet map[string]struct{}

// Has reports whether t is in the set.
func (s TimeSet) Has(t string) bool { _, ok := s[t]; return ok }

// Calculator enumerates availability relative to the current local time.
// The zero value is not ready; use New.
type Calculator struct {
	Now           func() time.Time
	Location      *time.Location
	OpenHour      int
	CloseHour     int
	CutoffHour    int
	LookaheadDays int
}

// New returns a Calculator with the default schedule in loc. A nil loc means
// time.Local.
func New(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{
		Now:           time.Now,
		Location:      loc,
		OpenHour:      DefaultOpenHour,
		CloseHour:     DefaultCloseHour,
		CutoffHour:    DefaultCutoffHour,
		LookaheadDays: DefaultLookaheadDays,
	}
}

func (c *Calculator) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c *Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.loc())
	}
	return c.Now().In(c.loc())
}

// Capacity is the number of hourly slots in a day.
func (c *Calculator) Capacity() int {
	return c.CloseHour - c.OpenHour + 1
}

// Today returns local midnight of the current day.
func (c *Calculator) Today() time.Time {
	return midnight(c.now())
}

// ParseDate parses a domain.DateLayout date at local midnight.
func (c *Calculator) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(domain.DateLayout, s, c.loc())
}

// OccupiedDates returns the dates whose confirmed reservation count reaches
// capacity. Pending reservations are ignored.
func (c *Calculator) OccupiedDates(reservations []domain.Reservation) DateSet {
	counts := make(map[string]int64)
	for _, r := range reservations {
		if r.Confirmed {
			counts[r.Date]++
		}
	}
	return c.FullDates(counts)
}

// FullDates applies the capacity threshold to per-date confirmed counts, as
// produced by an aggregate query.
func (c *Calculator) FullDates(counts map[string]int64) DateSet {
	out := make(DateSet)
	for d, n := range counts {
		if n >= int64(c.Capacity()) {
			out[d] = struct{}{}
		}
	}
	return out
}

// BookableDates enumerates LookaheadDays calendar days starting today and
// keeps weekdays not in occupied. Today is dropped once the local time is
// past CutoffHour. The result is chronological.
func (c *Calculator) BookableDates(occupied DateSet) []time.Time {
	now := c.now()
	today := midnight(now)
	var out []time.Time
	for i := 0; i < c.LookaheadDays; i++ {
		d := today.AddDate(0, 0, i)
		if i == 0 && c.pastCutoff(now) {
			continue
		}
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if occupied.Has(d.Format(domain.DateLayout)) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// IsBookableDate reports whether date is currently among BookableDates.
func (c *Calculator) IsBookableDate(date string, occupied DateSet) bool {
	for _, d := range c.BookableDates(occupied) {
		if d.Format(domain.DateLayout) == date {
			return true
		}
	}
	return false
}

// OccupiedTimes returns the confirmed times on date.
func (c *Calculator) OccupiedTimes(date string, reservations []domain.Reservation) TimeSet {
	out := make(TimeSet)
	for _, r := range reservations {
		if r.Confirmed && r.Date == date {
			out[r.Time] = struct{}{}
		}
	}
	return out
}

// BookableTimes enumerates hourly slots of date that are not occupied. For
// today the first slot is the next full hour after now, never earlier than
// OpenHour. Past dates have no slots.
func (c *Calculator) BookableTimes(date time.Time, occupied TimeSet) []string {
	now := c.now()
	today := midnight(now)
	day := midnight(date.In(c.loc()))
	if day.Before(today) {
		return nil
	}
	start := c.OpenHour
	if day.Equal(today) && now.Hour()+1 > start {
		start = now.Hour() + 1
	}
	var out []string
	for h := start; h <= c.CloseHour; h++ {
		slot := fmt.Sprintf("%02d:00", h)
		if occupied.Has(slot) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

func (c *Calculator) pastCutoff(now time.Time) bool {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), c.CutoffHour, 0, 0, 0, now.Location())
	return now.After(cutoff)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
