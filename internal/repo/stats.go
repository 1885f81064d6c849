// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate queries that feed
// availability: per-date confirmed counts and per-date taken times.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// ConfirmedCountsByDate returns the number of confirmed reservations for
// every date on or after fromDate. Dates without confirmed reservations are
// absent from the map.
func ConfirmedCountsByDate(ctx context.Context, db *gorm.DB, fromDate string) (map[string]int64, error) {
	var rows []struct {
		Date string
		N    int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Select("date, COUNT(*) AS n").
		Where("confirmed = ? AND date >= ?", true, fromDate).
		Group("date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Date] = r.N
	}
	return out, nil
}

// ConfirmedTimes returns the times already confirmed on date.
func ConfirmedTimes(ctx context.Context, db *gorm.DB, date string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("date = ? AND confirmed = ?", date, true).
		Order("time asc").
		Pluck("time", &out).Error
	return out, err
}
