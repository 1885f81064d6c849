// Package domain defines the persistence models for contact verification and
// reservations, plus the small value types shared by the booking engine.
// These types are mapped with GORM and form the core data layer of the bot.
package domain

import (
	"time"
)

// Layouts used for the string-encoded calendar date and time-of-day columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ContactVerification binds a messaging channel to an email address through
// a one-time numeric code. There is at most one row per channel.
//
// Fields:
//   - ChannelID: messaging channel identifier; primary key.
//   - Identity: deterministic UUID derived from (channel, normalized email).
//   - Email: address as supplied by the user (trimmed).
//   - ConfirmationCode: 4-digit code, regenerated on every attempt.
//   - Confirmed / ConfirmedAt: set once the submitted code matched.
//   - CreatedAt: set on first insert and never rewritten by upserts.
type ContactVerification struct {
	ChannelID        int64      `json:"channel_id"        gorm:"primaryKey;autoIncrement:false"`
	Identity         string     `json:"identity"          gorm:"type:char(36);not null;index:idx_verification_identity"`
	Email            string     `json:"email"             gorm:"type:varchar(320);not null"`
	ConfirmationCode string     `json:"-"                 gorm:"type:char(4);not null"`
	Confirmed        bool       `json:"confirmed"         gorm:"not null"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ContactVerification.
func (ContactVerification) TableName() string { return "contact_verifications" }

// Reservation is a booked (date, time) slot for one service. Rows are
// created pending and flipped to confirmed when the user finalizes them.
//
// Two unique indexes back the booking invariants:
//   - ux_reservation_owner_slot: one row per (channel, service, date, time).
//   - ux_reservation_slot: a (date, time) slot is confirmed at most once.
type Reservation struct {
	ID                   string     `json:"id"           gorm:"type:char(36);primaryKey"`
	ChannelID            int64      `json:"channel_id"   gorm:"not null;index:idx_reservation_channel;uniqueIndex:ux_reservation_owner_slot,priority:1"`
	VerificationIdentity string     `json:"-"            gorm:"type:char(36);not null"`
	ServiceName          string     `json:"service_name" gorm:"type:varchar(128);not null;uniqueIndex:ux_reservation_owner_slot,priority:2"`
	Date                 string     `json:"date"         gorm:"type:char(10);not null;index:idx_reservation_date;uniqueIndex:ux_reservation_owner_slot,priority:3;uniqueIndex:ux_reservation_slot,priority:1,where:confirmed = true"`
	Time                 string     `json:"time"         gorm:"type:char(5);not null;uniqueIndex:ux_reservation_owner_slot,priority:4;uniqueIndex:ux_reservation_slot,priority:2,where:confirmed = true"`
	Confirmed            bool       `json:"confirmed"    gorm:"not null"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// TableName returns the database table name for Reservation.
func (Reservation) TableName() string { return "reservations" }

