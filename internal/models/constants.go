package models

import "strings"

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
	StatusCanceled BookingStatus = "CANCELED"
)

// BookingState selects bookings by time window or status when listing.
type BookingState string

const (
	StateAll      BookingState = "ALL"
	StateCurrent  BookingState = "CURRENT"
	StatePast     BookingState = "PAST"
	StateFuture   BookingState = "FUTURE"
	StateWaiting  BookingState = "WAITING"
	StateRejected BookingState = "REJECTED"
)

// ParseBookingState is case-insensitive and falls back to StateAll for unknown values.
func ParseBookingState(raw string) BookingState {
	switch s := BookingState(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return s
	default:
		return StateAll
	}
}

const (
	// UserIDHeader carries the trusted caller identity.
	UserIDHeader = "X-Sharer-User-Id"

	// DefaultRateLimitBurst is the per-client request burst.
	DefaultRateLimitBurst = 20

	// DefaultRateLimitRPS is the sustained per-client request rate.
	DefaultRateLimitRPS = 10

	// DefaultBackupRetentionDays is how long backups are kept.
	DefaultBackupRetentionDays = 7
)
