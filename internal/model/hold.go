package model

import "time"

// Hold is a time-bounded exclusive claim on a set of seats pending
// confirmation into a Booking. A hold is all-or-nothing over its seat set:
// there is no partial-hold state.
type Hold struct {
	HoldID    string    // holds.hold_id, a canonical UUID string
	ShowID    string    // holds.show_id
	SeatIDs   []string  // hold_seats.seat_id rows, ordered as requested, non-empty, no duplicates
	ExpiresAt time.Time // holds.expires_at, UTC
	CreatedAt time.Time // holds.created_at, UTC
}

// Expired reports whether the hold's deadline has passed as of now.
func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
