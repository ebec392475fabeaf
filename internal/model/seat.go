package model

import "time"

// SeatStatus is the lifecycle state of a seat within a show. Unlike the
// teacher's FREE/HELD/RESERVED trio this is AVAILABLE/HELD/BOOKED, matching
// the spec's state machine, but the shape of the enum — a small closed set
// of uppercase strings stored verbatim in the status column — follows the
// same convention as show_seats.status.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatBooked    SeatStatus = "BOOKED"
)

// Seat is one reservable position within a show. Its composite identity is
// (ShowID, SeatID); SeatID is an opaque string supplied by the caller at
// InitializeShow time (e.g. "A1") and is unique only within its show.
//
// HoldID and HoldExpiresAt are populated iff Status == SeatHeld (invariant
// I2/I3 of the spec); both are zero otherwise.
type Seat struct {
	ShowID        string     // seats.show_id
	SeatID        string     // seats.seat_id
	Status        SeatStatus // seats.status
	HoldID        string     // seats.hold_id, empty unless Status == SeatHeld
	HoldExpiresAt *time.Time // seats.hold_expires_at, nil unless Status == SeatHeld
}

// Held reports whether the seat is currently HELD with a hold_id attached.
func (s Seat) Held() bool { return s.Status == SeatHeld && s.HoldID != "" }
