package model

import "time"

// Booking is the terminal confirmation derived from a Hold. Its BookingID
// is always equal to the HoldID it was confirmed from (see spec §4.3.3):
// this lets a client that never heard back from a book call retry with the
// same hold_id and land on the exact same booking deterministically.
type Booking struct {
	BookingID string    // bookings.booking_id == the originating hold_id
	ShowID    string    // bookings.show_id
	SeatIDs   []string  // booking_seats.seat_id rows, ordered by seat_order
	BookedAt  time.Time // bookings.booked_at, UTC
}
