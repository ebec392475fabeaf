// Package engine implements the reservation state machine: initializing
// shows, holding seats, promoting holds into bookings, releasing holds
// early, reporting seat status, and the administrative reset. Every
// operation that touches more than one row does so inside a single
// transaction with row-level locks acquired in a fixed order, so that
// concurrent requests against overlapping seats serialize instead of
// corrupting each other's view of seat state.
package engine

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/iliyamo/cinema-seat-reservation/internal/clock"
	"github.com/iliyamo/cinema-seat-reservation/internal/idgen"
	"github.com/iliyamo/cinema-seat-reservation/internal/model"
	"github.com/iliyamo/cinema-seat-reservation/internal/queue"
	"github.com/iliyamo/cinema-seat-reservation/internal/store"
)

// Publisher is the subset of eventpublisher.Publisher the engine depends
// on; defined here so tests can supply a fake without importing the AMQP
// client.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// noopPublisher discards every event; used when no broker is configured.
type noopPublisher struct{}

func (noopPublisher) PublishBookingConfirmed(context.Context, queue.BookingConfirmedEvent) error {
	return nil
}

// Engine is the reservation state machine. It holds no state of its own
// beyond its collaborators: every durable fact lives in the store.
type Engine struct {
	store     *store.Store
	clock     clock.Clock
	ids       idgen.IDSource
	publisher Publisher

	defaultHoldSeconds int
	minHoldSeconds     int
	maxHoldSeconds     int
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithPublisher overrides the default no-op event publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithHoldDurationBounds overrides the default [60s, 1800s] clamp range and
// the default hold duration applied when a caller omits one.
func WithHoldDurationBounds(defaultSeconds, minSeconds, maxSeconds int) Option {
	return func(e *Engine) {
		e.defaultHoldSeconds = defaultSeconds
		e.minHoldSeconds = minSeconds
		e.maxHoldSeconds = maxSeconds
	}
}

// New constructs an Engine over the given store, clock and ID source.
func New(s *store.Store, c clock.Clock, ids idgen.IDSource, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		clock:              c,
		ids:                ids,
		publisher:          noopPublisher{},
		defaultHoldSeconds: 60,
		minHoldSeconds:     60,
		maxHoldSeconds:     1800,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClampHoldDuration clamps a caller-supplied hold duration (in seconds) to
// the engine's configured bounds, substituting the default when zero.
func (e *Engine) ClampHoldDuration(seconds int) int {
	if seconds <= 0 {
		seconds = e.defaultHoldSeconds
	}
	if seconds < e.minHoldSeconds {
		return e.minHoldSeconds
	}
	if seconds > e.maxHoldSeconds {
		return e.maxHoldSeconds
	}
	return seconds
}

func withTx(ctx context.Context, s *store.Store, fn func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return internalError(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return internalError(err)
	}
	return nil
}

// InitializeShow creates a new show with the given seat IDs, all AVAILABLE.
// seatIDs must be non-empty and free of duplicates; duplicates are rejected
// rather than silently collapsed, since a caller sending duplicates most
// likely made a request-construction mistake worth surfacing.
func (e *Engine) InitializeShow(ctx context.Context, showID string, seatIDs []string) error {
	if showID == "" || len(seatIDs) == 0 {
		return newError(KindInvalidSeatIDs, "show_id and seat_ids are required")
	}
	seen := make(map[string]struct{}, len(seatIDs))
	for _, sid := range seatIDs {
		if sid == "" {
			return newError(KindInvalidSeatIDs, "seat_ids must not contain empty values")
		}
		if _, dup := seen[sid]; dup {
			return newError(KindInvalidSeatIDs, "duplicate seats in request")
		}
		seen[sid] = struct{}{}
	}

	now := e.clock.Now()
	err := withTx(ctx, e.store, func(tx *sql.Tx) error {
		return e.store.CreateShowTx(ctx, tx, showID, seatIDs, now)
	})
	if err != nil {
		if err == store.ErrDuplicateShow {
			return newError(KindShowAlreadyExists, "show already exists")
		}
		if engErr, ok := err.(*Error); ok {
			return engErr
		}
		return internalError(err)
	}
	return nil
}

// HoldResult is the outcome of a successful HoldSeats call.
type HoldResult struct {
	HoldID    string
	SeatIDs   []string
	ExpiresAt time.Time
}

// HoldSeats locks the requested seats, verifies every one is AVAILABLE, and
// if so creates a hold that reserves them for holdSeconds. On any failure no
// seat state changes: the whole operation is one transaction.
func (e *Engine) HoldSeats(ctx context.Context, showID string, seatIDs []string, holdSeconds int) (*HoldResult, error) {
	if showID == "" || len(seatIDs) == 0 {
		return nil, newError(KindInvalidSeatIDs, "show_id and seat_ids are required")
	}
	requested := make(map[string]struct{}, len(seatIDs))
	for _, sid := range seatIDs {
		if sid == "" {
			return nil, newError(KindInvalidSeatIDs, "seat_ids must not contain empty values")
		}
		if _, dup := requested[sid]; dup {
			return nil, newError(KindInvalidSeatIDs, "duplicate seats in request")
		}
		requested[sid] = struct{}{}
	}

	holdSeconds = e.ClampHoldDuration(holdSeconds)
	now := e.clock.Now()
	expiresAt := now.Add(time.Duration(holdSeconds) * time.Second)

	holdID := e.ids.New()
	var result *HoldResult

	err := withTx(ctx, e.store, func(tx *sql.Tx) error {
		exists, err := e.store.ShowExistsTx(ctx, tx, showID)
		if err != nil {
			return internalError(err)
		}
		if !exists {
			return newError(KindShowNotFound, "show not found")
		}

		known, err := e.store.ValidSeatIDsTx(ctx, tx, showID, seatIDs)
		if err != nil {
			return internalError(err)
		}
		if len(known) != len(seatIDs) {
			return newError(KindInvalidSeatIDs, "invalid seat id(s)")
		}

		// Locks are acquired in ascending seat_id order inside LockSeatsTx,
		// regardless of the order seatIDs arrived in, so that two requests
		// naming overlapping seats in different orders cannot deadlock.
		locked, err := e.store.LockSeatsTx(ctx, tx, showID, seatIDs)
		if err != nil {
			return internalError(err)
		}

		var unavailable []string
		for _, seat := range locked {
			if seat.Status != model.SeatAvailable {
				unavailable = append(unavailable, seat.SeatID)
			}
		}
		if len(unavailable) > 0 {
			sort.Strings(unavailable)
			return unavailableError(unavailable)
		}

		hold := model.Hold{
			HoldID:    holdID,
			ShowID:    showID,
			SeatIDs:   append([]string(nil), seatIDs...),
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		if err := e.store.InsertHoldTx(ctx, tx, hold); err != nil {
			return internalError(err)
		}
		if err := e.store.UpdateSeatsHeldTx(ctx, tx, showID, seatIDs, holdID, expiresAt); err != nil {
			return internalError(err)
		}

		result = &HoldResult{HoldID: holdID, SeatIDs: hold.SeatIDs, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		if engErr, ok := err.(*Error); ok {
			return nil, engErr
		}
		return nil, internalError(err)
	}
	return result, nil
}

// BookingResult is the outcome of a successful BookHold call.
type BookingResult struct {
	BookingID string
	SeatIDs   []string
	BookedAt  time.Time
	Replayed  bool
}

// BookHold promotes a hold into a booking. The booking_id is the hold_id
// itself, which is what makes a retried confirmation request idempotent:
// if the hold row is already gone because a previous call already booked
// it, BookHold looks up the booking by that same id and returns it again
// instead of failing.
func (e *Engine) BookHold(ctx context.Context, showID, holdID string) (*BookingResult, error) {
	if showID == "" || holdID == "" {
		return nil, newError(KindHoldNotFound, "hold not found or expired")
	}

	now := e.clock.Now()
	var result *BookingResult
	var publish *queue.BookingConfirmedEvent

	err := withTx(ctx, e.store, func(tx *sql.Tx) error {
		hold, err := e.store.LockHoldTx(ctx, tx, showID, holdID)
		if err != nil {
			return internalError(err)
		}
		if hold == nil {
			existing, err := e.store.GetBookingTx(ctx, tx, showID, holdID)
			if err != nil {
				return internalError(err)
			}
			if existing == nil {
				return newError(KindHoldNotFound, "hold not found or expired")
			}
			result = &BookingResult{
				BookingID: existing.BookingID,
				SeatIDs:   existing.SeatIDs,
				BookedAt:  existing.BookedAt,
				Replayed:  true,
			}
			return nil
		}

		if hold.Expired(now) {
			if err := e.cleanupHold(ctx, tx, *hold); err != nil {
				return internalError(err)
			}
			return newError(KindHoldExpired, "hold expired")
		}

		locked, err := e.store.LockSeatsTx(ctx, tx, showID, hold.SeatIDs)
		if err != nil {
			return internalError(err)
		}
		if len(locked) != len(hold.SeatIDs) {
			return newError(KindHoldInvalidated, "hold invalidated (seat state mismatch)")
		}
		for _, seat := range locked {
			if seat.Status != model.SeatHeld || seat.HoldID != hold.HoldID {
				return newError(KindHoldInvalidated, "hold invalidated (seat state mismatch)")
			}
		}

		booking := model.Booking{
			BookingID: hold.HoldID,
			ShowID:    showID,
			SeatIDs:   hold.SeatIDs,
			BookedAt:  now,
		}
		if err := e.store.InsertBookingTx(ctx, tx, booking); err != nil {
			return internalError(err)
		}
		if err := e.store.UpdateSeatsBookedTx(ctx, tx, showID, hold.SeatIDs); err != nil {
			return internalError(err)
		}
		if err := e.store.DeleteHoldTx(ctx, tx, hold.HoldID); err != nil {
			return internalError(err)
		}

		result = &BookingResult{
			BookingID: booking.BookingID,
			SeatIDs:   booking.SeatIDs,
			BookedAt:  booking.BookedAt,
		}
		publish = &queue.BookingConfirmedEvent{
			BookingID: booking.BookingID,
			ShowID:    booking.ShowID,
			SeatIDs:   booking.SeatIDs,
			BookedAt:  booking.BookedAt.Format(time.RFC3339Nano),
		}
		return nil
	})
	if err != nil {
		if engErr, ok := err.(*Error); ok {
			return nil, engErr
		}
		return nil, internalError(err)
	}

	// The event is only published on a first-time commit, never on an
	// idempotent replay, so a retried confirmation never double-publishes.
	if publish != nil {
		if err := e.publisher.PublishBookingConfirmed(ctx, *publish); err != nil {
			// A broker outage must not turn an already-committed booking
			// into a caller-visible failure; the event is best-effort.
			_ = err
		}
	}
	return result, nil
}

// ReleaseHold releases a hold before it expires, freeing its seats back to
// AVAILABLE. It reports whether a hold was actually found and released.
func (e *Engine) ReleaseHold(ctx context.Context, showID, holdID string) (bool, error) {
	if showID == "" || holdID == "" {
		return false, nil
	}
	var released bool
	err := withTx(ctx, e.store, func(tx *sql.Tx) error {
		hold, err := e.store.LockHoldTx(ctx, tx, showID, holdID)
		if err != nil {
			return internalError(err)
		}
		if hold == nil {
			return nil
		}
		if err := e.cleanupHold(ctx, tx, *hold); err != nil {
			return internalError(err)
		}
		released = true
		return nil
	})
	if err != nil {
		if engErr, ok := err.(*Error); ok {
			return false, engErr
		}
		return false, internalError(err)
	}
	return released, nil
}

// cleanupHold releases a hold's seats back to AVAILABLE (guarded by
// hold_id, so a seat already reassigned by a newer hold is left alone) and
// deletes the hold row. Callers hold the tx that already locked the hold.
func (e *Engine) cleanupHold(ctx context.Context, tx *sql.Tx, hold model.Hold) error {
	if err := e.store.ReleaseSeatsForHoldTx(ctx, tx, hold.ShowID, hold.SeatIDs, hold.HoldID); err != nil {
		return err
	}
	return e.store.DeleteHoldTx(ctx, tx, hold.HoldID)
}

// SeatStatusSummary is the aggregate + per-seat detail view GetSeatStatus
// returns.
type SeatStatusSummary struct {
	TotalSeats     int
	AvailableSeats int
	HeldSeats      int
	BookedSeats    int
	Seats          []model.Seat
}

// GetSeatStatus reports the current state of every seat in a show. It takes
// no locks: callers get a consistent-enough read for display purposes, not
// a transactional guarantee.
func (e *Engine) GetSeatStatus(ctx context.Context, showID string) (*SeatStatusSummary, error) {
	if showID == "" {
		return nil, newError(KindShowNotFound, "show not found")
	}
	exists, err := e.store.ShowExists(ctx, showID)
	if err != nil {
		return nil, internalError(err)
	}
	if !exists {
		return nil, newError(KindShowNotFound, "show not found")
	}

	seats, err := e.store.ListSeats(ctx, showID)
	if err != nil {
		return nil, internalError(err)
	}

	summary := &SeatStatusSummary{Seats: seats}
	for _, seat := range seats {
		summary.TotalSeats++
		switch seat.Status {
		case model.SeatAvailable:
			summary.AvailableSeats++
		case model.SeatHeld:
			summary.HeldSeats++
		case model.SeatBooked:
			summary.BookedSeats++
		}
	}
	return summary, nil
}

// ResetSummary reports how many rows the administrative reset affected.
type ResetSummary struct {
	HoldsCleared    int64
	BookingsCleared int64
	SeatsReset      int64
}

// ResetAll clears every hold and booking and resets every seat in every
// show back to AVAILABLE. It is destructive and intended for operator and
// test-harness use only.
func (e *Engine) ResetAll(ctx context.Context) (*ResetSummary, error) {
	var summary ResetSummary
	err := withTx(ctx, e.store, func(tx *sql.Tx) error {
		holds, bookings, seats, err := e.store.ResetAllTx(ctx, tx)
		if err != nil {
			return internalError(err)
		}
		summary = ResetSummary{HoldsCleared: holds, BookingsCleared: bookings, SeatsReset: seats}
		return nil
	})
	if err != nil {
		if engErr, ok := err.(*Error); ok {
			return nil, engErr
		}
		return nil, internalError(err)
	}
	return &summary, nil
}

// ExpireDueHolds releases every hold whose deadline has passed as of the
// engine's current clock reading, in a single pass, and reports how many
// were released. It is the operation the background reaper calls on each
// tick; HoldSeats/BookHold callers never invoke it directly.
func (e *Engine) ExpireDueHolds(ctx context.Context) (int, error) {
	now := e.clock.Now()
	var count int
	err := withTx(ctx, e.store, func(tx *sql.Tx) error {
		expired, err := e.store.ListExpiredHoldsTx(ctx, tx, now)
		if err != nil {
			return internalError(err)
		}
		for _, hold := range expired {
			if err := e.cleanupHold(ctx, tx, hold); err != nil {
				return internalError(err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		if engErr, ok := err.(*Error); ok {
			return 0, engErr
		}
		return 0, internalError(err)
	}
	return count, nil
}
