// Package store is the persistence layer for the reservation engine: shows,
// seats, holds and bookings, over MySQL via database/sql. Every mutating
// method takes an explicit *sql.Tx so the engine controls transaction
// boundaries and lock lifetimes; the engine always begins the transaction,
// the store never does.
package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-seat-reservation/internal/model"
)

// ErrDuplicateShow is returned by CreateShowTx when a show row already
// exists for the given show_id, detected via the MySQL duplicate-key error
// (error number 1062) rather than a pre-check select, to avoid a
// check-then-insert race between concurrent InitializeShow calls.
var ErrDuplicateShow = errors.New("store: duplicate show")

// Store wraps a *sql.DB and exposes the transactional primitives the
// reservation engine composes into its operations.
type Store struct {
	db *sql.DB
}

// New constructs a Store over the given database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// DB returns the underlying *sql.DB so callers can begin their own
// transactions with custom isolation or timeout options.
func (s *Store) DB() *sql.DB { return s.db }

// BeginTx starts a new transaction scoped to ctx.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062), the signal InitializeShow uses to translate a raw insert
// failure into ErrDuplicateShow without a separate existence check.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// ---- Shows ----------------------------------------------------------------

// CreateShowTx inserts a show row and its seats (all AVAILABLE) atomically.
// It returns ErrDuplicateShow if show_id already exists.
func (s *Store) CreateShowTx(ctx context.Context, tx *sql.Tx, showID string, seatIDs []string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO shows (show_id, created_at) VALUES (?, ?)`, showID, now,
	); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateShow
		}
		return err
	}

	query := `INSERT INTO seats (show_id, seat_id, status) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*3)
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, showID, sid, string(model.SeatAvailable))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ShowExistsTx reports whether a show row exists for showID.
func (s *Store) ShowExistsTx(ctx context.Context, tx *sql.Tx, showID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE show_id = ?`, showID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ShowExists is the read-only, no-transaction variant used by operations
// that do not otherwise need a transaction (e.g. GetSeatStatus).
func (s *Store) ShowExists(ctx context.Context, showID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE show_id = ?`, showID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountShows returns the total number of initialized shows, used by the
// health endpoint.
func (s *Store) CountShows(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows`).Scan(&n)
	return n, err
}

// Ping verifies database connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- Seats ------------------------------------------------------------------

// ValidSeatIDsTx reports, for each requested seat ID, whether it belongs to
// the show. Used to reject HoldSeats requests that name unknown seats.
func (s *Store) ValidSeatIDsTx(ctx context.Context, tx *sql.Tx, showID string, seatIDs []string) (map[string]bool, error) {
	placeholders, args := inClause(seatIDs)
	args = append([]interface{}{showID}, args...)
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_id FROM seats WHERE show_id = ? AND seat_id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	known := make(map[string]bool, len(seatIDs))
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		known[sid] = true
	}
	return known, rows.Err()
}

// LockSeatsTx acquires an exclusive row lock (SELECT ... FOR UPDATE) on each
// requested seat, in ascending seat_id order, and returns the current state
// of each locked seat. Seats that do not exist are simply absent from the
// returned slice; callers distinguish "missing" from "unavailable" by
// comparing the returned count against len(seatIDs).
func (s *Store) LockSeatsTx(ctx context.Context, tx *sql.Tx, showID string, seatIDs []string) ([]model.Seat, error) {
	ordered := append([]string(nil), seatIDs...)
	sort.Strings(ordered)

	out := make([]model.Seat, 0, len(ordered))
	for _, sid := range ordered {
		var seat model.Seat
		var holdID sql.NullString
		var holdExpiresAt sql.NullTime
		err := tx.QueryRowContext(ctx,
			`SELECT show_id, seat_id, status, hold_id, hold_expires_at
			 FROM seats WHERE show_id = ? AND seat_id = ? FOR UPDATE`,
			showID, sid,
		).Scan(&seat.ShowID, &seat.SeatID, &seat.Status, &holdID, &holdExpiresAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		if holdID.Valid {
			seat.HoldID = holdID.String
		}
		if holdExpiresAt.Valid {
			t := holdExpiresAt.Time.UTC()
			seat.HoldExpiresAt = &t
		}
		out = append(out, seat)
	}
	return out, nil
}

// UpdateSeatsHeldTx transitions the given seats to HELD, attaching holdID
// and its expiry. Callers must already hold the row locks from LockSeatsTx.
func (s *Store) UpdateSeatsHeldTx(ctx context.Context, tx *sql.Tx, showID string, seatIDs []string, holdID string, expiresAt time.Time) error {
	if len(seatIDs) == 0 {
		return nil
	}
	placeholders, args := inClause(seatIDs)
	full := append([]interface{}{string(model.SeatHeld), holdID, expiresAt, showID}, args...)
	_, err := tx.ExecContext(ctx,
		`UPDATE seats SET status = ?, hold_id = ?, hold_expires_at = ?
		 WHERE show_id = ? AND seat_id IN (`+placeholders+`)`, full...,
	)
	return err
}

// UpdateSeatsBookedTx transitions the given seats to BOOKED and clears their
// hold fields.
func (s *Store) UpdateSeatsBookedTx(ctx context.Context, tx *sql.Tx, showID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	placeholders, args := inClause(seatIDs)
	full := append([]interface{}{string(model.SeatBooked), showID}, args...)
	_, err := tx.ExecContext(ctx,
		`UPDATE seats SET status = ?, hold_id = NULL, hold_expires_at = NULL
		 WHERE show_id = ? AND seat_id IN (`+placeholders+`)`, full...,
	)
	return err
}

// ReleaseSeatsForHoldTx resets to AVAILABLE every seat in seatIDs whose
// hold_id currently equals holdID, mirroring the cleanupHold guard in
// spec §4.3.5 (a concurrent reaper tick cannot really race this under the
// lock order the engine uses, but the guard is cheap and documents the
// invariant directly in the query).
func (s *Store) ReleaseSeatsForHoldTx(ctx context.Context, tx *sql.Tx, showID string, seatIDs []string, holdID string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	placeholders, args := inClause(seatIDs)
	full := append([]interface{}{string(model.SeatAvailable), showID, holdID}, args...)
	_, err := tx.ExecContext(ctx,
		`UPDATE seats SET status = ?, hold_id = NULL, hold_expires_at = NULL
		 WHERE show_id = ? AND hold_id = ? AND seat_id IN (`+placeholders+`)`, full...,
	)
	return err
}

// ListSeatsTx returns every seat belonging to a show, snapshot-consistent
// within the surrounding transaction but acquiring no locks of its own.
func (s *Store) ListSeatsTx(ctx context.Context, tx *sql.Tx, showID string) ([]model.Seat, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT show_id, seat_id, status, hold_id, hold_expires_at FROM seats WHERE show_id = ? ORDER BY seat_id`,
		showID,
	)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// ListSeats is the no-transaction variant of ListSeatsTx, used by
// GetSeatStatus which does not need row locks.
func (s *Store) ListSeats(ctx context.Context, showID string) ([]model.Seat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT show_id, seat_id, status, hold_id, hold_expires_at FROM seats WHERE show_id = ? ORDER BY seat_id`,
		showID,
	)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var seat model.Seat
		var holdID sql.NullString
		var holdExpiresAt sql.NullTime
		if err := rows.Scan(&seat.ShowID, &seat.SeatID, &seat.Status, &holdID, &holdExpiresAt); err != nil {
			return nil, err
		}
		if holdID.Valid {
			seat.HoldID = holdID.String
		}
		if holdExpiresAt.Valid {
			t := holdExpiresAt.Time.UTC()
			seat.HoldExpiresAt = &t
		}
		out = append(out, seat)
	}
	return out, rows.Err()
}

// ---- Holds ------------------------------------------------------------------

// InsertHoldTx inserts a hold row and its ordered seat_ids.
func (s *Store) InsertHoldTx(ctx context.Context, tx *sql.Tx, hold model.Hold) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO holds (hold_id, show_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		hold.HoldID, hold.ShowID, hold.ExpiresAt, hold.CreatedAt,
	); err != nil {
		return err
	}

	query := `INSERT INTO hold_seats (hold_id, seat_id, seat_order) VALUES `
	args := make([]interface{}, 0, len(hold.SeatIDs)*3)
	for i, sid := range hold.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, hold.HoldID, sid, i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// LockHoldTx locks (SELECT ... FOR UPDATE) and returns the hold row for
// holdID scoped to showID, or nil if no such hold exists for that show.
func (s *Store) LockHoldTx(ctx context.Context, tx *sql.Tx, showID, holdID string) (*model.Hold, error) {
	var hold model.Hold
	err := tx.QueryRowContext(ctx,
		`SELECT hold_id, show_id, expires_at, created_at FROM holds
		 WHERE hold_id = ? AND show_id = ? FOR UPDATE`,
		holdID, showID,
	).Scan(&hold.HoldID, &hold.ShowID, &hold.ExpiresAt, &hold.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	hold.ExpiresAt = hold.ExpiresAt.UTC()
	hold.CreatedAt = hold.CreatedAt.UTC()

	seatIDs, err := s.holdSeatIDsTx(ctx, tx, holdID)
	if err != nil {
		return nil, err
	}
	hold.SeatIDs = seatIDs
	return &hold, nil
}

func (s *Store) holdSeatIDsTx(ctx context.Context, tx *sql.Tx, holdID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_id FROM hold_seats WHERE hold_id = ? ORDER BY seat_order`, holdID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		out = append(out, sid)
	}
	return out, rows.Err()
}

// DeleteHoldTx removes a hold row; hold_seats cascades via its foreign key.
func (s *Store) DeleteHoldTx(ctx context.Context, tx *sql.Tx, holdID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE hold_id = ?`, holdID)
	return err
}

// ListExpiredHoldsTx returns every hold (across all shows) whose deadline
// has passed as of now, ordered by hold_id for a stable lock order across
// reaper ticks.
func (s *Store) ListExpiredHoldsTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Hold, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT hold_id, show_id, expires_at, created_at FROM holds WHERE expires_at <= ? ORDER BY hold_id`,
		now,
	)
	if err != nil {
		return nil, err
	}
	var holds []model.Hold
	for rows.Next() {
		var h model.Hold
		if err := rows.Scan(&h.HoldID, &h.ShowID, &h.ExpiresAt, &h.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		h.ExpiresAt = h.ExpiresAt.UTC()
		h.CreatedAt = h.CreatedAt.UTC()
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range holds {
		seatIDs, err := s.holdSeatIDsTx(ctx, tx, holds[i].HoldID)
		if err != nil {
			return nil, err
		}
		holds[i].SeatIDs = seatIDs
	}
	return holds, nil
}

// ---- Bookings ---------------------------------------------------------------

// InsertBookingTx inserts a booking row and its ordered seat_ids.
func (s *Store) InsertBookingTx(ctx context.Context, tx *sql.Tx, booking model.Booking) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (booking_id, show_id, booked_at) VALUES (?, ?, ?)`,
		booking.BookingID, booking.ShowID, booking.BookedAt,
	); err != nil {
		return err
	}

	query := `INSERT INTO booking_seats (booking_id, seat_id, seat_order) VALUES `
	args := make([]interface{}, 0, len(booking.SeatIDs)*3)
	for i, sid := range booking.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, booking.BookingID, sid, i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetBookingTx looks up a booking by (show_id, booking_id), used for
// idempotent replay when the originating hold row is already gone.
func (s *Store) GetBookingTx(ctx context.Context, tx *sql.Tx, showID, bookingID string) (*model.Booking, error) {
	var b model.Booking
	err := tx.QueryRowContext(ctx,
		`SELECT booking_id, show_id, booked_at FROM bookings WHERE booking_id = ? AND show_id = ?`,
		bookingID, showID,
	).Scan(&b.BookingID, &b.ShowID, &b.BookedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	b.BookedAt = b.BookedAt.UTC()

	rows, err := tx.QueryContext(ctx,
		`SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_order`, bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		b.SeatIDs = append(b.SeatIDs, sid)
	}
	return &b, rows.Err()
}

// ---- Administrative reset ----------------------------------------------------

// ResetAllTx clears every hold and booking and resets every seat to
// AVAILABLE, across all shows, returning the counts affected.
func (s *Store) ResetAllTx(ctx context.Context, tx *sql.Tx) (holdsCleared, bookingsCleared, seatsReset int64, err error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM holds`)
	if err != nil {
		return 0, 0, 0, err
	}
	holdsCleared, err = res.RowsAffected()
	if err != nil {
		return 0, 0, 0, err
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM bookings`)
	if err != nil {
		return 0, 0, 0, err
	}
	bookingsCleared, err = res.RowsAffected()
	if err != nil {
		return 0, 0, 0, err
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE seats SET status = ?, hold_id = NULL, hold_expires_at = NULL`, string(model.SeatAvailable),
	)
	if err != nil {
		return 0, 0, 0, err
	}
	seatsReset, err = res.RowsAffected()
	return holdsCleared, bookingsCleared, seatsReset, err
}

// ---- helpers ------------------------------------------------------------------

func inClause(values []string) (string, []interface{}) {
	placeholders := make([]byte, 0, len(values)*2)
	args := make([]interface{}, 0, len(values))
	for i, v := range values {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, v)
	}
	return string(placeholders), args
}
