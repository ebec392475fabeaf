package engine

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-reservation/internal/queue"
	"github.com/iliyamo/cinema-seat-reservation/internal/store"
)

// fakeClock lets tests step time forward deterministically instead of
// sleeping on real wall-clock seconds.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// fakeIDs returns a fixed, test-supplied sequence of ids.
type fakeIDs struct {
	ids []string
	i   int
}

func (f *fakeIDs) New() string {
	id := f.ids[f.i]
	f.i++
	return id
}

type fakePublisher struct {
	events []queue.BookingConfirmedEvent
}

func (p *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func newTestEngine(t *testing.T, now time.Time, ids ...string) (*Engine, sqlmock.Sqlmock, *fakePublisher) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pub := &fakePublisher{}
	eng := New(store.New(db), &fakeClock{now: now}, &fakeIDs{ids: ids}, WithPublisher(pub))
	return eng, mock, pub
}

// qm turns a readable, arbitrarily-wrapped SQL fragment into a regex that
// matches regardless of the exact whitespace the store package happens to
// format its query strings with.
func qm(sqlText string) string {
	fields := strings.Fields(sqlText)
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(fields, `\s*`)
}

func TestInitializeShow_Success(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, mock, _ := newTestEngine(t, now)

	mock.ExpectBegin()
	mock.ExpectExec(qm(`INSERT INTO shows (show_id, created_at) VALUES (?, ?)`)).
		WithArgs("show-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(qm(`INSERT INTO seats (show_id, seat_id, status) VALUES (?, ?, ?),(?, ?, ?)`)).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	err := eng.InitializeShow(context.Background(), "show-1", []string{"A1", "A2"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitializeShow_Duplicate(t *testing.T) {
	now := time.Now().UTC()
	eng, mock, _ := newTestEngine(t, now)

	mock.ExpectBegin()
	mock.ExpectExec(qm(`INSERT INTO shows (show_id, created_at) VALUES (?, ?)`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := eng.InitializeShow(context.Background(), "show-1", []string{"A1"})
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, KindShowAlreadyExists, engErr.Kind)
}

func TestInitializeShow_RejectsDuplicateSeats(t *testing.T) {
	eng, _, _ := newTestEngine(t, time.Now().UTC())
	err := eng.InitializeShow(context.Background(), "show-1", []string{"A1", "A1"})
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, KindInvalidSeatIDs, engErr.Kind)
}

func TestHoldSeats_Success(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	eng, mock, _ := newTestEngine(t, now, "hold-1")

	mock.ExpectBegin()
	mock.ExpectQuery(qm(`SELECT 1 FROM shows WHERE show_id = ?`)).
		WithArgs("show-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(qm(`SELECT seat_id FROM seats WHERE show_id = ? AND seat_id IN (?, ?)`)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1").AddRow("A2"))

	seatCols := []string{"show_id", "seat_id", "status", "hold_id", "hold_expires_at"}
	mock.ExpectQuery(qm(`SELECT show_id, seat_id, status, hold_id, hold_expires_at
		 FROM seats WHERE show_id = ? AND seat_id = ? FOR UPDATE`)).
		WithArgs("show-1", "A1").
		WillReturnRows(sqlmock.NewRows(seatCols).AddRow("show-1", "A1", "AVAILABLE", nil, nil))
	mock.ExpectQuery(qm(`SELECT show_id, seat_id, status, hold_id, hold_expires_at
		 FROM seats WHERE show_id = ? AND seat_id = ? FOR UPDATE`)).
		WithArgs("show-1", "A2").
		WillReturnRows(sqlmock.NewRows(seatCols).AddRow("show-1", "A2", "AVAILABLE", nil, nil))

	mock.ExpectExec(qm(`INSERT INTO holds (hold_id, show_id, expires_at, created_at) VALUES (?, ?, ?, ?)`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(qm(`INSERT INTO hold_seats (hold_id, seat_id, seat_order) VALUES (?, ?, ?),(?, ?, ?)`)).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec(qm(`UPDATE seats SET status = ?, hold_id = ?, hold_expires_at = ?
		 WHERE show_id = ? AND seat_id IN (?, ?)`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	result, err := eng.HoldSeats(context.Background(), "show-1", []string{"A1", "A2"}, 300)
	require.NoError(t, err)
	assert.Equal(t, "hold-1", result.HoldID)
	assert.Equal(t, now.Add(300*time.Second), result.ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeats_Unavailable(t *testing.T) {
	now := time.Now().UTC()
	eng, mock, _ := newTestEngine(t, now, "hold-1")

	mock.ExpectBegin()
	mock.ExpectQuery(qm(`SELECT 1 FROM shows WHERE show_id = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(qm(`SELECT seat_id FROM seats WHERE show_id = ? AND seat_id IN (?)`)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1"))

	seatCols := []string{"show_id", "seat_id", "status", "hold_id", "hold_expires_at"}
	mock.ExpectQuery(qm(`SELECT show_id, seat_id, status, hold_id, hold_expires_at
		 FROM seats WHERE show_id = ? AND seat_id = ? FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(seatCols).AddRow("show-1", "A1", "HELD", "other-hold", nil))
	mock.ExpectRollback()

	_, err := eng.HoldSeats(context.Background(), "show-1", []string{"A1"}, 300)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, KindSeatsUnavailable, engErr.Kind)
	assert.Equal(t, []string{"A1"}, engErr.UnavailableSeatIDs)
}

func TestBookHold_Success(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(5 * time.Minute)
	eng, mock, pub := newTestEngine(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(qm(`SELECT hold_id, show_id, expires_at, created_at FROM holds
		 WHERE hold_id = ? AND show_id = ? FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"hold_id", "show_id", "expires_at", "created_at"}).
			AddRow("hold-1", "show-1", expires, now))
	mock.ExpectQuery(qm(`SELECT seat_id FROM hold_seats WHERE hold_id = ? ORDER BY seat_order`)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1"))

	seatCols := []string{"show_id", "seat_id", "status", "hold_id", "hold_expires_at"}
	mock.ExpectQuery(qm(`SELECT show_id, seat_id, status, hold_id, hold_expires_at
		 FROM seats WHERE show_id = ? AND seat_id = ? FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(seatCols).AddRow("show-1", "A1", "HELD", "hold-1", expires))

	mock.ExpectExec(qm(`INSERT INTO bookings (booking_id, show_id, booked_at) VALUES (?, ?, ?)`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(qm(`INSERT INTO booking_seats (booking_id, seat_id, seat_order) VALUES (?, ?, ?)`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(qm(`UPDATE seats SET status = ?, hold_id = NULL, hold_expires_at = NULL
		 WHERE show_id = ? AND seat_id IN (?)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm(`DELETE FROM holds WHERE hold_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := eng.BookHold(context.Background(), "show-1", "hold-1")
	require.NoError(t, err)
	assert.Equal(t, "hold-1", result.BookingID)
	assert.False(t, result.Replayed)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "hold-1", pub.events[0].BookingID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookHold_IdempotentReplay(t *testing.T) {
	now := time.Now().UTC()
	eng, mock, pub := newTestEngine(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(qm(`SELECT hold_id, show_id, expires_at, created_at FROM holds
		 WHERE hold_id = ? AND show_id = ? FOR UPDATE`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(qm(`SELECT booking_id, show_id, booked_at FROM bookings WHERE booking_id = ? AND show_id = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "show_id", "booked_at"}).
			AddRow("hold-1", "show-1", now))
	mock.ExpectQuery(qm(`SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_order`)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow("A1"))
	mock.ExpectCommit()

	result, err := eng.BookHold(context.Background(), "show-1", "hold-1")
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, []string{"A1"}, result.SeatIDs)
	assert.Empty(t, pub.events, "a replayed confirmation must not re-publish the event")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseHold_NotFound(t *testing.T) {
	eng, mock, _ := newTestEngine(t, time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectQuery(qm(`SELECT hold_id, show_id, expires_at, created_at FROM holds
		 WHERE hold_id = ? AND show_id = ? FOR UPDATE`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	released, err := eng.ReleaseHold(context.Background(), "show-1", "hold-1")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestResetAll(t *testing.T) {
	eng, mock, _ := newTestEngine(t, time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(qm(`DELETE FROM holds`)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(qm(`DELETE FROM bookings`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(qm(`UPDATE seats SET status = ?, hold_id = NULL, hold_expires_at = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 40))
	mock.ExpectCommit()

	summary, err := eng.ResetAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.HoldsCleared)
	assert.EqualValues(t, 2, summary.BookingsCleared)
	assert.EqualValues(t, 40, summary.SeatsReset)
}

