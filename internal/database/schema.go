package database

import (
	"context"
	"database/sql"
)

// statements creates the six tables the store needs (the four entity tables
// plus the hold_seats and booking_seats join tables) if they are not
// already present. The reference implementation relied on its ORM's
// create-all-on-boot behavior (SQLAlchemy's Base.metadata.create_all); this
// is the same idea expressed as plain SQL, consistent with the rest of the
// stack's hand-written queries rather than a migration framework.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS shows (
		show_id    VARCHAR(191) NOT NULL PRIMARY KEY,
		created_at DATETIME(6)  NOT NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS seats (
		show_id         VARCHAR(191) NOT NULL,
		seat_id         VARCHAR(191) NOT NULL,
		status          VARCHAR(16)  NOT NULL,
		hold_id         VARCHAR(36)  NULL,
		hold_expires_at DATETIME(6)  NULL,
		PRIMARY KEY (show_id, seat_id),
		KEY idx_seats_status (status),
		KEY idx_seats_hold_expires_at (hold_expires_at),
		CONSTRAINT fk_seats_show FOREIGN KEY (show_id) REFERENCES shows(show_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS holds (
		hold_id    VARCHAR(36)  NOT NULL PRIMARY KEY,
		show_id    VARCHAR(191) NOT NULL,
		expires_at DATETIME(6)  NOT NULL,
		created_at DATETIME(6)  NOT NULL,
		KEY idx_holds_show_id (show_id),
		KEY idx_holds_expires_at (expires_at),
		CONSTRAINT fk_holds_show FOREIGN KEY (show_id) REFERENCES shows(show_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS hold_seats (
		hold_id    VARCHAR(36)  NOT NULL,
		seat_id    VARCHAR(191) NOT NULL,
		seat_order INT          NOT NULL,
		PRIMARY KEY (hold_id, seat_id),
		CONSTRAINT fk_hold_seats_hold FOREIGN KEY (hold_id) REFERENCES holds(hold_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		booking_id VARCHAR(36)  NOT NULL PRIMARY KEY,
		show_id    VARCHAR(191) NOT NULL,
		booked_at  DATETIME(6)  NOT NULL,
		KEY idx_bookings_show_id (show_id),
		CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows(show_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id VARCHAR(36)  NOT NULL,
		seat_id    VARCHAR(191) NOT NULL,
		seat_order INT          NOT NULL,
		PRIMARY KEY (booking_id, seat_id),
		CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings(booking_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}

// Migrate creates the schema if it does not already exist. It is safe to
// call on every process start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
