package model

import "time"

// Show represents a single ticketed event — a screening, a concert, a match —
// identified by a caller-supplied opaque string rather than a database
// auto-increment ID. Its seat set is fixed at creation time and never
// changes afterward.
//
// Fields:
//
//	ShowID    – caller-supplied primary key, unique across the store.
//	CreatedAt – timestamp when the show was initialized.
type Show struct {
	ShowID    string    // shows.show_id
	CreatedAt time.Time // shows.created_at
}
