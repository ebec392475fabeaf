// Package idgen generates the opaque hold and booking identifiers the
// engine hands out to clients.
package idgen

import "github.com/google/uuid"

// IDSource returns a collision-resistant opaque identifier rendered as a
// canonical textual form suitable for transport over JSON.
type IDSource interface {
	New() string
}

// UUIDSource is the production IDSource, backed by random (v4) UUIDs.
type UUIDSource struct{}

// New returns a freshly generated UUID in its canonical 36-character form.
func (UUIDSource) New() string {
	return uuid.New().String()
}
