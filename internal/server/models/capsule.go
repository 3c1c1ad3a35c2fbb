package models

import "time"

// OwnedCapsule is the authoritative record of a user-owned capsule. SyncID
// is the server-assigned canonical identifier handed back to clients; Etag
// changes on every write and is the per-record version token.
type OwnedCapsule struct {
	SyncID    int64
	UserID    string
	Name      string
	Lat       float64
	Lng       float64
	Etag      string
	UpdatedAt time.Time
}
