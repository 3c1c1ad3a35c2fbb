package models

// Ownership is a claim that an account owns a Capsule. Exactly one row
// references a given capsule per owning account.
type Ownership struct {
	// ID is the store-assigned local identifier.
	ID int64

	// CapsuleID references the owned Capsule row.
	CapsuleID int64

	// Account is the owning account identifier.
	Account string

	// Etag is the opaque per-record version token from the last server
	// acknowledgement. Empty until the first successful push.
	Etag string

	// Dirty marks a local change not yet acknowledged by the server.
	Dirty bool

	// Deleted is a local-only tombstone pending a server delete. The row is
	// physically removed only after a server round-trip confirms it.
	Deleted bool
}

// OwnedCapsule is an Ownership row joined with its Capsule's current field
// values, taken from a single point-in-time snapshot.
type OwnedCapsule struct {
	OwnershipID int64
	CapsuleID   int64
	Account     string
	Etag        string
	Dirty       bool
	Deleted     bool

	SyncID int64
	Name   string
	Lat    float64
	Lng    float64
}
