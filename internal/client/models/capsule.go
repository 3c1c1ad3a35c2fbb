// Package models defines client-side data models used by the GeoCapsule CLI
// and the local store.
package models

// Capsule is a canonical geotagged resource held in the local replica.
type Capsule struct {
	// ID is the store-assigned local identifier, stable for the life of the row.
	ID int64

	// SyncID is the server-assigned canonical identifier. Zero means the
	// server has not acknowledged this capsule yet. At most one local row
	// exists per non-zero SyncID.
	SyncID int64

	// Name is the user-visible capsule name.
	Name string

	// Lat and Lng are the capsule's coordinates in degrees.
	Lat float64
	Lng float64
}

// CapsuleFields carries the user-editable capsule attributes.
type CapsuleFields struct {
	Name string
	Lat  float64
	Lng  float64
}
