package models

// CanonicalRecord is the server's acknowledged state of an owned capsule as
// parsed by the codec.
type CanonicalRecord struct {
	SyncID int64
	Etag   string
	Name   string
	Lat    float64
	Lng    float64
}

// DeleteResult classifies the server's answer to a delete-by-sync-id
// request. NotFound is treated the same as Deleted by the sync engine
// (idempotent delete).
type DeleteResult int

const (
	DeleteResultDeleted DeleteResult = iota
	DeleteResultNotFound
)
