package models

// Rating is the tri-state rating an account gives a discovered capsule.
type Rating int8

const (
	RatingDown    Rating = -1
	RatingNeutral Rating = 0
	RatingUp      Rating = 1
)

// Discovery records that an account has found a Capsule. Exactly one row
// exists per (Capsule, account) pair.
type Discovery struct {
	ID        int64
	CapsuleID int64
	Account   string
	Etag      string
	Dirty     bool
	Favorite  bool
	Rating    Rating
}

// DiscoveryPatch is a partial update to a Discovery row. Nil fields are left
// unchanged; applying a patch marks the row dirty.
type DiscoveryPatch struct {
	Favorite *bool
	Rating   *Rating
}
