package collections

import "context"

// Repository manages the per-(user, collection) version counter backing the
// ctag. Bump must run in the same transaction as the member write it
// accounts for.
type Repository interface {
	// GetCtag returns the current counter, 0 when the slot does not exist yet.
	GetCtag(ctx context.Context, userID, collection string) (int64, error)

	// Bump increments the counter (creating the slot if needed) and returns
	// the new value.
	Bump(ctx context.Context, userID, collection string) (int64, error)
}
