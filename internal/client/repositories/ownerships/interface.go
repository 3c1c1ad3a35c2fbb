package ownerships

import (
	"context"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
)

// Repository describes operations for Ownership rows.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Insert adds a new ownership row and returns its local id.
	Insert(ctx context.Context, o *models.Ownership) (int64, error)

	// GetByID returns an ownership by its local id, or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Ownership, error)

	// GetByCapsuleAndAccount returns the ownership row for a (capsule,
	// account) pair, or common.ErrNotFound.
	GetByCapsuleAndAccount(ctx context.Context, capsuleID int64, account string) (*models.Ownership, error)

	// ListWithCapsules returns all ownership rows for the account joined
	// with their capsule's current field values, optionally filtered to
	// dirty rows. The join is a single statement, so readers never observe
	// a half-committed linked insert.
	ListWithCapsules(ctx context.Context, account string, dirtyOnly bool) ([]models.OwnedCapsule, error)

	// MarkDeleted sets deleted=1 and dirty=1; reports whether a row was
	// affected. The row itself is kept as a tombstone.
	MarkDeleted(ctx context.Context, id int64) (bool, error)

	// SetServerState stores the server-confirmed etag and clears dirty.
	SetServerState(ctx context.Context, id int64, etag string) (bool, error)

	// DeleteByID physically removes an ownership row.
	DeleteByID(ctx context.Context, id int64) error

	// CountByCapsule returns the number of ownership rows referencing a capsule.
	CountByCapsule(ctx context.Context, capsuleID int64) (int, error)
}
