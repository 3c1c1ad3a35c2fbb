package capsules

import (
	"context"

	"github.com/dmitrijs2005/geocapsule/internal/server/models"
)

// Repository describes persistence operations for owned capsule records.
type Repository interface {
	// Insert stores a new capsule and returns its server-assigned sync id.
	Insert(ctx context.Context, c *models.OwnedCapsule) (int64, error)

	// GetByID returns a user's capsule by sync id, or common.ErrNotFound.
	GetByID(ctx context.Context, userID string, syncID int64) (*models.OwnedCapsule, error)

	// Update overwrites a capsule's fields and etag.
	Update(ctx context.Context, c *models.OwnedCapsule) error

	// DeleteByID removes a user's capsule; reports whether a row existed.
	DeleteByID(ctx context.Context, userID string, syncID int64) (bool, error)

	// ListByUser returns all of a user's capsules.
	ListByUser(ctx context.Context, userID string) ([]*models.OwnedCapsule, error)
}
