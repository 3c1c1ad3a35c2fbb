package discoveries

import (
	"context"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
)

// Repository describes operations for Discovery rows.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Insert adds a new discovery row and returns its local id.
	Insert(ctx context.Context, d *models.Discovery) (int64, error)

	// GetByCapsuleAndAccount returns the discovery row for a (capsule,
	// account) pair, or common.ErrNotFound.
	GetByCapsuleAndAccount(ctx context.Context, capsuleID int64, account string) (*models.Discovery, error)

	// Update applies a partial patch to exactly one discovery row and sets
	// dirty=1; reports whether a row was affected.
	Update(ctx context.Context, capsuleID int64, account string, patch models.DiscoveryPatch) (bool, error)

	// CountByCapsule returns the number of discovery rows referencing a capsule.
	CountByCapsule(ctx context.Context, capsuleID int64) (int, error)
}
