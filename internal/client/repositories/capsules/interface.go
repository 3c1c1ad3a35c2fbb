package capsules

import (
	"context"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
)

// Repository describes CRUD operations for Capsule rows.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Insert adds a new capsule row and returns its local id.
	Insert(ctx context.Context, c *models.Capsule) (int64, error)

	// GetByID returns a capsule by its local id, or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Capsule, error)

	// GetBySyncID returns the capsule holding the given non-zero sync id,
	// or common.ErrNotFound. This is the dedup lookup.
	GetBySyncID(ctx context.Context, syncID int64) (*models.Capsule, error)

	// UpdateName renames a capsule; reports whether a row was affected.
	UpdateName(ctx context.Context, id int64, name string) (bool, error)

	// UpdateFields overwrites the user-editable fields of a capsule.
	UpdateFields(ctx context.Context, id int64, fields models.CapsuleFields) error

	// SetSyncID stores the server-assigned sync id on a capsule.
	SetSyncID(ctx context.Context, id int64, syncID int64) error

	// DeleteByID physically removes a capsule row.
	DeleteByID(ctx context.Context, id int64) error
}
