// Package client defines the codec/transport collaborator consumed by the
// sync engine and the auth service. The engine treats it as a black box:
// requests go out, typed responses or sentinel errors come back.
package client

import (
	"context"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
)

type Client interface {
	Close() error

	// Register creates a new account on the server.
	Register(ctx context.Context, account, password string) error

	// Login authenticates and returns a bearer token.
	Login(ctx context.Context, account, password string) (string, error)

	// GetCollectionTag returns the server's current collection-version
	// token for the named collection.
	GetCollectionTag(ctx context.Context, token, collection string) (string, error)

	// CreateOrUpdateOwned pushes an owned capsule. A zero syncID creates;
	// a non-zero syncID updates, with etag carrying the last known version
	// token for optimistic update semantics.
	CreateOrUpdateOwned(ctx context.Context, token string, syncID int64, fields models.CapsuleFields, etag string) (*models.CanonicalRecord, error)

	// DeleteOwned deletes an owned capsule by sync id. NotFound is a valid
	// outcome, not an error (idempotent delete).
	DeleteOwned(ctx context.Context, token string, syncID int64) (models.DeleteResult, error)

	// ListCollection fetches the full remote listing for a collection.
	// Used only by full reconciliation.
	ListCollection(ctx context.Context, token, collection string) ([]*models.CanonicalRecord, error)
}
