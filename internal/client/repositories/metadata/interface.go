package metadata

import (
	"context"
)

// Repository is a small key-value store for account-scoped metadata such as
// the last-confirmed collection ctag and the cached access token.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
