// Package collections provides the PostgreSQL-backed repository for
// collection-version counters.
package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/geocapsule/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetCtag(ctx context.Context, userID, collection string) (int64, error) {
	var ctag int64
	err := r.db.QueryRowContext(ctx,
		`SELECT ctag FROM collections WHERE user_id = $1 AND collection = $2`,
		userID, collection).Scan(&ctag)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get ctag: %w", err)
	}
	return ctag, nil
}

func (r *PostgresRepository) Bump(ctx context.Context, userID, collection string) (int64, error) {
	query := `
		INSERT INTO collections (user_id, collection, ctag) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, collection) DO UPDATE SET ctag = collections.ctag + 1
		RETURNING ctag`
	var ctag int64
	if err := r.db.QueryRowContext(ctx, query, userID, collection).Scan(&ctag); err != nil {
		return 0, fmt.Errorf("failed to bump ctag: %w", err)
	}
	return ctag, nil
}
