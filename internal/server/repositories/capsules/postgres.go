// Package capsules provides the PostgreSQL-backed repository for owned
// capsule records.
package capsules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/dbx"
	"github.com/dmitrijs2005/geocapsule/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, c *models.OwnedCapsule) (int64, error) {
	query := `
		INSERT INTO capsules (user_id, name, lat, lng, etag, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING sync_id`
	var syncID int64
	err := r.db.QueryRowContext(ctx, query, c.UserID, c.Name, c.Lat, c.Lng, c.Etag).Scan(&syncID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capsule: %w", err)
	}
	return syncID, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID string, syncID int64) (*models.OwnedCapsule, error) {
	query := `SELECT sync_id, user_id, name, lat, lng, etag, updated_at
		FROM capsules WHERE user_id = $1 AND sync_id = $2`
	row := r.db.QueryRowContext(ctx, query, userID, syncID)

	c := &models.OwnedCapsule{}
	err := row.Scan(&c.SyncID, &c.UserID, &c.Name, &c.Lat, &c.Lng, &c.Etag, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.OwnedCapsule) error {
	query := `UPDATE capsules SET name = $1, lat = $2, lng = $3, etag = $4, updated_at = now()
		WHERE user_id = $5 AND sync_id = $6`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Lat, c.Lng, c.Etag, c.UserID, c.SyncID)
	if err != nil {
		return fmt.Errorf("failed to update capsule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, userID string, syncID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM capsules WHERE user_id = $1 AND sync_id = $2`, userID, syncID)
	if err != nil {
		return false, fmt.Errorf("failed to delete capsule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.OwnedCapsule, error) {
	query := `SELECT sync_id, user_id, name, lat, lng, etag, updated_at
		FROM capsules WHERE user_id = $1 ORDER BY sync_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select capsules: %w", err)
	}
	defer rows.Close()

	var result []*models.OwnedCapsule
	for rows.Next() {
		var item models.OwnedCapsule
		if err := rows.Scan(&item.SyncID, &item.UserID, &item.Name, &item.Lat, &item.Lng, &item.Etag, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
