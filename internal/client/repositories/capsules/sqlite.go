// Package capsules provides the SQLite-backed repository for Capsule rows.
package capsules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Capsule) (int64, error) {
	query := `INSERT INTO capsules (sync_id, name, lat, lng) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, c.SyncID, c.Name, c.Lat, c.Lng)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capsule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Capsule, error) {
	query := `SELECT id, sync_id, name, lat, lng FROM capsules WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) GetBySyncID(ctx context.Context, syncID int64) (*models.Capsule, error) {
	query := `SELECT id, sync_id, name, lat, lng FROM capsules WHERE sync_id = ? AND sync_id <> 0`
	return r.scanOne(r.db.QueryRowContext(ctx, query, syncID))
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.Capsule, error) {
	c := &models.Capsule{}
	err := row.Scan(&c.ID, &c.SyncID, &c.Name, &c.Lat, &c.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateName(ctx context.Context, id int64, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE capsules SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return false, fmt.Errorf("failed to rename capsule: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) UpdateFields(ctx context.Context, id int64, fields models.CapsuleFields) error {
	query := `UPDATE capsules SET name = ?, lat = ?, lng = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, fields.Name, fields.Lat, fields.Lng, id)
	if err != nil {
		return fmt.Errorf("failed to update capsule fields: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetSyncID(ctx context.Context, id int64, syncID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE capsules SET sync_id = ? WHERE id = ?`, syncID, id)
	if err != nil {
		return fmt.Errorf("failed to set capsule sync id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM capsules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete capsule: %w", err)
	}
	return nil
}
