// Package ownerships provides the SQLite-backed repository for Ownership rows.
package ownerships

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

func (r *SQLiteRepository) Insert(ctx context.Context, o *models.Ownership) (int64, error) {
	query := `INSERT INTO ownerships (capsule_id, account, etag, dirty, deleted) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, o.CapsuleID, o.Account, o.Etag, o.Dirty, o.Deleted)
	if err != nil {
		return 0, fmt.Errorf("failed to insert ownership: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Ownership, error) {
	query := `SELECT id, capsule_id, account, etag, dirty, deleted FROM ownerships WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) GetByCapsuleAndAccount(ctx context.Context, capsuleID int64, account string) (*models.Ownership, error) {
	query := `SELECT id, capsule_id, account, etag, dirty, deleted FROM ownerships WHERE capsule_id = ? AND account = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, capsuleID, account))
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.Ownership, error) {
	o := &models.Ownership{}
	err := row.Scan(&o.ID, &o.CapsuleID, &o.Account, &o.Etag, &o.Dirty, &o.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) ListWithCapsules(ctx context.Context, account string, dirtyOnly bool) ([]models.OwnedCapsule, error) {
	query := `
		SELECT o.id, o.capsule_id, o.account, o.etag, o.dirty, o.deleted,
			c.sync_id, c.name, c.lat, c.lng
		FROM ownerships o
		JOIN capsules c ON c.id = o.capsule_id
		WHERE o.account = ?`
	if dirtyOnly {
		query += ` AND o.dirty = 1`
	}
	query += ` ORDER BY o.id`

	rows, err := r.db.QueryContext(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("failed to select ownerships: %w", err)
	}
	defer rows.Close()

	var result []models.OwnedCapsule
	for rows.Next() {
		var item models.OwnedCapsule
		if err := rows.Scan(
			&item.OwnershipID, &item.CapsuleID, &item.Account, &item.Etag, &item.Dirty, &item.Deleted,
			&item.SyncID, &item.Name, &item.Lat, &item.Lng,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkDeleted(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE ownerships SET deleted = 1, dirty = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark ownership deleted: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) SetServerState(ctx context.Context, id int64, etag string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE ownerships SET etag = ?, dirty = 0 WHERE id = ?`, etag, id)
	if err != nil {
		return false, fmt.Errorf("failed to store server state: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ownerships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ownership: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountByCapsule(ctx context.Context, capsuleID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ownerships WHERE capsule_id = ?`, capsuleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ownerships: %w", err)
	}
	return n, nil
}
