// Package discoveries provides the SQLite-backed repository for Discovery rows.
package discoveries

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

func (r *SQLiteRepository) Insert(ctx context.Context, d *models.Discovery) (int64, error) {
	query := `INSERT INTO discoveries (capsule_id, account, etag, dirty, favorite, rating) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, d.CapsuleID, d.Account, d.Etag, d.Dirty, d.Favorite, d.Rating)
	if err != nil {
		return 0, fmt.Errorf("failed to insert discovery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetByCapsuleAndAccount(ctx context.Context, capsuleID int64, account string) (*models.Discovery, error) {
	query := `SELECT id, capsule_id, account, etag, dirty, favorite, rating
		FROM discoveries WHERE capsule_id = ? AND account = ?`
	row := r.db.QueryRowContext(ctx, query, capsuleID, account)

	d := &models.Discovery{}
	err := row.Scan(&d.ID, &d.CapsuleID, &d.Account, &d.Etag, &d.Dirty, &d.Favorite, &d.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, capsuleID int64, account string, patch models.DiscoveryPatch) (bool, error) {
	query := `UPDATE discoveries SET dirty = 1`
	args := []any{}
	if patch.Favorite != nil {
		query += `, favorite = ?`
		args = append(args, *patch.Favorite)
	}
	if patch.Rating != nil {
		query += `, rating = ?`
		args = append(args, *patch.Rating)
	}
	query += ` WHERE capsule_id = ? AND account = ?`
	args = append(args, capsuleID, account)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update discovery: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) CountByCapsule(ctx context.Context, capsuleID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM discoveries WHERE capsule_id = ?`, capsuleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count discoveries: %w", err)
	}
	return n, nil
}
