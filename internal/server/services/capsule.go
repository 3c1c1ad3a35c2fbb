package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/geocapsule/internal/api"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/dbx"
	"github.com/dmitrijs2005/geocapsule/internal/server/models"
	"github.com/dmitrijs2005/geocapsule/internal/server/repositories/capsules"
	"github.com/dmitrijs2005/geocapsule/internal/server/repositories/collections"
	"github.com/google/uuid"
)

// CapsuleService implements the capsule collection operations. Every write
// bumps the owner's collection counter in the same transaction, so the ctag
// observed by clients changes exactly when a member record changes.
type CapsuleService struct {
	db *sql.DB
}

func NewCapsuleService(db *sql.DB) *CapsuleService {
	return &CapsuleService{db: db}
}

// GetCtag returns the current collection tag as an opaque string. Only the
// ownerships collection exists; anything else yields common.ErrNotFound.
func (s *CapsuleService) GetCtag(ctx context.Context, userID string, collection string) (string, error) {
	if collection != common.CollectionOwnerships {
		return "", common.ErrNotFound
	}
	ctag, err := collections.NewPostgresRepository(s.db).GetCtag(ctx, userID, collection)
	if err != nil {
		return "", fmt.Errorf("error getting ctag: %w", err)
	}
	return strconv.FormatInt(ctag, 10), nil
}

// List returns all of the user's capsules in the collection.
func (s *CapsuleService) List(ctx context.Context, userID string, collection string) ([]*models.OwnedCapsule, error) {
	if collection != common.CollectionOwnerships {
		return nil, common.ErrNotFound
	}
	items, err := capsules.NewPostgresRepository(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing capsules: %w", err)
	}
	return items, nil
}

// CreateOrUpdate stores a capsule record. A zero sync id means create: the
// server assigns the id and a fresh etag. A non-zero sync id means update;
// the submitted etag must match the stored one or the call fails with
// common.ErrVersionConflict.
func (s *CapsuleService) CreateOrUpdate(ctx context.Context, userID string, req *api.UpsertCapsuleRequest) (*api.CapsuleRecord, error) {
	var saved *models.OwnedCapsule

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := capsules.NewPostgresRepository(tx)
		colRepo := collections.NewPostgresRepository(tx)

		c := &models.OwnedCapsule{
			UserID: userID,
			Name:   req.Name,
			Lat:    req.Lat,
			Lng:    req.Lng,
			Etag:   uuid.NewString(),
		}

		if req.SyncID == 0 {
			syncID, err := repo.Insert(ctx, c)
			if err != nil {
				return err
			}
			c.SyncID = syncID
		} else {
			current, err := repo.GetByID(ctx, userID, req.SyncID)
			if err != nil {
				return err
			}
			if current.Etag != req.Etag {
				return common.ErrVersionConflict
			}
			c.SyncID = req.SyncID
			if err := repo.Update(ctx, c); err != nil {
				return err
			}
		}

		if _, err := colRepo.Bump(ctx, userID, common.CollectionOwnerships); err != nil {
			return err
		}

		saved = c
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) || errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error saving capsule: %w", err)
	}

	return &api.CapsuleRecord{
		SyncID: saved.SyncID,
		Name:   saved.Name,
		Lat:    saved.Lat,
		Lng:    saved.Lng,
		Etag:   saved.Etag,
	}, nil
}

// Delete removes a capsule. Deleting an absent record is not an error; the
// ctag is bumped only when a row was actually removed. Reports whether the
// record existed.
func (s *CapsuleService) Delete(ctx context.Context, userID string, syncID int64) (bool, error) {
	var existed bool

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		existed, err = capsules.NewPostgresRepository(tx).DeleteByID(ctx, userID, syncID)
		if err != nil {
			return err
		}
		if !existed {
			return nil
		}
		_, err = collections.NewPostgresRepository(tx).Bump(ctx, userID, common.CollectionOwnerships)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("error deleting capsule: %w", err)
	}
	return existed, nil
}
