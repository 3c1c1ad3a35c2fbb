// Package store implements the transactional local store: three linked
// tables (capsules, ownerships, discoveries) plus an account-scoped metadata
// slot for collection ctags. Every operation spanning multiple table writes
// runs inside a single transaction, so a failure mid-sequence never leaves
// partially linked rows visible to readers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/geocapsule/internal/client/migrations"
	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/client/repositories/capsules"
	"github.com/dmitrijs2005/geocapsule/internal/client/repositories/discoveries"
	"github.com/dmitrijs2005/geocapsule/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/geocapsule/internal/client/repositories/ownerships"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/dbx"
	"github.com/pressly/goose/v3"
)

// Store is the local replica handle. It is safe for concurrent use by the
// interactive path and the sync path; construct it once and pass it
// explicitly to consumers.
type Store struct {
	db *sql.DB
}

// New wraps an already opened database handle. The caller is responsible
// for running migrations (see Open).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the SQLite database at dsn, runs the embedded migrations, and
// returns a ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return New(db), nil
}

// RunMigrations sets up goose with the embedded migrations and applies them.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertOwnership inserts a new capsule (sync id 0) and an ownership row
// referencing it, as a single atomic transaction. The ownership starts
// dirty so the next sync pass pushes it. Used for locally originated
// resources.
func (s *Store) InsertOwnership(ctx context.Context, fields models.CapsuleFields, account string) (capsuleID int64, ownershipID int64, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		capsuleRepo := capsules.NewSQLiteRepository(tx)
		ownershipRepo := ownerships.NewSQLiteRepository(tx)

		capsuleID, err = capsuleRepo.Insert(ctx, &models.Capsule{
			Name: fields.Name, Lat: fields.Lat, Lng: fields.Lng,
		})
		if err != nil {
			return err
		}

		ownershipID, err = ownershipRepo.Insert(ctx, &models.Ownership{
			CapsuleID: capsuleID, Account: account, Dirty: true,
		})
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert ownership: %w", err)
	}
	return capsuleID, ownershipID, nil
}

// InsertDiscovery links an account to a capsule it found. The capsule is
// looked up by sync id first; only if absent is a new row inserted. This
// lookup-insert-link sequence is the dedup enforcement point and runs as
// one transaction. Returns common.ErrDuplicateRecord if the account already
// discovered the capsule.
func (s *Store) InsertDiscovery(ctx context.Context, fields models.CapsuleFields, syncID int64, account string) (capsuleID int64, discoveryID int64, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		capsuleRepo := capsules.NewSQLiteRepository(tx)
		discoveryRepo := discoveries.NewSQLiteRepository(tx)

		capsuleID, err = s.findOrInsertCapsule(ctx, capsuleRepo, fields, syncID)
		if err != nil {
			return err
		}

		if _, err := discoveryRepo.GetByCapsuleAndAccount(ctx, capsuleID, account); err == nil {
			return common.ErrDuplicateRecord
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		discoveryID, err = discoveryRepo.Insert(ctx, &models.Discovery{
			CapsuleID: capsuleID, Account: account, Dirty: true,
		})
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert discovery: %w", err)
	}
	return capsuleID, discoveryID, nil
}

func (s *Store) findOrInsertCapsule(ctx context.Context, repo capsules.Repository, fields models.CapsuleFields, syncID int64) (int64, error) {
	if syncID != 0 {
		existing, err := repo.GetBySyncID(ctx, syncID)
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return 0, err
		}
	}
	return repo.Insert(ctx, &models.Capsule{
		SyncID: syncID, Name: fields.Name, Lat: fields.Lat, Lng: fields.Lng,
	})
}

// GetCapsule returns a capsule by local id, or common.ErrNotFound.
func (s *Store) GetCapsule(ctx context.Context, id int64) (*models.Capsule, error) {
	return capsules.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

// GetOwnerships returns the account's ownership rows joined with capsule
// fields, optionally filtered to dirty rows. The join is taken from a
// single point-in-time snapshot.
func (s *Store) GetOwnerships(ctx context.Context, account string, dirtyOnly bool) ([]models.OwnedCapsule, error) {
	return ownerships.NewSQLiteRepository(s.db).ListWithCapsules(ctx, account, dirtyOnly)
}

// GetDiscovery returns the discovery row for a (capsule, account) pair, or
// common.ErrNotFound.
func (s *Store) GetDiscovery(ctx context.Context, capsuleID int64, account string) (*models.Discovery, error) {
	return discoveries.NewSQLiteRepository(s.db).GetByCapsuleAndAccount(ctx, capsuleID, account)
}

// UpdateDiscovery applies a partial patch (favorite, rating) to exactly one
// discovery row and marks it dirty. Reports whether a row was affected.
func (s *Store) UpdateDiscovery(ctx context.Context, capsuleID int64, account string, patch models.DiscoveryPatch) (bool, error) {
	return discoveries.NewSQLiteRepository(s.db).Update(ctx, capsuleID, account, patch)
}

// UpdateCapsuleName renames a capsule and marks the owning account's
// ownership rows dirty so the change is pushed.
func (s *Store) UpdateCapsuleName(ctx context.Context, id int64, name string) (affected bool, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		affected, err = capsules.NewSQLiteRepository(tx).UpdateName(ctx, id, name)
		if err != nil || !affected {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE ownerships SET dirty = 1 WHERE capsule_id = ?`, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to rename capsule: %w", err)
	}
	return affected, nil
}

// MarkOwnershipDeleted sets the local-only tombstone (deleted=1, dirty=1).
// The row is physically removed only after a server round-trip confirms the
// delete.
func (s *Store) MarkOwnershipDeleted(ctx context.Context, id int64) (bool, error) {
	return ownerships.NewSQLiteRepository(s.db).MarkDeleted(ctx, id)
}

// DeleteOwnershipAndCapsuleIfOrphaned physically removes an ownership row
// and removes its capsule if no other ownership or discovery references it.
// Used only by the sync engine after server confirmation.
func (s *Store) DeleteOwnershipAndCapsuleIfOrphaned(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ownershipRepo := ownerships.NewSQLiteRepository(tx)
		capsuleRepo := capsules.NewSQLiteRepository(tx)
		discoveryRepo := discoveries.NewSQLiteRepository(tx)

		o, err := ownershipRepo.GetByID(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := ownershipRepo.DeleteByID(ctx, id); err != nil {
			return err
		}

		no, err := ownershipRepo.CountByCapsule(ctx, o.CapsuleID)
		if err != nil {
			return err
		}
		nd, err := discoveryRepo.CountByCapsule(ctx, o.CapsuleID)
		if err != nil {
			return err
		}
		if no == 0 && nd == 0 {
			if err := capsuleRepo.DeleteByID(ctx, o.CapsuleID); err != nil {
				return err
			}
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete ownership: %w", err)
	}
	return removed, nil
}

// ApplySyncResult records a successful push: stores the server-assigned
// sync id on the capsule, the new etag on the ownership, and clears dirty,
// as one transaction. Reports whether the ownership row existed.
func (s *Store) ApplySyncResult(ctx context.Context, ownershipID int64, syncID int64, etag string) (bool, error) {
	var applied bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ownershipRepo := ownerships.NewSQLiteRepository(tx)
		capsuleRepo := capsules.NewSQLiteRepository(tx)

		o, err := ownershipRepo.GetByID(ctx, ownershipID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := capsuleRepo.SetSyncID(ctx, o.CapsuleID, syncID); err != nil {
			return err
		}
		applied, err = ownershipRepo.SetServerState(ctx, ownershipID, etag)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply sync result: %w", err)
	}
	return applied, nil
}

// ApplyRemoteRecord upserts an ownership and its capsule from a server
// canonical record, deduplicating the capsule by sync id. The resulting
// ownership is clean (dirty=0) and carries the server etag. Used by the
// full reconciliation path.
func (s *Store) ApplyRemoteRecord(ctx context.Context, account string, rec *models.CanonicalRecord) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		capsuleRepo := capsules.NewSQLiteRepository(tx)
		ownershipRepo := ownerships.NewSQLiteRepository(tx)

		fields := models.CapsuleFields{Name: rec.Name, Lat: rec.Lat, Lng: rec.Lng}

		capsule, err := capsuleRepo.GetBySyncID(ctx, rec.SyncID)
		var capsuleID int64
		switch {
		case err == nil:
			capsuleID = capsule.ID
			if err := capsuleRepo.UpdateFields(ctx, capsuleID, fields); err != nil {
				return err
			}
		case errors.Is(err, common.ErrNotFound):
			capsuleID, err = capsuleRepo.Insert(ctx, &models.Capsule{
				SyncID: rec.SyncID, Name: rec.Name, Lat: rec.Lat, Lng: rec.Lng,
			})
			if err != nil {
				return err
			}
		default:
			return err
		}

		o, err := ownershipRepo.GetByCapsuleAndAccount(ctx, capsuleID, account)
		switch {
		case err == nil:
			_, err = ownershipRepo.SetServerState(ctx, o.ID, rec.Etag)
			return err
		case errors.Is(err, common.ErrNotFound):
			_, err = ownershipRepo.Insert(ctx, &models.Ownership{
				CapsuleID: capsuleID, Account: account, Etag: rec.Etag,
			})
			return err
		default:
			return err
		}
	})
	if err != nil {
		return fmt.Errorf("failed to apply remote record: %w", err)
	}
	return nil
}

func ctagKey(account, collection string) string {
	return fmt.Sprintf("ctag/%s/%s", account, collection)
}

// GetCollectionTag returns the last-confirmed ctag for (account,
// collection), or "" when none has been stored yet.
func (s *Store) GetCollectionTag(ctx context.Context, account, collection string) (string, error) {
	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, ctagKey(account, collection))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// SetCollectionTag persists the ctag for (account, collection). Only the
// sync engine's success path may call this.
func (s *Store) SetCollectionTag(ctx context.Context, account, collection, ctag string) error {
	return metadata.NewSQLiteRepository(s.db).Set(ctx, ctagKey(account, collection), []byte(ctag))
}

// Metadata exposes the raw key-value slot (cached tokens and the like).
func (s *Store) Metadata() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}
