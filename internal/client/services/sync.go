package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/geocapsule/internal/client/client"
	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/client/store"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/logging"
)

// ErrSyncInProgress is returned when a pass is triggered for an account that
// already has one in flight. The trigger is rejected rather than queued;
// scheduling retries belongs to the caller.
var ErrSyncInProgress = errors.New("sync already in progress for account")

// PassResult summarizes one execution of the sync state machine for one
// account. CtagAdvanced is true only when every row of the pass succeeded
// and the stored ctag was moved to the re-fetched remote value.
type PassResult struct {
	FullReconcile bool

	Pushed  int // create-or-update requests acknowledged
	Deleted int // rows removed after a confirmed (or local-only) delete
	Applied int // server records applied locally (reconcile only)
	Removed int // local rows dropped because the server deleted them
	Failed  int // rows left dirty for the next pass

	CtagAdvanced bool
}

func (r *PassResult) ok() bool { return r.Failed == 0 }

// SyncEngine reconciles one account's ownership collection with the server.
// It decides between a cheap one-way dirty push and a full two-way
// reconciliation by comparing collection-version tokens, and never advances
// the stored ctag on partial failure.
type SyncEngine struct {
	client client.Client
	store  *store.Store
	tokens TokenProvider
	logger logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewSyncEngine constructs a SyncEngine. The store handle is passed in
// explicitly; the engine owns no global state.
func NewSyncEngine(client client.Client, store *store.Store, tokens TokenProvider, logger logging.Logger) *SyncEngine {
	return &SyncEngine{
		client:   client,
		store:    store,
		tokens:   tokens,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

func (e *SyncEngine) acquire(account string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[account]; busy {
		return false
	}
	e.inflight[account] = struct{}{}
	return true
}

func (e *SyncEngine) release(account string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, account)
}

// Sync runs one pass for the account. At most one pass per account runs at
// a time; a concurrent trigger gets ErrSyncInProgress. A cancelled pass
// behaves like a failed one: the stored ctag stays put and still-dirty rows
// are retried by the next pass.
func (e *SyncEngine) Sync(ctx context.Context, account string) (*PassResult, error) {
	if !e.acquire(account) {
		return nil, ErrSyncInProgress
	}
	defer e.release(account)

	collection := common.CollectionOwnerships

	token, err := e.tokens.GetToken(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("auth failure: %w", err)
	}

	remoteCtag, err := e.client.GetCollectionTag(ctx, token, collection)
	if err != nil {
		return nil, fmt.Errorf("remote ctag fetch failed: %w", err)
	}

	storedCtag, err := e.store.GetCollectionTag(ctx, account, collection)
	if err != nil {
		return nil, err
	}

	res := &PassResult{}
	if storedCtag == remoteCtag {
		e.pushDirty(ctx, token, account, res)
	} else {
		res.FullReconcile = true
		e.logger.Info(ctx, "collection changed remotely, running full reconciliation",
			"account", account, "stored_ctag", storedCtag, "remote_ctag", remoteCtag)
		if err := e.fullReconcile(ctx, token, account, res); err != nil {
			return nil, err
		}
	}

	if !res.ok() || ctx.Err() != nil {
		// The stored ctag stays unchanged, so the next pass re-attempts
		// the comparison and retries the still-dirty rows.
		return res, ctx.Err()
	}

	confirmedCtag, err := e.client.GetCollectionTag(ctx, token, collection)
	if err != nil {
		return res, fmt.Errorf("ctag re-fetch failed: %w", err)
	}
	if err := e.store.SetCollectionTag(ctx, account, collection, confirmedCtag); err != nil {
		return res, err
	}
	res.CtagAdvanced = true
	e.logger.Info(ctx, "sync pass complete", "account", account, "ctag", confirmedCtag,
		"pushed", res.Pushed, "deleted", res.Deleted)
	return res, nil
}

// pushDirty pushes the account's dirty ownership rows one by one. Rows are
// independent: a failure on one does not halt the rest, but any failure
// keeps the pass from being considered fully caught up. Tombstones go
// first, so a pending delete is never overtaken by an update for the same
// capsule.
func (e *SyncEngine) pushDirty(ctx context.Context, token, account string, res *PassResult) {
	rows, err := e.store.GetOwnerships(ctx, account, true)
	if err != nil {
		e.logger.Error(ctx, "failed to read dirty rows", "account", account, "error", err)
		res.Failed++
		return
	}

	for _, row := range rows {
		if row.Deleted {
			e.pushRow(ctx, token, row, res)
		}
	}
	for _, row := range rows {
		if !row.Deleted {
			e.pushRow(ctx, token, row, res)
		}
	}
}

// pushRow pushes a single dirty row. The row is left untouched on any
// failure so the next pass retries it.
func (e *SyncEngine) pushRow(ctx context.Context, token string, row models.OwnedCapsule, res *PassResult) {
	if ctx.Err() != nil {
		res.Failed++
		return
	}

	if row.Deleted {
		e.pushDelete(ctx, token, row, res)
		return
	}

	fields := models.CapsuleFields{Name: row.Name, Lat: row.Lat, Lng: row.Lng}
	rec, err := e.client.CreateOrUpdateOwned(ctx, token, row.SyncID, fields, row.Etag)
	if err != nil {
		e.logger.Warn(ctx, "push failed", "ownership_id", row.OwnershipID, "error", err)
		res.Failed++
		return
	}

	applied, err := e.store.ApplySyncResult(ctx, row.OwnershipID, rec.SyncID, rec.Etag)
	if err != nil || !applied {
		e.logger.Error(ctx, "failed to apply sync result", "ownership_id", row.OwnershipID, "error", err)
		res.Failed++
		return
	}
	res.Pushed++
}

func (e *SyncEngine) pushDelete(ctx context.Context, token string, row models.OwnedCapsule, res *PassResult) {
	if row.SyncID != 0 {
		// "deleted" and "not found" are both success: the delete is
		// idempotent and another device may have removed it first.
		if _, err := e.client.DeleteOwned(ctx, token, row.SyncID); err != nil {
			e.logger.Warn(ctx, "delete push failed", "ownership_id", row.OwnershipID, "error", err)
			res.Failed++
			return
		}
	}

	removed, err := e.store.DeleteOwnershipAndCapsuleIfOrphaned(ctx, row.OwnershipID)
	if err != nil || !removed {
		e.logger.Error(ctx, "failed to remove tombstone", "ownership_id", row.OwnershipID, "error", err)
		res.Failed++
		return
	}
	res.Deleted++
}

// fullReconcile diffs the full remote listing against the full local
// listing by sync id and converges both sides:
//
//   - local dirty rows (and sync id 0 rows) are pushed as in the match path;
//     on a version conflict the server record wins (last-write-wins by
//     version token) and overwrites the local row
//   - remote records with a newer etag than a clean local row, and remote
//     records with no local row at all, are applied locally
//   - clean local rows whose sync id is gone from the listing were deleted
//     on the server and are removed locally
//
// A listing fetch failure aborts the pass; per-row failures are collected
// and gate the ctag exactly like the match path.
func (e *SyncEngine) fullReconcile(ctx context.Context, token, account string, res *PassResult) error {
	remote, err := e.client.ListCollection(ctx, token, common.CollectionOwnerships)
	if err != nil {
		return fmt.Errorf("remote listing failed: %w", err)
	}

	local, err := e.store.GetOwnerships(ctx, account, false)
	if err != nil {
		return err
	}

	remoteBySyncID := make(map[int64]*models.CanonicalRecord, len(remote))
	for _, rec := range remote {
		remoteBySyncID[rec.SyncID] = rec
	}

	for _, row := range local {
		if ctx.Err() != nil {
			res.Failed++
			return nil
		}

		rec, onServer := remoteBySyncID[row.SyncID]
		delete(remoteBySyncID, row.SyncID)

		switch {
		case row.Deleted && row.Dirty:
			e.pushDelete(ctx, token, row, res)

		case row.SyncID == 0:
			e.pushRow(ctx, token, row, res)

		case !onServer:
			// The server no longer lists it; a concurrent local edit loses
			// to the server-side delete.
			removed, err := e.store.DeleteOwnershipAndCapsuleIfOrphaned(ctx, row.OwnershipID)
			if err != nil || !removed {
				res.Failed++
				continue
			}
			res.Removed++

		case row.Dirty:
			e.reconcileDirty(ctx, token, account, row, rec, res)

		case rec.Etag != row.Etag:
			if err := e.store.ApplyRemoteRecord(ctx, account, rec); err != nil {
				e.logger.Error(ctx, "failed to apply remote record", "sync_id", rec.SyncID, "error", err)
				res.Failed++
				continue
			}
			res.Applied++
		}
	}

	for _, rec := range remoteBySyncID {
		if ctx.Err() != nil {
			res.Failed++
			return nil
		}
		if err := e.store.ApplyRemoteRecord(ctx, account, rec); err != nil {
			e.logger.Error(ctx, "failed to apply remote record", "sync_id", rec.SyncID, "error", err)
			res.Failed++
			continue
		}
		res.Applied++
	}
	return nil
}

// reconcileDirty pushes a dirty row that also changed remotely. The push
// carries the stored etag; if the server rejects it with a version
// conflict, the server record wins and replaces the local change.
func (e *SyncEngine) reconcileDirty(ctx context.Context, token, account string, row models.OwnedCapsule, rec *models.CanonicalRecord, res *PassResult) {
	fields := models.CapsuleFields{Name: row.Name, Lat: row.Lat, Lng: row.Lng}
	pushed, err := e.client.CreateOrUpdateOwned(ctx, token, row.SyncID, fields, row.Etag)
	if err == nil {
		applied, aerr := e.store.ApplySyncResult(ctx, row.OwnershipID, pushed.SyncID, pushed.Etag)
		if aerr != nil || !applied {
			res.Failed++
			return
		}
		res.Pushed++
		return
	}

	if errors.Is(err, client.ErrConflict) {
		if aerr := e.store.ApplyRemoteRecord(ctx, account, rec); aerr != nil {
			res.Failed++
			return
		}
		e.logger.Warn(ctx, "local change lost version conflict", "sync_id", row.SyncID)
		res.Applied++
		return
	}

	e.logger.Warn(ctx, "reconcile push failed", "ownership_id", row.OwnershipID, "error", err)
	res.Failed++
}
