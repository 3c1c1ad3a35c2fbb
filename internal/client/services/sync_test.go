package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/dmitrijs2005/geocapsule/internal/client/client"
	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/client/store"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeClient mimics the server: it keeps canonical records in memory, hands
// out sync ids and etags, and bumps the ctag on every successful write.
type fakeClient struct {
	mu         sync.Mutex
	ctag       int64
	nextSyncID int64
	nextEtag   int
	records    map[int64]*models.CanonicalRecord

	upsertErr   map[string]error // keyed by capsule name
	onUpsert    func()           // invoked before every create-or-update
	deleteCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextSyncID: 41,
		records:    make(map[int64]*models.CanonicalRecord),
		upsertErr:  make(map[string]error),
	}
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Register(ctx context.Context, account, password string) error { return nil }

func (f *fakeClient) Login(ctx context.Context, account, password string) (string, error) {
	return "tok", nil
}

func (f *fakeClient) GetCollectionTag(ctx context.Context, token, collection string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strconv.FormatInt(f.ctag, 10), nil
}

func (f *fakeClient) CreateOrUpdateOwned(ctx context.Context, token string, syncID int64, fields models.CapsuleFields, etag string) (*models.CanonicalRecord, error) {
	if f.onUpsert != nil {
		f.onUpsert()
	}
	// a cancelled context kills the in-flight request, as the real codec
	// surfaces it
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrUnavailable, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.upsertErr[fields.Name]; err != nil {
		return nil, err
	}

	if syncID == 0 {
		f.nextSyncID++
		syncID = f.nextSyncID
	} else {
		existing, ok := f.records[syncID]
		if !ok {
			return nil, common.ErrNotFound
		}
		if existing.Etag != etag {
			return nil, fmt.Errorf("%w: etag mismatch", client.ErrConflict)
		}
	}

	f.nextEtag++
	rec := &models.CanonicalRecord{
		SyncID: syncID,
		Etag:   "e" + strconv.Itoa(f.nextEtag),
		Name:   fields.Name,
		Lat:    fields.Lat,
		Lng:    fields.Lng,
	}
	f.records[syncID] = rec
	f.ctag++
	return rec, nil
}

func (f *fakeClient) DeleteOwned(ctx context.Context, token string, syncID int64) (models.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls++
	if _, ok := f.records[syncID]; !ok {
		return models.DeleteResultNotFound, nil
	}
	delete(f.records, syncID)
	f.ctag++
	return models.DeleteResultDeleted, nil
}

func (f *fakeClient) ListCollection(ctx context.Context, token, collection string) ([]*models.CanonicalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]*models.CanonicalRecord, 0, len(f.records))
	for _, rec := range f.records {
		result = append(result, rec)
	}
	return result, nil
}

// seed registers a canonical record directly, as if another device pushed it.
func (f *fakeClient) seed(rec *models.CanonicalRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.SyncID] = rec
	f.ctag++
}

type staticTokens struct{}

func (staticTokens) GetToken(ctx context.Context, account string) (string, error) {
	return "tok", nil
}

func setupEngine(t *testing.T) (*SyncEngine, *fakeClient, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fc := newFakeClient()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return NewSyncEngine(fc, s, staticTokens{}, logger), fc, s
}

func TestSync_PushNewOwnership(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	// bootstrap pass: stores the initial ctag so later passes take the
	// cheap dirty-push path
	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	require.True(t, res.FullReconcile)
	require.True(t, res.CtagAdvanced)

	_, _, err = s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree", Lat: 51.5, Lng: -0.1}, "alice")
	require.NoError(t, err)

	res, err = e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, res.FullReconcile)
	assert.Equal(t, 1, res.Pushed)
	assert.Zero(t, res.Failed)
	assert.True(t, res.CtagAdvanced)

	// the server-assigned identity landed in the local row and it is clean
	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].SyncID)
	assert.Equal(t, "e1", rows[0].Etag)
	assert.False(t, rows[0].Dirty)

	ctag, err := s.GetCollectionTag(ctx, "alice", common.CollectionOwnerships)
	require.NoError(t, err)
	assert.Equal(t, "1", ctag)

	// the canonical record landed on the server side
	require.Len(t, fc.records, 1)
	assert.Equal(t, "Oak Tree", fc.records[42].Name)

	// a second pass has nothing to do and stays caught up
	res, err = e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, res.Pushed)
	assert.True(t, res.CtagAdvanced)
}

func TestSync_PartialFailureKeepsCtag(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	_, _, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "good"}, "alice")
	require.NoError(t, err)
	_, _, err = s.InsertOwnership(ctx, models.CapsuleFields{Name: "bad"}, "alice")
	require.NoError(t, err)

	fc.upsertErr["bad"] = client.ErrUnavailable

	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.CtagAdvanced)

	// the stored ctag did not move, so the next pass re-examines the account
	ctag, err := s.GetCollectionTag(ctx, "alice", common.CollectionOwnerships)
	require.NoError(t, err)
	assert.Empty(t, ctag)

	// the failed row stays dirty for retry; once the fault clears, the next
	// pass catches up and advances the ctag
	delete(fc.upsertErr, "bad")
	res, err = e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
	assert.Zero(t, res.Failed)
	assert.True(t, res.CtagAdvanced)
}

func TestSync_CancelledPassKeepsCtag(t *testing.T) {
	e, fc, s := setupEngine(t)

	// bootstrap so the pass under test takes the dirty-push path
	_, err := e.Sync(context.Background(), "alice")
	require.NoError(t, err)

	_, _, err = s.InsertOwnership(context.Background(), models.CapsuleFields{Name: "first"}, "alice")
	require.NoError(t, err)
	_, _, err = s.InsertOwnership(context.Background(), models.CapsuleFields{Name: "second"}, "alice")
	require.NoError(t, err)

	// cancel mid-pass: the first row's request dies with the context and
	// the checkpoint before the second row trips
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fc.onUpsert = cancel

	res, err := e.Sync(ctx, "alice")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Pushed)
	assert.Equal(t, 2, res.Failed)
	assert.False(t, res.CtagAdvanced)

	// a cancelled pass must not persist a new ctag
	ctag, err := s.GetCollectionTag(context.Background(), "alice", common.CollectionOwnerships)
	require.NoError(t, err)
	assert.Equal(t, "0", ctag)

	// both rows stay dirty and a fresh pass catches up
	dirty, err := s.GetOwnerships(context.Background(), "alice", true)
	require.NoError(t, err)
	require.Len(t, dirty, 2)

	fc.onUpsert = nil
	res, err = e.Sync(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.True(t, res.CtagAdvanced)
}

func TestSync_DeleteConfirmed(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	_, ownershipID, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree"}, "alice")
	require.NoError(t, err)

	_, err = e.Sync(ctx, "alice")
	require.NoError(t, err)

	ok, err := s.MarkOwnershipDeleted(ctx, ownershipID)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.True(t, res.CtagAdvanced)

	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, fc.records)
}

func TestSync_DeleteNotFoundIsSuccess(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	_, ownershipID, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree"}, "alice")
	require.NoError(t, err)
	_, err = e.Sync(ctx, "alice")
	require.NoError(t, err)

	// another device already removed it on the server
	fc.mu.Lock()
	delete(fc.records, 42)
	fc.mu.Unlock()

	ok, err := s.MarkOwnershipDeleted(ctx, ownershipID)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Zero(t, res.Failed)

	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSync_NeverPushedDeleteStaysLocal(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	_, ownershipID, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "draft"}, "alice")
	require.NoError(t, err)

	ok, err := s.MarkOwnershipDeleted(ctx, ownershipID)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	// the record never existed remotely, so no delete request went out
	assert.Zero(t, fc.deleteCalls)

	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSync_ConcurrentPassRejected(t *testing.T) {
	e, _, _ := setupEngine(t)

	require.True(t, e.acquire("alice"))
	defer e.release("alice")

	_, err := e.Sync(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrSyncInProgress)

	// other accounts are unaffected
	_, err = e.Sync(context.Background(), "bob")
	assert.NoError(t, err)
}

func TestSync_FullReconcileAppliesRemote(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	// a record pushed by another device; the local ctag is still empty
	fc.seed(&models.CanonicalRecord{SyncID: 100, Etag: "r1", Name: "Remote Cache", Lat: 1, Lng: 2})

	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.FullReconcile)
	assert.Equal(t, 1, res.Applied)
	assert.True(t, res.CtagAdvanced)

	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].SyncID)
	assert.Equal(t, "r1", rows[0].Etag)
	assert.Equal(t, "Remote Cache", rows[0].Name)
	assert.False(t, rows[0].Dirty)
}

func TestSync_FullReconcileRemovesServerDeleted(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	_, _, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree"}, "alice")
	require.NoError(t, err)
	_, err = e.Sync(ctx, "alice")
	require.NoError(t, err)

	// server-side delete by another device bumps the remote ctag
	fc.mu.Lock()
	delete(fc.records, 42)
	fc.ctag++
	fc.mu.Unlock()

	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.FullReconcile)
	assert.Equal(t, 1, res.Removed)
	assert.True(t, res.CtagAdvanced)

	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSync_FullReconcileConflictServerWins(t *testing.T) {
	e, fc, s := setupEngine(t)
	ctx := context.Background()

	capsuleID, _, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree", Lat: 51.5, Lng: -0.1}, "alice")
	require.NoError(t, err)
	_, err = e.Sync(ctx, "alice")
	require.NoError(t, err)

	// another device updated the record: the remote etag moved on
	fc.seed(&models.CanonicalRecord{SyncID: 42, Etag: "r2", Name: "Their Name", Lat: 51.5, Lng: -0.1})

	// local edit on the now-stale version
	ok, err := s.UpdateCapsuleName(ctx, capsuleID, "My Name")
	require.NoError(t, err)
	require.True(t, ok)

	res, err := e.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.FullReconcile)
	assert.Equal(t, 1, res.Applied)
	assert.Zero(t, res.Failed)
	assert.True(t, res.CtagAdvanced)

	// the push lost the version conflict, so the server record replaced the
	// local change
	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Their Name", rows[0].Name)
	assert.Equal(t, "r2", rows[0].Etag)
	assert.False(t, rows[0].Dirty)
}
