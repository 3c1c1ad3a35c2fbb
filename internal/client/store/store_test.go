package store

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertOwnership(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	capsuleID, ownershipID, err := s.InsertOwnership(ctx,
		models.CapsuleFields{Name: "Oak Tree", Lat: 51.5, Lng: -0.1}, "alice")
	require.NoError(t, err)

	c, err := s.GetCapsule(ctx, capsuleID)
	require.NoError(t, err)
	assert.Equal(t, "Oak Tree", c.Name)
	assert.Equal(t, int64(0), c.SyncID) // server has not assigned one yet

	rows, err := s.GetOwnerships(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ownershipID, rows[0].OwnershipID)
	assert.True(t, rows[0].Dirty)
	assert.False(t, rows[0].Deleted)
}

func TestInsertOwnership_Atomicity(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`DROP TABLE ownerships`)
	require.NoError(t, err)

	_, _, err = s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree"}, "alice")
	require.Error(t, err)

	// the capsule insert must have been rolled back with the ownership insert
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM capsules`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestInsertDiscovery_DedupByAccount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	fields := models.CapsuleFields{Name: "Old Bridge", Lat: 48.8, Lng: 2.3}

	_, _, err := s.InsertDiscovery(ctx, fields, 42, "alice")
	require.NoError(t, err)

	_, _, err = s.InsertDiscovery(ctx, fields, 42, "alice")
	assert.ErrorIs(t, err, common.ErrDuplicateRecord)
}

func TestInsertDiscovery_SharedCapsuleAcrossAccounts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	fields := models.CapsuleFields{Name: "Old Bridge", Lat: 48.8, Lng: 2.3}

	c1, _, err := s.InsertDiscovery(ctx, fields, 42, "alice")
	require.NoError(t, err)
	c2, _, err := s.InsertDiscovery(ctx, fields, 42, "bob")
	require.NoError(t, err)

	// both discoveries link to the same capsule row, keyed by sync id
	assert.Equal(t, c1, c2)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM capsules`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestInsertDiscovery_ZeroSyncIDNeverDeduplicates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	fields := models.CapsuleFields{Name: "Fountain"}

	c1, _, err := s.InsertDiscovery(ctx, fields, 0, "alice")
	require.NoError(t, err)
	c2, _, err := s.InsertDiscovery(ctx, fields, 0, "bob")
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestUpdateDiscovery(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	capsuleID, _, err := s.InsertDiscovery(ctx, models.CapsuleFields{Name: "Fountain"}, 42, "alice")
	require.NoError(t, err)

	fav := true
	up := models.RatingUp
	ok, err := s.UpdateDiscovery(ctx, capsuleID, "alice", models.DiscoveryPatch{Favorite: &fav, Rating: &up})
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := s.GetDiscovery(ctx, capsuleID, "alice")
	require.NoError(t, err)
	assert.True(t, d.Favorite)
	assert.Equal(t, models.RatingUp, d.Rating)
	assert.True(t, d.Dirty)

	ok, err = s.UpdateDiscovery(ctx, capsuleID, "bob", models.DiscoveryPatch{Favorite: &fav})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateCapsuleName_MarksOwnershipsDirty(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	capsuleID, ownershipID, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "before"}, "alice")
	require.NoError(t, err)

	// simulate a completed push so the row starts clean
	applied, err := s.ApplySyncResult(ctx, ownershipID, 42, "e1")
	require.NoError(t, err)
	require.True(t, applied)

	ok, err := s.UpdateCapsuleName(ctx, capsuleID, "after")
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := s.GetCapsule(ctx, capsuleID)
	require.NoError(t, err)
	assert.Equal(t, "after", c.Name)

	dirty, err := s.GetOwnerships(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, ownershipID, dirty[0].OwnershipID)
}

func TestApplySyncResult(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	capsuleID, ownershipID, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree"}, "alice")
	require.NoError(t, err)

	applied, err := s.ApplySyncResult(ctx, ownershipID, 42, "e1")
	require.NoError(t, err)
	assert.True(t, applied)

	c, err := s.GetCapsule(ctx, capsuleID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.SyncID)

	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "e1", rows[0].Etag)
	assert.False(t, rows[0].Dirty)

	applied, err = s.ApplySyncResult(ctx, 999, 43, "e2")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestMarkAndDeleteOwnership(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	capsuleID, ownershipID, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree"}, "alice")
	require.NoError(t, err)

	ok, err := s.MarkOwnershipDeleted(ctx, ownershipID)
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := s.GetOwnerships(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Deleted)

	removed, err := s.DeleteOwnershipAndCapsuleIfOrphaned(ctx, ownershipID)
	require.NoError(t, err)
	assert.True(t, removed)

	// nothing referenced the capsule anymore, so it is gone too
	_, err = s.GetCapsule(ctx, capsuleID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteOwnership_CapsuleKeptWhileDiscovered(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	capsuleID, ownershipID, err := s.InsertOwnership(ctx, models.CapsuleFields{Name: "Oak Tree"}, "alice")
	require.NoError(t, err)
	applied, err := s.ApplySyncResult(ctx, ownershipID, 42, "e1")
	require.NoError(t, err)
	require.True(t, applied)

	_, _, err = s.InsertDiscovery(ctx, models.CapsuleFields{Name: "Oak Tree"}, 42, "bob")
	require.NoError(t, err)

	removed, err := s.DeleteOwnershipAndCapsuleIfOrphaned(ctx, ownershipID)
	require.NoError(t, err)
	assert.True(t, removed)

	// bob's discovery still references the capsule
	c, err := s.GetCapsule(ctx, capsuleID)
	require.NoError(t, err)
	assert.Equal(t, "Oak Tree", c.Name)
}

func TestApplyRemoteRecord(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	rec := &models.CanonicalRecord{SyncID: 42, Etag: "e1", Name: "Oak Tree", Lat: 51.5, Lng: -0.1}
	require.NoError(t, s.ApplyRemoteRecord(ctx, "alice", rec))

	rows, err := s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0].SyncID)
	assert.Equal(t, "e1", rows[0].Etag)
	assert.False(t, rows[0].Dirty)

	// re-applying a newer version updates in place instead of duplicating
	rec2 := &models.CanonicalRecord{SyncID: 42, Etag: "e2", Name: "Renamed", Lat: 51.5, Lng: -0.1}
	require.NoError(t, s.ApplyRemoteRecord(ctx, "alice", rec2))

	rows, err = s.GetOwnerships(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "e2", rows[0].Etag)
	assert.Equal(t, "Renamed", rows[0].Name)
}

func TestCollectionTag(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ctag, err := s.GetCollectionTag(ctx, "alice", common.CollectionOwnerships)
	require.NoError(t, err)
	assert.Empty(t, ctag)

	require.NoError(t, s.SetCollectionTag(ctx, "alice", common.CollectionOwnerships, "17"))

	ctag, err = s.GetCollectionTag(ctx, "alice", common.CollectionOwnerships)
	require.NoError(t, err)
	assert.Equal(t, "17", ctag)

	// tags are scoped per account
	ctag, err = s.GetCollectionTag(ctx, "bob", common.CollectionOwnerships)
	require.NoError(t, err)
	assert.Empty(t, ctag)
}
