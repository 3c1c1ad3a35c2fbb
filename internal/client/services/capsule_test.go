package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/client/store"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupCapsules(t *testing.T) CapsuleService {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewCapsuleService(s)
}

func TestAddAndListOwned(t *testing.T) {
	svc := setupCapsules(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", models.CapsuleFields{Name: "Oak Tree", Lat: 51.5, Lng: -0.1})
	require.NoError(t, err)

	rows, err := svc.ListOwned(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Oak Tree", rows[0].Name)

	rows, err = svc.ListOwned(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListOwned_HidesTombstones(t *testing.T) {
	svc := setupCapsules(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", models.CapsuleFields{Name: "keep"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "alice", models.CapsuleFields{Name: "drop"})
	require.NoError(t, err)

	rows, err := svc.ListOwned(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var dropID int64
	for _, row := range rows {
		if row.Name == "drop" {
			dropID = row.OwnershipID
		}
	}
	ok, err := svc.Delete(ctx, dropID)
	require.NoError(t, err)
	require.True(t, ok)

	rows, err = svc.ListOwned(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].Name)
}

func TestRename(t *testing.T) {
	svc := setupCapsules(t)
	ctx := context.Background()

	capsuleID, err := svc.Add(ctx, "alice", models.CapsuleFields{Name: "before"})
	require.NoError(t, err)

	ok, err := svc.Rename(ctx, capsuleID, "after")
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := svc.ListOwned(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "after", rows[0].Name)
}

func TestDiscoverFavoriteRate(t *testing.T) {
	svc := setupCapsules(t)
	ctx := context.Background()
	fields := models.CapsuleFields{Name: "Old Bridge", Lat: 48.8, Lng: 2.3}

	capsuleID, err := svc.Discover(ctx, "alice", fields, 42)
	require.NoError(t, err)

	_, err = svc.Discover(ctx, "alice", fields, 42)
	assert.ErrorIs(t, err, common.ErrDuplicateRecord)

	ok, err := svc.SetFavorite(ctx, capsuleID, "alice", true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Rate(ctx, capsuleID, "alice", models.RatingDown)
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := svc.GetDiscovery(ctx, capsuleID, "alice")
	require.NoError(t, err)
	assert.True(t, d.Favorite)
	assert.Equal(t, models.RatingDown, d.Rating)
}
