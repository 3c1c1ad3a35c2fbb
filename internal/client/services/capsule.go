package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/client/store"
)

// CapsuleService is the local-first interactive surface consumed by the CLI.
// Mutations only touch the local store and mark rows dirty; the sync engine
// pushes them later.
type CapsuleService interface {
	Add(ctx context.Context, account string, fields models.CapsuleFields) (int64, error)
	Rename(ctx context.Context, capsuleID int64, name string) (bool, error)
	Delete(ctx context.Context, ownershipID int64) (bool, error)
	Discover(ctx context.Context, account string, fields models.CapsuleFields, syncID int64) (int64, error)
	SetFavorite(ctx context.Context, capsuleID int64, account string, favorite bool) (bool, error)
	Rate(ctx context.Context, capsuleID int64, account string, rating models.Rating) (bool, error)
	ListOwned(ctx context.Context, account string) ([]models.OwnedCapsule, error)
	GetDiscovery(ctx context.Context, capsuleID int64, account string) (*models.Discovery, error)
}

type capsuleService struct {
	store *store.Store
}

// NewCapsuleService constructs a CapsuleService over the local store.
func NewCapsuleService(store *store.Store) CapsuleService {
	return &capsuleService{store: store}
}

// Add creates a locally originated capsule and its ownership claim. The
// capsule carries sync id 0 until the first successful push.
func (s *capsuleService) Add(ctx context.Context, account string, fields models.CapsuleFields) (int64, error) {
	capsuleID, _, err := s.store.InsertOwnership(ctx, fields, account)
	if err != nil {
		return 0, fmt.Errorf("saving error: %w", err)
	}
	return capsuleID, nil
}

func (s *capsuleService) Rename(ctx context.Context, capsuleID int64, name string) (bool, error) {
	return s.store.UpdateCapsuleName(ctx, capsuleID, name)
}

// Delete sets the local tombstone. Physical removal happens only after the
// sync engine confirms the delete with the server.
func (s *capsuleService) Delete(ctx context.Context, ownershipID int64) (bool, error) {
	return s.store.MarkOwnershipDeleted(ctx, ownershipID)
}

// Discover records that the account found a capsule, deduplicating the
// capsule row by sync id.
func (s *capsuleService) Discover(ctx context.Context, account string, fields models.CapsuleFields, syncID int64) (int64, error) {
	capsuleID, _, err := s.store.InsertDiscovery(ctx, fields, syncID, account)
	if err != nil {
		return 0, err
	}
	return capsuleID, nil
}

func (s *capsuleService) SetFavorite(ctx context.Context, capsuleID int64, account string, favorite bool) (bool, error) {
	return s.store.UpdateDiscovery(ctx, capsuleID, account, models.DiscoveryPatch{Favorite: &favorite})
}

func (s *capsuleService) Rate(ctx context.Context, capsuleID int64, account string, rating models.Rating) (bool, error) {
	return s.store.UpdateDiscovery(ctx, capsuleID, account, models.DiscoveryPatch{Rating: &rating})
}

// ListOwned returns the account's owned capsules, hiding tombstoned rows
// that still await server confirmation.
func (s *capsuleService) ListOwned(ctx context.Context, account string) ([]models.OwnedCapsule, error) {
	rows, err := s.store.GetOwnerships(ctx, account, false)
	if err != nil {
		return nil, fmt.Errorf("error retrieving ownerships: %w", err)
	}
	result := make([]models.OwnedCapsule, 0, len(rows))
	for _, row := range rows {
		if row.Deleted {
			continue
		}
		result = append(result, row)
	}
	return result, nil
}

func (s *capsuleService) GetDiscovery(ctx context.Context, capsuleID int64, account string) (*models.Discovery, error) {
	return s.store.GetDiscovery(ctx, capsuleID, account)
}
