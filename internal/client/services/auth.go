// Package services contains application services for the GeoCapsule client:
// authentication, interactive capsule operations, and the sync engine.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/geocapsule/internal/client/client"
	"github.com/dmitrijs2005/geocapsule/internal/client/store"
	"github.com/dmitrijs2005/geocapsule/internal/common"
)

// TokenProvider is the credential collaborator consumed by the sync engine.
// A failure here aborts the whole pass.
type TokenProvider interface {
	GetToken(ctx context.Context, account string) (string, error)
}

// AuthService defines authentication operations for the CLI.
type AuthService interface {
	TokenProvider
	Register(ctx context.Context, account, password string) error
	Login(ctx context.Context, account, password string) error
	Logout(ctx context.Context, account string) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	store  *store.Store
}

// NewAuthService constructs an AuthService bound to the given API client
// and local store (used to cache the access token between runs).
func NewAuthService(client client.Client, store *store.Store) AuthService {
	return &authService{client: client, store: store}
}

func tokenKey(account string) string {
	return "token/" + account
}

// Register creates a new account on the server.
func (a *authService) Register(ctx context.Context, account, password string) error {
	if err := a.client.Register(ctx, account, password); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

// Login authenticates against the server and caches the bearer token in the
// store metadata so later passes can run without re-prompting.
func (a *authService) Login(ctx context.Context, account, password string) error {
	token, err := a.client.Login(ctx, account, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	if err := a.store.Metadata().Set(ctx, tokenKey(account), []byte(token)); err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}
	return nil
}

// GetToken returns the cached bearer token for the account, or
// common.ErrUnauthorized when the account has not logged in.
func (a *authService) GetToken(ctx context.Context, account string) (string, error) {
	v, err := a.store.Metadata().Get(ctx, tokenKey(account))
	if err != nil {
		return "", err
	}
	if len(v) == 0 {
		return "", common.ErrUnauthorized
	}
	return string(v), nil
}

// Logout drops the cached token.
func (a *authService) Logout(ctx context.Context, account string) error {
	return a.store.Metadata().Delete(ctx, tokenKey(account))
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
