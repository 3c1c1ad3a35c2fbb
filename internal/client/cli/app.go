// Package cli implements the interactive GeoCapsule client: a small REPL
// over the local store, with explicit sync triggers.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/geocapsule/internal/client/client"
	"github.com/dmitrijs2005/geocapsule/internal/client/config"
	"github.com/dmitrijs2005/geocapsule/internal/client/services"
	"github.com/dmitrijs2005/geocapsule/internal/client/store"
	"github.com/dmitrijs2005/geocapsule/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config         *config.Config
	authService    services.AuthService
	capsuleService services.CapsuleService
	syncEngine     *services.SyncEngine
	store          *store.Store
	account        string
	reader         *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	st, err := store.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerEndpointAddr)

	as := services.NewAuthService(apiClient, st)
	cs := services.NewCapsuleService(st)
	se := services.NewSyncEngine(apiClient, st, as, logger)

	return &App{
		config:         c,
		authService:    as,
		capsuleService: cs,
		syncEngine:     se,
		store:          st,
		reader:         bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.store.Close()
	defer a.authService.Close(ctx)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.account != ""
}
