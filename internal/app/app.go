// Package app assembles the long-lived pieces every front end shares: the
// stats store, the loaded poets and the round engine.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/tatianab/who-said-it/internal/ai"
	"github.com/tatianab/who-said-it/internal/clock"
	"github.com/tatianab/who-said-it/internal/config"
	"github.com/tatianab/who-said-it/internal/content"
	"github.com/tatianab/who-said-it/internal/engine"
	"github.com/tatianab/who-said-it/internal/models"
	"github.com/tatianab/who-said-it/internal/stats"
	"github.com/tatianab/who-said-it/internal/storage"
)

// App holds the dependencies of a running game.
type App struct {
	Config *config.Config
	Log    *slog.Logger
	Store  storage.Store
	Stats  *stats.Tracker
	Engine *engine.Engine

	// Poets is empty when ContentErr is set.
	Poets      []models.Poet
	ContentErr error
}

// New opens the configured store, loads saved stats and content, and builds
// the engine. A content failure is kept in ContentErr rather than returned
// so front ends can show it; only an unusable store is an error.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	store, err := storage.Open(cfg.Store, cfg.SaveDir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}

	tracker := stats.NewTracker(store, log.With("component", "stats"))
	tracker.Load(ctx)

	poets, contentErr := content.Load(log.With("component", "content"), cfg.ContentOptions())
	if contentErr != nil {
		log.Error("content unavailable", "error", contentErr)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Debug("seeding round generator", "seed", seed)
	responder := ai.NewResponder(rand.New(rand.NewPCG(seed, 1)), nil)
	eng := engine.New(cfg.Settings(), responder, rand.New(rand.NewPCG(seed, 2)), log.With("component", "engine"))

	return &App{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Stats:      tracker,
		Engine:     eng,
		Poets:      poets,
		ContentErr: contentErr,
	}, nil
}

// NewSession returns a session whose timers run on sched.
func (a *App) NewSession(sched clock.Scheduler) *engine.Session {
	return engine.NewSession(a.Engine, sched, a.Stats, a.Poets, a.Log.With("component", "session"))
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
