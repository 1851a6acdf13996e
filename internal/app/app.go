// Package app wires the configured store into the Helios services.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/helios/internal/catalog"
	"github.com/MrJamesThe3rd/helios/internal/config"
	"github.com/MrJamesThe3rd/helios/internal/database"
	"github.com/MrJamesThe3rd/helios/internal/ledger"
	"github.com/MrJamesThe3rd/helios/internal/profile"
	"github.com/MrJamesThe3rd/helios/internal/store/memory"
	"github.com/MrJamesThe3rd/helios/internal/store/postgres"
	"github.com/MrJamesThe3rd/helios/internal/store/supabase"
)

// Store is what every backend implements.
type Store interface {
	ledger.Repository
	profile.Repository
}

type App struct {
	Config   *config.Config
	Store    Store
	Ledger   *ledger.Service
	Profiles *profile.Service

	db *sql.DB
}

// Open connects to the configured backend. Postgres is migrated on open.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	balance, err := cfg.StartingBalance()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg}

	// Supabase creates profiles from a trigger on auth.users, so sync only waits for them.
	autoCreate := true

	switch cfg.App.Backend {
	case config.BackendPostgres:
		db, err := database.New(cfg.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}

		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}

		a.db = db
		a.Store = postgres.New(db)
	case config.BackendSupabase:
		a.Store = supabase.New(cfg.Supabase.URL, cfg.Supabase.ServiceKey, nil)
		autoCreate = false
	case config.BackendMemory:
		a.Store = memory.New()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.App.Backend)
	}

	a.Ledger = ledger.NewService(a.Store, ledger.WithLogger(log), ledger.WithCurrency(cfg.App.Currency))
	a.Profiles = profile.NewService(a.Store, profile.Config{
		StartingBalance: balance,
		SyncAttempts:    cfg.Profile.SyncAttempts,
		SyncDelay:       cfg.Profile.SyncDelay,
		AutoCreate:      autoCreate,
	}, log)

	log.Info("store ready", "backend", cfg.App.Backend)

	return a, nil
}

// Catalog returns the projects to seed: the configured CSV if set, else the built-in catalog.
func (a *App) Catalog(path string) ([]*ledger.Project, error) {
	if path == "" {
		path = a.Config.App.ProjectsCSV
	}

	if path == "" {
		return ledger.DefaultProjects(), nil
	}

	projects, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}

	return projects, nil
}

// Seed fills an empty store from Catalog(path).
func (a *App) Seed(ctx context.Context, path string) (bool, error) {
	projects, err := a.Catalog(path)
	if err != nil {
		return false, err
	}

	return a.Ledger.SeedProjects(ctx, projects)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}

	return a.db.Close()
}
