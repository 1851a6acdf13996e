package app_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/helios/internal/app"
	"github.com/MrJamesThe3rd/helios/internal/config"
)

func memoryApp(t *testing.T) *app.App {
	t.Helper()

	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	a, err := app.Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func TestSeed_Default(t *testing.T) {
	ctx := context.Background()
	a := memoryApp(t)

	seeded, err := a.Seed(ctx, "")
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = a.Seed(ctx, "")
	require.NoError(t, err)
	assert.False(t, seeded, "second seed is a no-op")

	projects, err := a.Ledger.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 3)
}

func TestSeed_CSV(t *testing.T) {
	ctx := context.Background()
	a := memoryApp(t)

	path := filepath.Join(t.TempDir(), "projects.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,total_shares,price_per_share,status\nx1,Harbour Canopy,400,12.5,funding\n"), 0o600))

	seeded, err := a.Seed(ctx, path)
	require.NoError(t, err)
	assert.True(t, seeded)

	projects, err := a.Ledger.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Harbour Canopy", projects[0].Name)
}

func TestSeed_MissingCSV(t *testing.T) {
	a := memoryApp(t)

	_, err := a.Seed(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
