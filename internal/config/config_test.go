package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/helios/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.App.Port)
	assert.Equal(t, "USD", cfg.App.Currency)
	assert.Equal(t, config.BackendPostgres, cfg.App.Backend)
	assert.Equal(t, 3, cfg.Profile.SyncAttempts)
	assert.Equal(t, time.Second, cfg.Profile.SyncDelay)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres://postgres:@localhost:5432/helios?sslmode=disable", cfg.ConnectionString())

	bal, err := cfg.StartingBalance()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(bal))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,https://helios.example")
	t.Setenv("PROFILE_SYNC_DELAY", "250ms")
	t.Setenv("STARTING_BALANCE", "25.50")
	t.Setenv("CURRENCY", " eur")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendMemory, cfg.App.Backend)
	assert.Equal(t, "EUR", cfg.App.Currency)
	assert.Equal(t, []string{"http://localhost:5173", "https://helios.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Profile.SyncDelay)

	bal, err := cfg.StartingBalance()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.5").Equal(bal))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "sqlite"}},
		{name: "supabase without url", env: map[string]string{"STORE_BACKEND": "supabase"}},
		{name: "bad balance", env: map[string]string{"STARTING_BALANCE": "lots"}},
		{name: "negative balance", env: map[string]string{"STARTING_BALANCE": "-1"}},
		{name: "sub-cent balance", env: map[string]string{"STARTING_BALANCE": "1000.001"}},
		{name: "unknown currency", env: map[string]string{"CURRENCY": "XYZ"}},
		{name: "empty currency", env: map[string]string{"CURRENCY": " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
