package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Helios"`
		Port     int    `envconfig:"PORT" default:"3000"`
		Currency string `envconfig:"CURRENCY" default:"USD"`
		Backend  string `envconfig:"STORE_BACKEND" default:"postgres"`
		// Optional CSV used instead of the built-in catalog when seeding an empty store.
		ProjectsCSV string `envconfig:"PROJECTS_CSV"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"helios"`
	}

	Server struct {
		Timeout     time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		CORSOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Supabase struct {
		URL        string `envconfig:"SUPABASE_URL"`
		ServiceKey string `envconfig:"SUPABASE_SERVICE_KEY"`
		JWTSecret  string `envconfig:"SUPABASE_JWT_SECRET"`
	}

	Profile struct {
		StartingBalance string        `envconfig:"STARTING_BALANCE" default:"1000.00"`
		SyncAttempts    int           `envconfig:"PROFILE_SYNC_ATTEMPTS" default:"3"`
		SyncDelay       time.Duration `envconfig:"PROFILE_SYNC_DELAY" default:"1s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// StartingBalance is the balance credited to new profiles.
func (c *Config) StartingBalance() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Profile.StartingBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid STARTING_BALANCE %q: %w", c.Profile.StartingBalance, err)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("STARTING_BALANCE must not be negative, got %s", d)
	}

	if !ledger.ValidMoney(d) {
		return decimal.Zero, fmt.Errorf("STARTING_BALANCE must have at most %d decimal places, got %s", ledger.MoneyScale, d)
	}

	return d, nil
}

func (c *Config) validate() error {
	c.App.Backend = strings.ToLower(strings.TrimSpace(c.App.Backend))

	switch c.App.Backend {
	case BackendPostgres, BackendMemory:
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("STORE_BACKEND=supabase requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.App.Backend)
	}

	c.App.Currency = strings.ToUpper(strings.TrimSpace(c.App.Currency))
	if money.GetCurrency(c.App.Currency) == nil {
		return fmt.Errorf("unknown CURRENCY %q", c.App.Currency)
	}

	if _, err := c.StartingBalance(); err != nil {
		return err
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
