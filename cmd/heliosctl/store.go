package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"github.com/MrJamesThe3rd/helios/internal/app"
	"github.com/MrJamesThe3rd/helios/internal/config"
	"github.com/MrJamesThe3rd/helios/internal/database"
	"github.com/MrJamesThe3rd/helios/internal/store/supabase"
)

// openApp loads the environment config and connects to the configured store.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	return app.Open(ctx, cfg, log)
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply the postgres schema" }
func (*migrateCmd) Usage() string {
	return `migrate

  Creates the Helios tables in the database described by DB_* variables.
  Safe to run more than once.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Println("schema applied")

	return subcommands.ExitSuccess
}

type schemaCmd struct {
	backend string
}

func (*schemaCmd) Name() string     { return "schema" }
func (*schemaCmd) Synopsis() string { return "print the SQL schema for a backend" }
func (*schemaCmd) Usage() string {
	return `schema [-backend postgres|supabase]

  Prints the schema. The supabase variant also holds the profile trigger and
  the helios_apply_ledger function; paste it into the SQL editor.
`
}

func (c *schemaCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.backend, "backend", config.BackendPostgres, "postgres or supabase")
}

func (c *schemaCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return writeSchema(os.Stdout, c.backend)
}

func writeSchema(w io.Writer, backend string) subcommands.ExitStatus {
	switch backend {
	case config.BackendPostgres:
		fmt.Fprint(w, database.Schema)
	case config.BackendSupabase:
		fmt.Fprint(w, supabase.Schema)
	default:
		fmt.Fprintf(os.Stderr, "Error: no schema for backend %q\n", backend)
		return subcommands.ExitUsageError
	}

	return subcommands.ExitSuccess
}

type seedCmd struct {
	csv string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "seed the project catalog into an empty store" }
func (*seedCmd) Usage() string {
	return `seed [-csv <file>]

  Inserts the catalog when the store has no projects. Without -csv, PROJECTS_CSV
  is used, and without that the built-in catalog.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.csv, "csv", "", "CSV catalog to import")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	seeded, err := a.Seed(ctx, c.csv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if !seeded {
		fmt.Println("store already has projects, nothing to do")
		return subcommands.ExitSuccess
	}

	fmt.Println("catalog seeded")

	return subcommands.ExitSuccess
}
