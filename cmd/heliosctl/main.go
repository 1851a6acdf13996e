// Command heliosctl administers a Helios store: schema, catalog seeding and balance adjustments.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&migrateCmd{}, "store")
	commander.Register(&schemaCmd{}, "store")
	commander.Register(&seedCmd{}, "store")

	commander.Register(&projectsCmd{}, "ledger")
	commander.Register(&summaryCmd{}, "ledger")
	commander.Register(&adjustCmd{name: "deposit"}, "ledger")
	commander.Register(&adjustCmd{name: "withdraw"}, "ledger")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
