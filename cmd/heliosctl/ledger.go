package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

type projectsCmd struct{}

func (*projectsCmd) Name() string           { return "projects" }
func (*projectsCmd) Synopsis() string       { return "list the project catalog" }
func (*projectsCmd) Usage() string          { return "projects\n\n  Lists every project with its remaining inventory.\n" }
func (*projectsCmd) SetFlags(*flag.FlagSet) {}

func (*projectsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	projects, err := a.Ledger.ListProjects(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPRICE\tAVAILABLE\tYIELD")

	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s%%\n",
			p.ID, p.Name, p.Status, ledger.FormatMoney(p.PricePerShare, a.Config.App.Currency),
			p.AvailableShares, p.TotalShares, p.ExpectedYield.StringFixed(1))
	}

	if err := tw.Flush(); err != nil {
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

type summaryCmd struct {
	user string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show a user's portfolio summary" }
func (*summaryCmd) Usage() string    { return "summary -user <id>\n" }

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "user id")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	id, err := uuid.Parse(c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -user must be a user id: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	sum, err := a.Ledger.Portfolio(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("%s <%s>\n", sum.User.Name, sum.User.Email)
	fmt.Printf("Balance:            %s\n", sum.Format(sum.User.Balance))
	fmt.Printf("Invested:           %s in %d shares\n", sum.Format(sum.TotalInvested), sum.TotalShares)
	fmt.Printf("Projected earnings: %s / year\n", sum.Format(sum.ProjectedEarnings))
	fmt.Printf("Impact:             %s kWh, %s t CO2, %d trees\n",
		sum.EnergyKWh.StringFixed(0), sum.CO2Tons.StringFixed(2), sum.Trees)

	return subcommands.ExitSuccess
}

// adjustCmd implements both deposit and withdraw.
type adjustCmd struct {
	name   string
	user   string
	amount string
}

func (c *adjustCmd) Name() string     { return c.name }
func (c *adjustCmd) Synopsis() string { return c.name + " funds for a user" }
func (c *adjustCmd) Usage() string {
	return c.name + " -user <id> -amount <value>\n"
}

func (c *adjustCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "user id")
	f.StringVar(&c.amount, "amount", "", "amount, e.g. 250.00")
}

func (c *adjustCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	id, err := uuid.Parse(c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -user must be a user id: %v\n", err)
		return subcommands.ExitUsageError
	}

	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -amount %q\n", c.amount)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	adjust := a.Ledger.Deposit
	if c.name == "withdraw" {
		adjust = a.Ledger.Withdraw
	}

	u, err := adjust(ctx, id, amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("new balance for %s: %s\n", u.Email, ledger.FormatMoney(u.Balance, a.Config.App.Currency))

	return subcommands.ExitSuccess
}
