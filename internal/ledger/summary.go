package ledger

import (
	"context"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Display heuristics per owned share. These are presentation values only.
var (
	kwhPerShare   = decimal.NewFromInt(124)
	co2PerShare   = decimal.RequireFromString("0.088")
	treesPerShare = decimal.RequireFromString("1.5")
	hundred       = decimal.NewFromInt(100)
)

// recentLimit is how many ledger rows a summary carries.
const recentLimit = 5

// Summary is a dashboard view of a user's portfolio.
type Summary struct {
	User              *User
	Holdings          []*Holding
	Recent            []*Transaction
	TotalInvested     decimal.Decimal
	TotalShares       int64
	ProjectedEarnings decimal.Decimal // Annual, from each project's expected yield
	EnergyKWh         decimal.Decimal
	CO2Tons           decimal.Decimal
	Trees             int64
	Currency          string
}

// Portfolio loads the user, holdings and ledger concurrently and summarizes them.
func (s *Service) Portfolio(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	var (
		user     *User
		holdings []*Holding
		txs      []*Transaction
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		user, err = s.repo.GetUser(gctx, userID)

		return err
	})

	g.Go(func() error {
		var err error
		holdings, err = s.repo.ListHoldings(gctx, userID)

		return err
	})

	g.Go(func() error {
		var err error
		txs, err = s.ListTransactions(gctx, userID)

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading portfolio: %w", err)
	}

	sum := &Summary{
		User:     user,
		Holdings: holdings,
		Recent:   txs[:min(len(txs), recentLimit)],
		Currency: s.currency,
	}

	for _, h := range holdings {
		sum.TotalInvested = sum.TotalInvested.Add(h.Amount)
		sum.TotalShares += h.Shares
		sum.ProjectedEarnings = sum.ProjectedEarnings.Add(h.Amount.Mul(h.ExpectedYield).Div(hundred))
	}

	shares := decimal.NewFromInt(sum.TotalShares)
	sum.EnergyKWh = shares.Mul(kwhPerShare)
	sum.CO2Tons = shares.Mul(co2PerShare)
	sum.Trees = shares.Mul(treesPerShare).Round(0).IntPart()

	return sum, nil
}

// Format renders a value in the summary currency, e.g. "$950.00".
func (s *Summary) Format(d decimal.Decimal) string {
	return FormatMoney(d, s.Currency)
}

// FormatMoney renders d in the given ISO currency.
func FormatMoney(d decimal.Decimal, code string) string {
	m := money.New(0, code)
	minor := d.Shift(int32(m.Currency().Fraction)).Round(0).IntPart()

	return money.New(minor, code).Display()
}
