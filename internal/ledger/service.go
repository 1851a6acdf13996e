package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxAttempts bounds how many times a unit of work is replayed after a conflict.
const maxAttempts = 3

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	ListHoldings(ctx context.Context, userID uuid.UUID) ([]*Holding, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*Transaction, error)

	CountProjects(ctx context.Context) (int, error)
	CreateProjects(ctx context.Context, projects []*Project) error

	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is a single atomic unit against the store. Writes are visible
// to other readers only after Commit. Rollback after Commit is a no-op.
type UnitOfWork interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetProject(ctx context.Context, id string) (*Project, error)

	// UpdateBalance sets the balance to next if it still equals expected, else ErrConflict.
	UpdateBalance(ctx context.Context, userID uuid.UUID, expected, next decimal.Decimal) error
	// UpdateAvailableShares sets the inventory to next if it still equals expected, else ErrConflict.
	UpdateAvailableShares(ctx context.Context, projectID string, expected, next int64) error

	InsertInvestment(ctx context.Context, inv *Investment) error
	InsertTransaction(ctx context.Context, tx *Transaction) error

	Commit() error
	Rollback() error
}

type Service struct {
	repo     Repository
	log      *slog.Logger
	now      func() time.Time
	currency string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the time source used to stamp ledger rows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCurrency sets the ISO currency code used when formatting summaries.
func WithCurrency(code string) Option {
	return func(s *Service) { s.currency = code }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		currency: "USD",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) ListHoldings(ctx context.Context, userID uuid.UUID) ([]*Holding, error) {
	return s.repo.ListHoldings(ctx, userID)
}

// ListTransactions returns the user's ledger, most recent first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(txs, func(a, b *Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	return txs, nil
}

// Purchase buys shares of a project for a user. The funds check runs before the
// inventory check. Balance, inventory and both ledger rows change together or not at all.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, projectID string, shares int64) (*User, error) {
	if shares <= 0 {
		return nil, ErrInvalidShares
	}

	return s.retry(ctx, "purchase", func() (*User, error) {
		return s.purchase(ctx, userID, projectID, shares)
	})
}

func (s *Service) purchase(ctx context.Context, userID uuid.UUID, projectID string, shares int64) (*User, error) {
	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	defer uow.Rollback()

	// Project before user: the postgres store locks rows in this order.
	project, err := uow.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	user, err := uow.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount := project.PricePerShare.Mul(decimal.NewFromInt(shares))

	if user.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	if project.AvailableShares < shares {
		return nil, ErrInsufficientInventory
	}

	balance := user.Balance.Sub(amount)
	if err := uow.UpdateBalance(ctx, user.ID, user.Balance, balance); err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	if err := uow.UpdateAvailableShares(ctx, project.ID, project.AvailableShares, project.AvailableShares-shares); err != nil {
		return nil, fmt.Errorf("reserve shares: %w", err)
	}

	now := s.now()

	if err := uow.InsertInvestment(ctx, &Investment{
		ID:        uuid.New(),
		UserID:    user.ID,
		ProjectID: project.ID,
		Shares:    shares,
		Amount:    amount,
		Timestamp: now,
	}); err != nil {
		return nil, fmt.Errorf("insert investment: %w", err)
	}

	if err := uow.InsertTransaction(ctx, &Transaction{
		ID:          uuid.New(),
		UserID:      user.ID,
		Type:        TypePurchase,
		ProjectName: &project.Name,
		Amount:      amount.Neg(),
		Timestamp:   now,
	}); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}

	user.Balance = balance

	return user, nil
}

// Deposit credits the user's balance and records a deposit.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*User, error) {
	if !amount.IsPositive() || !ValidMoney(amount) {
		return nil, ErrInvalidAmount
	}

	return s.retry(ctx, "deposit", func() (*User, error) {
		return s.adjust(ctx, userID, TypeDeposit, amount)
	})
}

// Withdraw debits the user's balance and records a withdrawal.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*User, error) {
	if !amount.IsPositive() || !ValidMoney(amount) {
		return nil, ErrInvalidAmount
	}

	return s.retry(ctx, "withdraw", func() (*User, error) {
		return s.adjust(ctx, userID, TypeWithdrawal, amount.Neg())
	})
}

func (s *Service) adjust(ctx context.Context, userID uuid.UUID, typ TransactionType, delta decimal.Decimal) (*User, error) {
	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s: %w", typ, err)
	}
	defer uow.Rollback()

	user, err := uow.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance := user.Balance.Add(delta)
	if balance.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	if err := uow.UpdateBalance(ctx, user.ID, user.Balance, balance); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if err := uow.InsertTransaction(ctx, &Transaction{
		ID:        uuid.New(),
		UserID:    user.ID,
		Type:      typ,
		Amount:    delta,
		Timestamp: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", typ, err)
	}

	user.Balance = balance

	return user, nil
}

// retry replays fn while it fails with ErrConflict, up to maxAttempts times.
func (s *Service) retry(ctx context.Context, op string, fn func() (*User, error)) (*User, error) {
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var user *User

		user, err = fn()
		if !errors.Is(err, ErrConflict) {
			return user, err
		}

		s.log.WarnContext(ctx, "ledger write conflict, retrying", "op", op, "attempt", attempt)
	}

	return nil, fmt.Errorf("%s: gave up after %d attempts: %w", op, maxAttempts, err)
}

// SeedProjects inserts the catalog only when the store has no projects yet.
func (s *Service) SeedProjects(ctx context.Context, projects []*Project) (bool, error) {
	n, err := s.repo.CountProjects(ctx)
	if err != nil {
		return false, fmt.Errorf("counting projects: %w", err)
	}

	if n > 0 || len(projects) == 0 {
		return false, nil
	}

	if err := s.repo.CreateProjects(ctx, projects); err != nil {
		return false, fmt.Errorf("seeding projects: %w", err)
	}

	s.log.InfoContext(ctx, "seeded project catalog", "count", len(projects))

	return true, nil
}

// DefaultProjects is the catalog seeded into an empty store.
func DefaultProjects() []*Project {
	return []*Project{
		{
			ID:              "1",
			Name:            "Desert Sun Array",
			Location:        "Mojave Desert, CA",
			Capacity:        "1.2 MW",
			TotalShares:     10000,
			AvailableShares: 2450,
			PricePerShare:   decimal.NewFromInt(50),
			ExpectedYield:   decimal.RequireFromString("8.5"),
			Status:          StatusFunding,
			Image:           "https://picsum.photos/seed/solar1/800/600",
			Description:     "A large-scale utility project providing clean energy to the local grid.",
		},
		{
			ID:              "2",
			Name:            "Green Roof Initiative",
			Location:        "Brooklyn, NY",
			Capacity:        "250 kW",
			TotalShares:     5000,
			AvailableShares: 120,
			PricePerShare:   decimal.NewFromInt(75),
			ExpectedYield:   decimal.RequireFromString("6.2"),
			Status:          StatusActive,
			Image:           "https://picsum.photos/seed/solar2/800/600",
			Description:     "Urban solar installation on commercial rooftops.",
		},
		{
			ID:              "3",
			Name:            "Azure Plains Farm",
			Location:        "Castile, Spain",
			Capacity:        "5 MW",
			TotalShares:     50000,
			AvailableShares: 15000,
			PricePerShare:   decimal.NewFromInt(40),
			ExpectedYield:   decimal.RequireFromString("9.1"),
			Status:          StatusFunding,
			Image:           "https://picsum.photos/seed/solar3/800/600",
			Description:     "Expansive solar farm in one of Europe's sunniest regions.",
		},
	}
}
