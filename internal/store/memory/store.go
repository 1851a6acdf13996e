package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
	"github.com/MrJamesThe3rd/helios/internal/profile"
)

// Store is an in-memory implementation of the ledger and profile repositories.
// A unit of work holds the write lock from Begin until Commit or Rollback, so
// units are fully serialized. Data is lost on restart.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*ledger.User
	projects     map[string]*ledger.Project
	projectOrder []string
	investments  []*ledger.Investment
	transactions []*ledger.Transaction
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*ledger.User),
		projects: make(map[string]*ledger.Project),
	}
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userLocked(id)
}

func (s *Store) userLocked(id uuid.UUID) (*ledger.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *u

	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}

	return nil, ledger.ErrNotFound
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}

	return nil, ledger.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, u *ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ledger.ErrDuplicateIdentity
		}

		if u.ExternalID != nil && existing.ExternalID != nil && *existing.ExternalID == *u.ExternalID {
			return ledger.ErrDuplicateIdentity
		}
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	if _, ok := s.users[u.ID]; ok {
		return ledger.ErrDuplicateIdentity
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	cp := *u
	s.users[u.ID] = &cp

	return nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*ledger.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ledger.Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		cp := *s.projects[id]
		out = append(out, &cp)
	}

	return out, nil
}

func (s *Store) CountProjects(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.projects), nil
}

func (s *Store) CreateProjects(ctx context.Context, projects []*ledger.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range projects {
		if _, ok := s.projects[p.ID]; ok {
			return fmt.Errorf("creating project %s: already exists", p.ID)
		}
	}

	for _, p := range projects {
		cp := *p
		s.projects[p.ID] = &cp
		s.projectOrder = append(s.projectOrder, p.ID)
	}

	return nil
}

func (s *Store) ListHoldings(ctx context.Context, userID uuid.UUID) ([]*ledger.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Holding

	for _, inv := range s.investments {
		if inv.UserID != userID {
			continue
		}

		p := s.projects[inv.ProjectID]
		out = append(out, &ledger.Holding{
			Investment:    *inv,
			ProjectName:   p.Name,
			Location:      p.Location,
			Image:         p.Image,
			ExpectedYield: p.ExpectedYield,
		})
	}

	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Transaction

	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}

		cp := *tx
		out = append(out, &cp)
	}

	return out, nil
}

func (s *Store) Begin(ctx context.Context) (ledger.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()

	return &unit{
		s:         s,
		balances:  make(map[uuid.UUID]decimal.Decimal),
		inventory: make(map[string]int64),
	}, nil
}

// unit buffers writes and applies them on Commit while holding s.mu.
type unit struct {
	s    *Store
	done bool

	balances     map[uuid.UUID]decimal.Decimal
	inventory    map[string]int64
	investments  []*ledger.Investment
	transactions []*ledger.Transaction
}

func (u *unit) GetUser(ctx context.Context, id uuid.UUID) (*ledger.User, error) {
	user, err := u.s.userLocked(id)
	if err != nil {
		return nil, err
	}

	if b, ok := u.balances[id]; ok {
		user.Balance = b
	}

	return user, nil
}

func (u *unit) GetProject(ctx context.Context, id string) (*ledger.Project, error) {
	p, ok := u.s.projects[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *p
	if n, ok := u.inventory[id]; ok {
		cp.AvailableShares = n
	}

	return &cp, nil
}

func (u *unit) UpdateBalance(ctx context.Context, userID uuid.UUID, expected, next decimal.Decimal) error {
	user, err := u.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.Balance.Equal(expected) {
		return ledger.ErrConflict
	}

	if next.IsNegative() {
		return fmt.Errorf("balance would become %s: %w", next, ledger.ErrInsufficientFunds)
	}

	u.balances[userID] = next

	return nil
}

func (u *unit) UpdateAvailableShares(ctx context.Context, projectID string, expected, next int64) error {
	p, err := u.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	if p.AvailableShares != expected {
		return ledger.ErrConflict
	}

	if next < 0 || next > p.TotalShares {
		return fmt.Errorf("available shares %d out of range: %w", next, ledger.ErrInsufficientInventory)
	}

	u.inventory[projectID] = next

	return nil
}

func (u *unit) InsertInvestment(ctx context.Context, inv *ledger.Investment) error {
	cp := *inv
	u.investments = append(u.investments, &cp)

	return nil
}

func (u *unit) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	cp := *tx
	u.transactions = append(u.transactions, &cp)

	return nil
}

func (u *unit) Commit() error {
	if u.done {
		return fmt.Errorf("unit already finished")
	}

	for id, b := range u.balances {
		u.s.users[id].Balance = b
	}

	for id, n := range u.inventory {
		u.s.projects[id].AvailableShares = n
	}

	u.s.investments = append(u.s.investments, u.investments...)
	u.s.transactions = append(u.s.transactions, u.transactions...)

	u.done = true
	u.s.mu.Unlock()

	return nil
}

func (u *unit) Rollback() error {
	if u.done {
		return nil
	}

	u.done = true
	u.s.mu.Unlock()

	return nil
}

var (
	_ ledger.Repository  = (*Store)(nil)
	_ profile.Repository = (*Store)(nil)
)
