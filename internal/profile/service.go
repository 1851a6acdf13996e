package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=profile
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*ledger.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*ledger.User, error)
	// CreateUser inserts u, filling in ID and CreatedAt. Returns
	// ledger.ErrDuplicateIdentity if the email or external ID is taken.
	CreateUser(ctx context.Context, u *ledger.User) error
}

// Identity is a user as asserted by the external identity provider.
type Identity struct {
	ExternalID string
	Email      string
}

// Config controls profile creation and the sync retry policy.
type Config struct {
	StartingBalance decimal.Decimal
	SyncAttempts    int
	SyncDelay       time.Duration
	// AutoCreate creates missing profiles during Sync. Disable it when the
	// store creates profiles itself (e.g. a database trigger) and Sync must wait.
	AutoCreate bool
}

type Service struct {
	repo Repository
	cfg  Config
	log  *slog.Logger
}

func NewService(repo Repository, cfg Config, log *slog.Logger) *Service {
	if cfg.SyncAttempts < 1 {
		cfg.SyncAttempts = 1
	}

	return &Service{repo: repo, cfg: cfg, log: log}
}

// Register creates a password-protected profile with the starting balance.
func (s *Service) Register(ctx context.Context, email, password, name string) (*ledger.User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") || password == "" {
		return nil, fmt.Errorf("a valid email and a password are required: %w", ledger.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = localPart(email)
	}

	u := &ledger.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Balance:      s.cfg.StartingBalance,
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Login checks a password against the stored hash.
func (s *Service) Login(ctx context.Context, email, password string) (*ledger.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ledger.ErrInvalidCredentials
		}

		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if u.PasswordHash == "" {
		return nil, ledger.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ledger.ErrInvalidCredentials
	}

	return u, nil
}

// Sync returns the local profile for an externally authenticated identity.
//
// The provider's record can become visible before the profile replica does,
// so the lookup is retried up to SyncAttempts times, SyncDelay apart, before
// giving up with ledger.ErrSyncFailed.
func (s *Service) Sync(ctx context.Context, id Identity) (*ledger.User, error) {
	email := normalizeEmail(id.Email)
	if email == "" && id.ExternalID == "" {
		return nil, fmt.Errorf("identity has no subject or email: %w", ledger.ErrInvalidCredentials)
	}

	for attempt := 1; attempt <= s.cfg.SyncAttempts; attempt++ {
		u, err := s.lookup(ctx, id.ExternalID, email)
		if err == nil {
			return u, nil
		}

		if !errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("looking up profile: %w", err)
		}

		if s.cfg.AutoCreate && email != "" {
			u, err := s.create(ctx, id.ExternalID, email)
			if err == nil {
				return u, nil
			}

			// A concurrent sync created it first; look it up again.
			if !errors.Is(err, ledger.ErrDuplicateIdentity) {
				return nil, err
			}
		}

		if attempt == s.cfg.SyncAttempts {
			break
		}

		s.log.DebugContext(ctx, "profile not visible yet", "email", email, "attempt", attempt)

		if err := sleep(ctx, s.cfg.SyncDelay); err != nil {
			return nil, err
		}
	}

	s.log.WarnContext(ctx, "profile sync failed", "email", email, "attempts", s.cfg.SyncAttempts)

	return nil, ledger.ErrSyncFailed
}

func (s *Service) lookup(ctx context.Context, externalID, email string) (*ledger.User, error) {
	if externalID != "" {
		u, err := s.repo.GetUserByExternalID(ctx, externalID)
		if !errors.Is(err, ledger.ErrNotFound) {
			return u, err
		}
	}

	if email == "" {
		return nil, ledger.ErrNotFound
	}

	return s.repo.GetUserByEmail(ctx, email)
}

func (s *Service) create(ctx context.Context, externalID, email string) (*ledger.User, error) {
	u := &ledger.User{
		ID:      uuid.New(),
		Email:   email,
		Name:    localPart(email),
		Balance: s.cfg.StartingBalance,
	}

	if externalID != "" {
		u.ExternalID = &externalID
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
