package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
	"github.com/MrJamesThe3rd/helios/internal/profile"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectUserColumns = `id, external_id, email, name, password_hash, balance, created_at`

func scanUser(s scanner) (*ledger.User, error) {
	var u ledger.User

	var externalID, passwordHash sql.NullString

	if err := s.Scan(&u.ID, &externalID, &u.Email, &u.Name, &passwordHash, &u.Balance, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, err
	}

	if externalID.Valid {
		u.ExternalID = &externalID.String
	}

	u.PasswordHash = passwordHash.String

	return &u, nil
}

const selectProjectColumns = `
	id, name, location, capacity, image, description,
	total_shares, available_shares, price_per_share, expected_yield, status
`

func scanProject(s scanner) (*ledger.Project, error) {
	var p ledger.Project

	var status string

	if err := s.Scan(
		&p.ID, &p.Name, &p.Location, &p.Capacity, &p.Image, &p.Description,
		&p.TotalShares, &p.AvailableShares, &p.PricePerShare, &p.ExpectedYield, &status,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, err
	}

	p.Status = ledger.Status(status)

	return &p, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*ledger.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}

	return u, err
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*ledger.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE external_id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, externalID))
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("getting user by external id: %w", err)
	}

	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *ledger.User) error {
	query := `
		INSERT INTO users (id, external_id, email, name, password_hash, balance, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW())
		RETURNING created_at
	`

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	err := s.db.QueryRowContext(ctx, query,
		u.ID,
		u.ExternalID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.Balance,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ledger.ErrDuplicateIdentity
		}

		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*ledger.Project, error) {
	query := `SELECT ` + selectProjectColumns + ` FROM projects ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*ledger.Project

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}

		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	return projects, nil
}

func (s *Store) CountProjects(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting projects: %w", err)
	}

	return n, nil
}

func (s *Store) CreateProjects(ctx context.Context, projects []*ledger.Project) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO projects (id, name, location, capacity, image, description,
			total_shares, available_shares, price_per_share, expected_yield, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, p := range projects {
		if _, err := dbTx.ExecContext(ctx, query,
			p.ID, p.Name, p.Location, p.Capacity, p.Image, p.Description,
			p.TotalShares, p.AvailableShares, p.PricePerShare, p.ExpectedYield, p.Status,
		); err != nil {
			return fmt.Errorf("inserting project %s: %w", p.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) ListHoldings(ctx context.Context, userID uuid.UUID) ([]*ledger.Holding, error) {
	query := `
		SELECT i.id, i.user_id, i.project_id, i.shares, i.amount, i.created_at,
			p.name, p.location, p.image, p.expected_yield
		FROM investments i
		JOIN projects p ON i.project_id = p.id
		WHERE i.user_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*ledger.Holding

	for rows.Next() {
		var h ledger.Holding

		if err := rows.Scan(
			&h.ID, &h.UserID, &h.ProjectID, &h.Shares, &h.Amount, &h.Timestamp,
			&h.ProjectName, &h.Location, &h.Image, &h.ExpectedYield,
		); err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}

		holdings = append(holdings, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating holdings: %w", err)
	}

	return holdings, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `
		SELECT id, user_id, type, project_name, amount, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		var (
			tx          ledger.Transaction
			typ         string
			projectName sql.NullString
		)

		if err := rows.Scan(&tx.ID, &tx.UserID, &typ, &projectName, &tx.Amount, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		tx.Type = ledger.TransactionType(typ)
		if projectName.Valid {
			tx.ProjectName = &projectName.String
		}

		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

// Begin opens a database transaction. Rows read through the unit are locked
// with FOR UPDATE until commit or rollback.
func (s *Store) Begin(ctx context.Context) (ledger.UnitOfWork, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}

	return &unit{tx: dbTx}, nil
}

type unit struct {
	tx *sql.Tx
}

func (u *unit) Commit() error { return u.tx.Commit() }

func (u *unit) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

func (u *unit) GetUser(ctx context.Context, id uuid.UUID) (*ledger.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(u.tx.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("locking user: %w", err)
	}

	return user, err
}

func (u *unit) GetProject(ctx context.Context, id string) (*ledger.Project, error) {
	query := `SELECT ` + selectProjectColumns + ` FROM projects WHERE id = $1 FOR UPDATE`

	p, err := scanProject(u.tx.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("locking project: %w", err)
	}

	return p, err
}

func (u *unit) UpdateBalance(ctx context.Context, userID uuid.UUID, expected, next decimal.Decimal) error {
	query := `UPDATE users SET balance = $1 WHERE id = $2 AND balance = $3`

	res, err := u.tx.ExecContext(ctx, query, next, userID, expected)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}

	return requireOneRow(res)
}

func (u *unit) UpdateAvailableShares(ctx context.Context, projectID string, expected, next int64) error {
	query := `UPDATE projects SET available_shares = $1 WHERE id = $2 AND available_shares = $3`

	res, err := u.tx.ExecContext(ctx, query, next, projectID, expected)
	if err != nil {
		return fmt.Errorf("updating available shares: %w", err)
	}

	return requireOneRow(res)
}

func (u *unit) InsertInvestment(ctx context.Context, inv *ledger.Investment) error {
	query := `
		INSERT INTO investments (id, user_id, project_id, shares, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := u.tx.ExecContext(ctx, query,
		inv.ID, inv.UserID, inv.ProjectID, inv.Shares, inv.Amount, inv.Timestamp,
	); err != nil {
		return fmt.Errorf("inserting investment: %w", err)
	}

	return nil
}

func (u *unit) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, project_name, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := u.tx.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Type, tx.ProjectName, tx.Amount, tx.Timestamp,
	); err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}

	return nil
}

// requireOneRow turns a compare-and-set that matched nothing into ErrConflict.
func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if n != 1 {
		return ledger.ErrConflict
	}

	return nil
}

var (
	_ ledger.Repository  = (*Store)(nil)
	_ profile.Repository = (*Store)(nil)
)
