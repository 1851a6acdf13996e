package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

var userColumns = []string{"id", "external_id", "email", "name", "password_hash", "balance", "created_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return New(db), mock
}

func beginUnit(t *testing.T, s *Store, mock sqlmock.Sqlmock) ledger.UnitOfWork {
	t.Helper()

	mock.ExpectBegin()

	uow, err := s.Begin(context.Background())
	require.NoError(t, err)

	return uow
}

type fakeResult struct {
	n   int64
	err error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, r.err }

func TestRequireOneRow(t *testing.T) {
	tests := []struct {
		name    string
		res     fakeResult
		wantErr error
	}{
		{name: "matched", res: fakeResult{n: 1}},
		{name: "stale expected value", res: fakeResult{n: 0}, wantErr: ledger.ErrConflict},
		{name: "driver error", res: fakeResult{err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requireOneRow(tt.res)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.res.err != nil:
				assert.ErrorContains(t, err, "reading rows affected")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestUnit_UpdateBalance(t *testing.T) {
	userID := uuid.New()
	expected := decimal.NewFromInt(1000)
	next := decimal.NewFromInt(950)

	tests := []struct {
		name     string
		affected int64
		execErr  error
		wantErr  error
		wantMsg  string
	}{
		{name: "Applied", affected: 1},
		{name: "BalanceChanged", affected: 0, wantErr: ledger.ErrConflict},
		{name: "DriverError", execErr: errors.New("connection reset"), wantMsg: "updating balance: connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			uow := beginUnit(t, s, mock)

			exec := mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET balance = $1 WHERE id = $2 AND balance = $3`)).
				WithArgs(next, userID, expected)
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			mock.ExpectRollback()

			err := uow.UpdateBalance(context.Background(), userID, expected, next)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				assert.EqualError(t, err, tt.wantMsg)
			default:
				assert.NoError(t, err)
			}

			assert.NoError(t, uow.Rollback())
		})
	}
}

func TestUnit_UpdateAvailableShares(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "Applied", affected: 1},
		{name: "InventoryChanged", affected: 0, wantErr: ledger.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			uow := beginUnit(t, s, mock)

			mock.ExpectExec(regexp.QuoteMeta(`UPDATE projects SET available_shares = $1 WHERE id = $2 AND available_shares = $3`)).
				WithArgs(int64(2449), "1", int64(2450)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectRollback()

			err := uow.UpdateAvailableShares(context.Background(), "1", 2450, 2449)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, uow.Rollback())
		})
	}
}

func TestUnit_GetUser_LocksRowAndScansNulls(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	external := "ext-1"

	tests := []struct {
		name         string
		externalID   any
		passwordHash any
		wantExternal *string
		wantHash     string
	}{
		{name: "PasswordProfile", externalID: nil, passwordHash: "$2a$10$hash", wantHash: "$2a$10$hash"},
		{name: "ExternalProfile", externalID: external, passwordHash: nil, wantExternal: &external},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			uow := beginUnit(t, s, mock)

			mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1 FOR UPDATE`)).
				WithArgs(id).
				WillReturnRows(sqlmock.NewRows(userColumns).
					AddRow(id.String(), tt.externalID, "ana@example.com", "ana", tt.passwordHash, "1000.00", created))
			mock.ExpectRollback()

			u, err := uow.GetUser(context.Background(), id)
			require.NoError(t, err)

			assert.Equal(t, id, u.ID)
			assert.Equal(t, tt.wantExternal, u.ExternalID)
			assert.Equal(t, tt.wantHash, u.PasswordHash)
			assert.True(t, decimal.NewFromInt(1000).Equal(u.Balance))
			assert.Equal(t, created, u.CreatedAt)

			assert.NoError(t, uow.Rollback())
		})
	}
}

func TestUnit_GetProject_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	uow := beginUnit(t, s, mock)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM projects WHERE id = $1 FOR UPDATE`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := uow.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.NoError(t, uow.Rollback())
}

func TestUnit_RollbackAfterCommit(t *testing.T) {
	s, mock := newMockStore(t)
	uow := beginUnit(t, s, mock)

	mock.ExpectCommit()

	require.NoError(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
}

func TestStore_CreateUser(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
		wantMsg string
	}{
		{name: "Created"},
		{name: "UniqueViolation", err: &pgconn.PgError{Code: uniqueViolation}, wantErr: ledger.ErrDuplicateIdentity},
		{name: "OtherError", err: errors.New("connection refused"), wantMsg: "creating user: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			u := &ledger.User{Email: "ana@example.com", Name: "ana", Balance: decimal.NewFromInt(1000)}

			q := mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`))
			if tt.err != nil {
				q.WillReturnError(tt.err)
			} else {
				q.WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
			}

			err := s.CreateUser(context.Background(), u)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				assert.EqualError(t, err, tt.wantMsg)
			default:
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, u.ID)
				assert.False(t, u.CreatedAt.IsZero())
			}
		})
	}
}
