package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

func newTestStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(srv.URL, "service-key", srv.Client())
}

func TestStore_GetUser(t *testing.T) {
	id := uuid.New()

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "eq."+id.String(), r.URL.Query().Get("id"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		_, _ = io.WriteString(w, `[{"id":"`+id.String()+`","email":"a@b.c","name":"a","balance":1000.5,"created_at":"2024-05-01T10:00:00Z"}]`)
	})

	u, err := s.GetUser(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, u.ID)
	assert.Equal(t, "a@b.c", u.Email)
	assert.True(t, decimal.RequireFromString("1000.5").Equal(u.Balance))
	require.NotNil(t, u.ExternalID)
	assert.Equal(t, id.String(), *u.ExternalID)
}

func TestStore_GetUser_NotFound(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := s.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_GetUserByExternalID_NotUUID(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := s.GetUserByExternalID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_CreateUser_Duplicate(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"code":"23505","message":"duplicate key value violates unique constraint \"profiles_email_key\""}`)
	})

	err := s.CreateUser(context.Background(), &ledger.User{Email: "a@b.c", Name: "a"})
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdentity)
}

func TestStore_CountProjects(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    int
		wantErr bool
	}{
		{name: "empty", header: "*/0", want: 0},
		{name: "three", header: "0-0/3", want: 3},
		{name: "unknown total", header: "0-0/*", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "count=exact", r.Header.Get("Prefer"))

				w.Header().Set("Content-Range", tt.header)
				_, _ = io.WriteString(w, `[]`)
			})

			n, err := s.CountProjects(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestStore_ListHoldings(t *testing.T) {
	userID := uuid.New()

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/investments", r.URL.Path)
		assert.Equal(t, "*,projects(name,location,image,expected_yield)", r.URL.Query().Get("select"))

		_, _ = io.WriteString(w, `[{"id":"`+uuid.NewString()+`","user_id":"`+userID.String()+`","project_id":"1","shares":10,"amount":500,"created_at":"2024-05-01T10:00:00Z",
			"projects":{"name":"Desert Sun Array","location":"Mojave Desert, CA","image":"img","expected_yield":8.5}}]`)
	})

	hs, err := s.ListHoldings(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, hs, 1)

	assert.Equal(t, "Desert Sun Array", hs[0].ProjectName)
	assert.Equal(t, int64(10), hs[0].Shares)
	assert.True(t, decimal.RequireFromString("8.5").Equal(hs[0].ExpectedYield))
}

func TestUnit_Commit(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var got applyPayload

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/helios_apply_ledger", r.URL.Path)

		var body struct {
			Payload applyPayload `json:"payload"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body.Payload

		w.WriteHeader(http.StatusNoContent)
	})

	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, uow.UpdateBalance(ctx, userID, decimal.NewFromInt(1000), decimal.NewFromInt(950)))
	require.NoError(t, uow.UpdateAvailableShares(ctx, "1", 2450, 2449))
	require.NoError(t, uow.InsertTransaction(ctx, &ledger.Transaction{
		ID: uuid.New(), UserID: userID, Type: ledger.TypePurchase, Amount: decimal.NewFromInt(-50), Timestamp: now,
	}))
	require.NoError(t, uow.Commit())

	require.Len(t, got.Balances, 1)
	assert.True(t, decimal.NewFromInt(950).Equal(got.Balances[0].Next))
	require.Len(t, got.Inventory, 1)
	assert.Equal(t, int64(2449), got.Inventory[0].Next)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, ledger.TypePurchase, got.Transactions[0].Type)
}

func TestUnit_Commit_Conflict(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"P0001","message":"ledger_conflict"}`)
	})

	ctx := context.Background()

	uow, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, uow.UpdateBalance(ctx, uuid.New(), decimal.NewFromInt(10), decimal.NewFromInt(5)))

	err = uow.Commit()
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.NoError(t, uow.Rollback())
}
