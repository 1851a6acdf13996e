package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/helios/internal/auth"
	heliosHttp "github.com/MrJamesThe3rd/helios/internal/http"
	authHandler "github.com/MrJamesThe3rd/helios/internal/http/auth"
	investHandler "github.com/MrJamesThe3rd/helios/internal/http/invest"
	projectHandler "github.com/MrJamesThe3rd/helios/internal/http/project"
	userHandler "github.com/MrJamesThe3rd/helios/internal/http/user"
	"github.com/MrJamesThe3rd/helios/internal/ledger"
	"github.com/MrJamesThe3rd/helios/internal/profile"
	"github.com/MrJamesThe3rd/helios/internal/store/memory"
)

const jwtSecret = "test-secret-that-is-long-enough-for-hs256"

type testServer struct {
	router http.Handler
	store  *memory.Store
}

func newTestServer(t *testing.T, verifier *auth.Verifier) *testServer {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	ledgerSvc := ledger.NewService(store, ledger.WithLogger(log))
	_, err := ledgerSvc.SeedProjects(context.Background(), ledger.DefaultProjects())
	require.NoError(t, err)

	profiles := profile.NewService(store, profile.Config{
		StartingBalance: decimal.NewFromInt(1000),
		SyncAttempts:    3,
		SyncDelay:       time.Millisecond,
		AutoCreate:      true,
	}, log)

	router := heliosHttp.New(
		heliosHttp.Options{Timeout: 5 * time.Second, AllowedOrigins: []string{"*"}},
		authHandler.NewHandler(profiles, verifier),
		projectHandler.NewHandler(ledgerSvc),
		investHandler.NewHandler(ledgerSvc),
		userHandler.NewHandler(ledgerSvc),
	)

	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	return rec
}

type userBody struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Balance float64   `json:"balance"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func (s *testServer) register(t *testing.T, email string) userBody {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": "hunter2", "name": "Ana",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return decode[userBody](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)

	u := s.register(t, "Ana@Example.com")
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "Ana", u.Name)
	assert.InDelta(t, 1000.0, u.Balance, 0.001)

	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "ana@example.com", "password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorBody{Error: "Email already exists", Code: "duplicate_identity"}, decode[errorBody](t, rec))

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID, decode[userBody](t, rec).ID)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[errorBody](t, rec).Code)
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing password", body: map[string]string{"email": "a@b.c"}},
		{name: "missing email", body: map[string]string{"password": "x"}},
		{name: "malformed email", body: map[string]string{"email": "not-an-email", "password": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)

			rec := s.do(t, http.MethodPost, "/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "invalid_request", decode[errorBody](t, rec).Code)
		})
	}
}

func TestLogin_External(t *testing.T) {
	s := newTestServer(t, nil)

	body := map[string]any{"id": "ext-123", "email": "sun@example.com", "isSupabase": true}

	rec := s.do(t, http.MethodPost, "/api/auth/login", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	first := decode[userBody](t, rec)
	assert.Equal(t, "sun", first.Name)
	assert.InDelta(t, 1000.0, first.Balance, 0.001)

	rec = s.do(t, http.MethodPost, "/api/auth/login", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[userBody](t, rec).ID, "second sync returns the same profile")
}

func TestLogin_ExternalVerified(t *testing.T) {
	s := newTestServer(t, auth.NewVerifier(jwtSecret))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: "verified@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{auth.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"isSupabase": true, "accessToken": token, "email": "spoofed@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "verified@example.com", decode[userBody](t, rec).Email)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"isSupabase": true, "accessToken": "forged", "email": "spoofed@example.com",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListProjects(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var projects []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&projects))
	require.Len(t, projects, 3)

	assert.Equal(t, "Desert Sun Array", projects[0]["name"])
	assert.InDelta(t, 2450, projects[0]["availableShares"], 0)
	assert.InDelta(t, 50, projects[0]["pricePerShare"], 0)
	assert.Equal(t, "funding", projects[0]["status"])
}

func TestInvest(t *testing.T) {
	s := newTestServer(t, nil)
	u := s.register(t, "ana@example.com")

	rec := s.do(t, http.MethodPost, "/api/invest", map[string]any{"userId": u.ID, "projectId": "1", "shares": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 950.0, decode[userBody](t, rec).Balance, 0.001)

	rec = s.do(t, http.MethodGet, "/api/user/"+u.ID.String()+"/investments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var holdings []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&holdings))
	require.Len(t, holdings, 1)
	assert.Equal(t, "Desert Sun Array", holdings[0]["project_name"])
	assert.InDelta(t, 50, holdings[0]["amount"], 0)
	assert.InDelta(t, 8.5, holdings[0]["expected_yield"], 0.0001)

	rec = s.do(t, http.MethodGet, "/api/user/"+u.ID.String()+"/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var txs []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "purchase", txs[0]["type"])
	assert.InDelta(t, -50, txs[0]["amount"], 0)
}

func TestInvest_Failures(t *testing.T) {
	s := newTestServer(t, nil)
	u := s.register(t, "ana@example.com")

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{"unknown project", map[string]any{"userId": u.ID, "projectId": "999", "shares": 1}, http.StatusNotFound, "not_found"},
		{"unknown user", map[string]any{"userId": uuid.New(), "projectId": "1", "shares": 1}, http.StatusNotFound, "not_found"},
		{"insufficient funds", map[string]any{"userId": u.ID, "projectId": "1", "shares": 21}, http.StatusBadRequest, "insufficient_funds"},
		{"zero shares", map[string]any{"userId": u.ID, "projectId": "1", "shares": 0}, http.StatusBadRequest, "invalid_request"},
		{"fractional shares", map[string]any{"userId": u.ID, "projectId": "1", "shares": 1.5}, http.StatusBadRequest, "invalid_request"},
		{"missing project", map[string]any{"userId": u.ID, "shares": 1}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/invest", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decode[errorBody](t, rec).Code)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/user/"+u.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1000.0, decode[userBody](t, rec).Balance, 0.001, "failed purchases leave the balance untouched")
}

func TestUser_BadID(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/api/user/abc", "/api/user/abc/investments", "/api/user/abc/transactions"} {
		rec := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := s.do(t, http.MethodGet, "/api/user/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDepositWithdrawAndSummary(t *testing.T) {
	s := newTestServer(t, nil)
	u := s.register(t, "ana@example.com")
	base := "/api/user/" + u.ID.String()

	rec := s.do(t, http.MethodPost, base+"/deposit", map[string]any{"amount": 250.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 1250.5, decode[userBody](t, rec).Balance, 0.001)

	rec = s.do(t, http.MethodPost, base+"/withdraw", map[string]any{"amount": 5000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_funds", decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodPost, base+"/withdraw", map[string]any{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodPost, base+"/deposit", map[string]any{"amount": 0.0001})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/invest", map[string]any{"userId": u.ID, "projectId": "1", "shares": 10})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sum struct {
		TotalInvested float64           `json:"totalInvested"`
		TotalShares   int64             `json:"totalShares"`
		EnergyKWh     float64           `json:"energyKwh"`
		Trees         int64             `json:"trees"`
		Display       map[string]string `json:"display"`
		Recent        []map[string]any  `json:"recentTransactions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sum))

	assert.InDelta(t, 500, sum.TotalInvested, 0)
	assert.Equal(t, int64(10), sum.TotalShares)
	assert.InDelta(t, 1240, sum.EnergyKWh, 0)
	assert.Equal(t, int64(15), sum.Trees)
	assert.Equal(t, "$750.50", sum.Display["balance"])
	assert.Len(t, sum.Recent, 2)
}
