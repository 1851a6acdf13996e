package render_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/helios/internal/http/render"
	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", ledger.ErrNotFound, http.StatusNotFound, "not_found", "Not found"},
		{"funds", ledger.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds", "Insufficient balance"},
		{"inventory", ledger.ErrInsufficientInventory, http.StatusBadRequest, "insufficient_inventory", "Not enough shares available"},
		{"duplicate", ledger.ErrDuplicateIdentity, http.StatusBadRequest, "duplicate_identity", "Email already exists"},
		{"credentials", ledger.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"},
		{"invalid shares", ledger.ErrInvalidShares, http.StatusBadRequest, "invalid_request", ledger.ErrInvalidShares.Error()},
		{"invalid request", fmt.Errorf("email is malformed: %w", ledger.ErrInvalidRequest), http.StatusBadRequest, "invalid_request", "email is malformed: invalid request"},
		{"sync", ledger.ErrSyncFailed, http.StatusInternalServerError, "sync_failed", "Profile is not available yet, please try again"},
		{"store", fmt.Errorf("query: %w", errors.New("connection refused")), http.StatusInternalServerError, "store_error", "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			render.Error(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body render.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestMoney(t *testing.T) {
	b, err := json.Marshal(struct {
		Balance render.Money `json:"balance"`
	}{render.NewMoney(decimal.RequireFromString("950.50"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":950.5}`, string(b))

	var in struct {
		Amount render.Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.25"}`), &in))
	assert.True(t, decimal.RequireFromString("12.25").Equal(in.Amount.Decimal))
}
