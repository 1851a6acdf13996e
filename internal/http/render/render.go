// Package render writes JSON responses and maps service errors to HTTP statuses.
package render

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Money is a decimal that marshals as a bare JSON number.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

var statusByCode = map[string]int{
	ledger.CodeNotFound:              http.StatusNotFound,
	ledger.CodeInsufficientFunds:     http.StatusBadRequest,
	ledger.CodeInsufficientInventory: http.StatusBadRequest,
	ledger.CodeDuplicateIdentity:     http.StatusBadRequest,
	ledger.CodeInvalidRequest:        http.StatusBadRequest,
	ledger.CodeInvalidCredentials:    http.StatusUnauthorized,
	ledger.CodeSyncFailed:            http.StatusInternalServerError,
	ledger.CodeStoreError:            http.StatusInternalServerError,
}

var messageByCode = map[string]string{
	ledger.CodeNotFound:              "Not found",
	ledger.CodeInsufficientFunds:     "Insufficient balance",
	ledger.CodeInsufficientInventory: "Not enough shares available",
	ledger.CodeDuplicateIdentity:     "Email already exists",
	ledger.CodeInvalidCredentials:    "Invalid credentials",
	ledger.CodeSyncFailed:            "Profile is not available yet, please try again",
	ledger.CodeStoreError:            "Internal error",
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes the stable client form of err. Internal details are only logged.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	code := ledger.Code(err)

	msg, ok := messageByCode[code]
	if !ok {
		msg = err.Error()
	}

	if code == ledger.CodeStoreError || code == ledger.CodeSyncFailed {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	JSON(w, statusByCode[code], ErrorResponse{Error: msg, Code: code})
}

// BadRequest reports a malformed request.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: ledger.CodeInvalidRequest})
}
