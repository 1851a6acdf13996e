package ledger

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientFunds     = errors.New("insufficient balance")
	ErrInsufficientInventory = errors.New("not enough shares available")
	ErrDuplicateIdentity     = errors.New("email already exists")
	ErrSyncFailed            = errors.New("profile not available yet")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidShares         = errors.New("shares must be a positive integer")
	ErrInvalidAmount         = errors.New("amount must be positive with at most 2 decimal places")
	ErrInvalidRequest        = errors.New("invalid request")

	// ErrConflict is returned by a unit of work when a compare-and-set write
	// finds the stored value changed since it was read.
	ErrConflict = errors.New("concurrent update conflict")
)

// Stable error codes exposed to clients.
const (
	CodeNotFound              = "not_found"
	CodeInsufficientFunds     = "insufficient_funds"
	CodeInsufficientInventory = "insufficient_inventory"
	CodeDuplicateIdentity     = "duplicate_identity"
	CodeSyncFailed            = "sync_failed"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeInvalidRequest        = "invalid_request"
	CodeStoreError            = "store_error"
)

// Code maps an error returned by this module to its stable client code.
// Anything unrecognised is reported as a store error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrInsufficientInventory):
		return CodeInsufficientInventory
	case errors.Is(err, ErrDuplicateIdentity):
		return CodeDuplicateIdentity
	case errors.Is(err, ErrSyncFailed):
		return CodeSyncFailed
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrInvalidShares), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	}

	return CodeStoreError
}
