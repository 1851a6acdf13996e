package ledger_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ledger.ErrNotFound, ledger.CodeNotFound},
		{fmt.Errorf("debit balance: %w", ledger.ErrInsufficientFunds), ledger.CodeInsufficientFunds},
		{ledger.ErrInsufficientInventory, ledger.CodeInsufficientInventory},
		{ledger.ErrDuplicateIdentity, ledger.CodeDuplicateIdentity},
		{ledger.ErrSyncFailed, ledger.CodeSyncFailed},
		{ledger.ErrInvalidCredentials, ledger.CodeInvalidCredentials},
		{ledger.ErrInvalidShares, ledger.CodeInvalidRequest},
		{ledger.ErrInvalidAmount, ledger.CodeInvalidRequest},
		{fmt.Errorf("register: %w", ledger.ErrInvalidRequest), ledger.CodeInvalidRequest},
		{fmt.Errorf("purchase: gave up: %w", ledger.ErrConflict), ledger.CodeStoreError},
		{errors.New("connection refused"), ledger.CodeStoreError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.Code(tt.err))
		})
	}
}
