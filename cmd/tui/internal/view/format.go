package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

const dbTimeout = 5 * time.Second

// money renders an amount in the view's currency, e.g. "$1,000.00".
func (c CommonModel) money(d decimal.Decimal) string {
	return ledger.FormatMoney(d, c.Currency)
}

// FormatDate formats a time.Time into YYYY-MM-DD HH:MM.
func FormatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// DbCtx returns a context with a standard timeout for store operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
