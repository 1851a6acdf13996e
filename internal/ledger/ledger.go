package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the funding lifecycle of a project.
type Status string

const (
	StatusFunding   Status = "funding"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known project statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusFunding, StatusActive, StatusCompleted:
		return true
	}

	return false
}

// TransactionType represents the kind of balance-affecting event.
type TransactionType string

const (
	TypePurchase   TransactionType = "purchase"
	TypeDividend   TransactionType = "dividend"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// MoneyScale is the number of decimal places balances and prices are stored with.
const MoneyScale = 2

// ValidMoney reports whether d is representable at MoneyScale without rounding.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// User is an investor profile. Balance is never negative.
type User struct {
	ID           uuid.UUID
	ExternalID   *string // Identity provider subject, if any
	Email        string
	Name         string
	PasswordHash string
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// Project is a solar project whose shares can be bought.
type Project struct {
	ID              string
	Name            string
	Location        string
	Capacity        string
	Image           string
	Description     string
	TotalShares     int64
	AvailableShares int64
	PricePerShare   decimal.Decimal
	ExpectedYield   decimal.Decimal // Annual percent
	Status          Status
}

// Investment links a user to shares of a project. Never mutated after insert.
type Investment struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProjectID string
	Shares    int64
	Amount    decimal.Decimal
	Timestamp time.Time
}

// Holding is an Investment enriched with the owning project's display fields.
type Holding struct {
	Investment
	ProjectName   string
	Location      string
	Image         string
	ExpectedYield decimal.Decimal
}

// Transaction is an append-only ledger entry. Amount is negative when money leaves the user.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        TransactionType
	ProjectName *string
	Amount      decimal.Decimal
	Timestamp   time.Time
}
