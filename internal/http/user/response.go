package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/helios/internal/http/render"
	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

// Ledger rows keep the snake_case column names existing clients read.
type holdingResponse struct {
	ID            uuid.UUID    `json:"id"`
	UserID        uuid.UUID    `json:"user_id"`
	ProjectID     string       `json:"project_id"`
	Shares        int64        `json:"shares"`
	Amount        render.Money `json:"amount"`
	Timestamp     time.Time    `json:"timestamp"`
	ProjectName   string       `json:"project_name"`
	Location      string       `json:"location"`
	Image         string       `json:"image"`
	ExpectedYield render.Money `json:"expected_yield"`
}

type transactionResponse struct {
	ID          uuid.UUID              `json:"id"`
	UserID      uuid.UUID              `json:"user_id"`
	Type        ledger.TransactionType `json:"type"`
	ProjectName *string                `json:"project_name"`
	Amount      render.Money           `json:"amount"`
	Timestamp   time.Time              `json:"timestamp"`
}

type summaryResponse struct {
	User              render.UserResponse   `json:"user"`
	TotalInvested     render.Money          `json:"totalInvested"`
	TotalShares       int64                 `json:"totalShares"`
	ProjectedEarnings render.Money          `json:"projectedEarnings"`
	EnergyKWh         render.Money          `json:"energyKwh"`
	CO2Tons           render.Money          `json:"co2Tons"`
	Trees             int64                 `json:"trees"`
	Currency          string                `json:"currency"`
	Display           map[string]string     `json:"display"`
	Holdings          []holdingResponse     `json:"holdings"`
	Recent            []transactionResponse `json:"recentTransactions"`
}

func toHolding(h *ledger.Holding) holdingResponse {
	return holdingResponse{
		ID:            h.ID,
		UserID:        h.UserID,
		ProjectID:     h.ProjectID,
		Shares:        h.Shares,
		Amount:        render.NewMoney(h.Amount),
		Timestamp:     h.Timestamp,
		ProjectName:   h.ProjectName,
		Location:      h.Location,
		Image:         h.Image,
		ExpectedYield: render.NewMoney(h.ExpectedYield),
	}
}

func toHoldingList(hs []*ledger.Holding) []holdingResponse {
	resp := make([]holdingResponse, len(hs))
	for i, h := range hs {
		resp[i] = toHolding(h)
	}

	return resp
}

func toTransaction(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        tx.Type,
		ProjectName: tx.ProjectName,
		Amount:      render.NewMoney(tx.Amount),
		Timestamp:   tx.Timestamp,
	}
}

func toTransactionList(txs []*ledger.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toTransaction(tx)
	}

	return resp
}

func toSummary(s *ledger.Summary) summaryResponse {
	return summaryResponse{
		User:              render.User(s.User),
		TotalInvested:     render.NewMoney(s.TotalInvested),
		TotalShares:       s.TotalShares,
		ProjectedEarnings: render.NewMoney(s.ProjectedEarnings),
		EnergyKWh:         render.NewMoney(s.EnergyKWh),
		CO2Tons:           render.NewMoney(s.CO2Tons),
		Trees:             s.Trees,
		Currency:          s.Currency,
		Display: map[string]string{
			"balance":           s.Format(s.User.Balance),
			"totalInvested":     s.Format(s.TotalInvested),
			"projectedEarnings": s.Format(s.ProjectedEarnings),
		},
		Holdings: toHoldingList(s.Holdings),
		Recent:   toTransactionList(s.Recent),
	}
}
