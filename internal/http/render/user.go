package render

import (
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

// UserResponse is the public view of a profile, shared by every endpoint that returns one.
type UserResponse struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Balance Money     `json:"balance"`
}

func User(u *ledger.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Balance: NewMoney(u.Balance),
	}
}
