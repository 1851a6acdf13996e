package invest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/helios/internal/http/render"
	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.purchase)
}

type purchaseRequest struct {
	UserID    uuid.UUID `json:"userId"`
	ProjectID string    `json:"projectId"`
	Shares    int64     `json:"shares"`
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, "invalid request body")
		return
	}

	if req.UserID == uuid.Nil || req.ProjectID == "" {
		render.BadRequest(w, "userId and projectId are required")
		return
	}

	u, err := h.svc.Purchase(r.Context(), req.UserID, req.ProjectID, req.Shares)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, render.User(u))
}
