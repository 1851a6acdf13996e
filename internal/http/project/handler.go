package project

import (
	"net/http"

	"github.com/go-chi/chi/v5"

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
	r.Get("/", h.list)
}

type projectResponse struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Location        string        `json:"location"`
	Capacity        string        `json:"capacity"`
	TotalShares     int64         `json:"totalShares"`
	AvailableShares int64         `json:"availableShares"`
	PricePerShare   render.Money  `json:"pricePerShare"`
	ExpectedYield   render.Money  `json:"expectedYield"`
	Status          ledger.Status `json:"status"`
	Image           string        `json:"image"`
	Description     string        `json:"description"`
}

func toResponse(p *ledger.Project) projectResponse {
	return projectResponse{
		ID:              p.ID,
		Name:            p.Name,
		Location:        p.Location,
		Capacity:        p.Capacity,
		TotalShares:     p.TotalShares,
		AvailableShares: p.AvailableShares,
		PricePerShare:   render.NewMoney(p.PricePerShare),
		ExpectedYield:   render.NewMoney(p.ExpectedYield),
		Status:          p.Status,
		Image:           p.Image,
		Description:     p.Description,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]projectResponse, len(projects))
	for i, p := range projects {
		resp[i] = toResponse(p)
	}

	render.JSON(w, http.StatusOK, resp)
}
