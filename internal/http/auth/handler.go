package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/helios/internal/auth"
	"github.com/MrJamesThe3rd/helios/internal/http/render"
	"github.com/MrJamesThe3rd/helios/internal/profile"
)

type Handler struct {
	profiles *profile.Service
	verifier *auth.Verifier
}

// NewHandler creates the auth handler. With a nil verifier, external logins
// trust the id and email sent by the client.
func NewHandler(profiles *profile.Service, verifier *auth.Verifier) *Handler {
	return &Handler{profiles: profiles, verifier: verifier}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		render.BadRequest(w, "email and password are required")
		return
	}

	u, err := h.profiles.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, render.User(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// External identity provider fields.
	IsSupabase  bool   `json:"isSupabase"`
	ID          string `json:"id"`
	AccessToken string `json:"accessToken"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.BadRequest(w, "invalid request body")
		return
	}

	if !req.IsSupabase {
		u, err := h.profiles.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusOK, render.User(u))

		return
	}

	id := profile.Identity{ExternalID: req.ID, Email: req.Email}

	if h.verifier != nil {
		token := req.AccessToken
		if token == "" {
			token = r.Header.Get("Authorization")
		}

		verified, err := h.verifier.Verify(token)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		id = verified
		if id.Email == "" {
			id.Email = req.Email
		}
	}

	u, err := h.profiles.Sync(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, render.User(u))
}
