package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/helios/internal/http/auth"
	"github.com/MrJamesThe3rd/helios/internal/http/invest"
	"github.com/MrJamesThe3rd/helios/internal/http/project"
	"github.com/MrJamesThe3rd/helios/internal/http/render"
	"github.com/MrJamesThe3rd/helios/internal/http/user"
)

type Options struct {
	Timeout        time.Duration
	AllowedOrigins []string
}

func New(
	opts Options,
	authV1 *auth.Handler,
	projectsV1 *project.Handler,
	investV1 *invest.Handler,
	usersV1 *user.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			authV1.Routes(r)
		})

		r.Route("/projects", projectsV1.Routes)

		r.Route("/invest", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			investV1.Routes(r)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			usersV1.Routes(r)
		})
	})

	return router
}
