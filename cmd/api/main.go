package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/helios/internal/app"
	"github.com/MrJamesThe3rd/helios/internal/auth"
	"github.com/MrJamesThe3rd/helios/internal/config"
	heliosHttp "github.com/MrJamesThe3rd/helios/internal/http"
	authHandler "github.com/MrJamesThe3rd/helios/internal/http/auth"
	investHandler "github.com/MrJamesThe3rd/helios/internal/http/invest"
	projectHandler "github.com/MrJamesThe3rd/helios/internal/http/project"
	userHandler "github.com/MrJamesThe3rd/helios/internal/http/user"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if _, err := a.Seed(ctx, ""); err != nil {
		slog.Error("failed to seed projects", "error", err)
		os.Exit(1)
	}

	var verifier *auth.Verifier
	if cfg.Supabase.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Supabase.JWTSecret)
	}

	var (
		authH    = authHandler.NewHandler(a.Profiles, verifier)
		projectH = projectHandler.NewHandler(a.Ledger)
		investH  = investHandler.NewHandler(a.Ledger)
		userH    = userHandler.NewHandler(a.Ledger)
	)

	router := heliosHttp.New(heliosHttp.Options{
		Timeout:        cfg.Server.Timeout,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}, authH, projectH, investH, userH)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
}
