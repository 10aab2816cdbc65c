package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/felipeadeildo/insper-sync/internal/config"
	"github.com/felipeadeildo/insper-sync/internal/database"
	"github.com/felipeadeildo/insper-sync/internal/google"
	"github.com/felipeadeildo/insper-sync/internal/logging"
	"github.com/felipeadeildo/insper-sync/internal/store"
	syncengine "github.com/felipeadeildo/insper-sync/internal/sync"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg)
	ctx := context.Background()

	logger.Info("connecting to database")
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("running migrations")
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	users := store.NewUserStore(db.Pool)
	configs := store.NewSyncConfigurationStore(db.Pool)
	sessions := store.NewSyncSessionStore(db.Pool)
	upstream := store.NewUpstreamEventStore(db.Pool)
	downstream := store.NewDownstreamEventStore(db.Pool)
	mappings := store.NewEventMappingStore(db.Pool)

	tokens := google.NewTokenManager(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, users)
	calendarClient := google.NewCalendarClient()

	orchestrator := syncengine.NewOrchestrator(
		users, configs, sessions, upstream, downstream, mappings,
		tokens, calendarClient, cfg.PortalBaseURL,
		cfg.JobWorkerMaxPerRun, cfg.SyncRetryMax, cfg.SyncRetryDelay, logger,
	)

	schedulerConfig := syncengine.DefaultSchedulerConfig()
	schedulerConfig.CleanupCron = cfg.BackgroundSyncCron
	schedulerConfig.SessionRetention = cfg.SessionRetention
	scheduler := syncengine.NewScheduler(schedulerConfig, orchestrator, logger)

	schedulerCtx, cancelScheduler := context.WithCancel(ctx)
	scheduler.Start(schedulerCtx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/auth/google/start", func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			http.Error(w, "invalid or missing user_id", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, tokens.GetAuthorizationURL(userID.String()), http.StatusFound)
	})

	r.Get("/auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("state"))
		if err != nil {
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		creds, err := tokens.ExchangeCode(r.Context(), code)
		if err != nil {
			logger.Error("oauth callback: code exchange failed", "user_id", userID, "error", err)
			http.Error(w, "failed to exchange authorization code", http.StatusBadGateway)
			return
		}
		if err := users.UpdateOAuthCredentials(r.Context(), userID, *creds); err != nil {
			logger.Error("oauth callback: failed to persist credentials", "user_id", userID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Google Calendar connected. You can close this tab."))
	})

	r.Post("/sync/{userID}", func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		inFlight, err := sessions.HasRunningWithin(r.Context(), userID, cfg.InFlightWindow)
		if err != nil {
			logger.Error("sync trigger: failed to check in-flight session", "user_id", userID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if inFlight {
			http.Error(w, "a sync is already running for this user", http.StatusConflict)
			return
		}

		session, err := orchestrator.SyncUserCalendarWithRetry(r.Context(), userID, nil, nil)
		if err != nil {
			logger.Error("sync trigger: sync failed", "user_id", userID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(session)
	})

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down")
		cancelScheduler()
		scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
