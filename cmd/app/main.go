package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/live-economy/pkg/audit"
	appconfig "github.com/chris/live-economy/pkg/config"
	"github.com/chris/live-economy/pkg/economy"
	"github.com/chris/live-economy/pkg/feed"
	"github.com/chris/live-economy/pkg/handlers/accounts"
	wshandlers "github.com/chris/live-economy/pkg/handlers/websockets"
	"github.com/chris/live-economy/pkg/middleware"
	"github.com/chris/live-economy/pkg/reconcile"
	dydbstore "github.com/chris/live-economy/pkg/storage/dynamodb"
	"github.com/chris/live-economy/pkg/websockets"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// broadcast forwards reconciled accounts to locally connected websocket clients.
func broadcast(hub *websockets.Hub, logger *slog.Logger) func(feed.Snapshot) {
	return func(snap feed.Snapshot) {
		if hub.Len() == 0 {
			return
		}
		if err := hub.Publish(context.Background(), websockets.NewAccountSnapshot(snap.Account, snap.Deleted)); err != nil {
			logger.Warn("failed to broadcast snapshot", "user_id", snap.Account.UserId, "error", err)
		}
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := appconfig.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// AWS Session
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("unable to load SDK config", "error", err)
		os.Exit(1)
	}

	store := dydbstore.New(dynamodb.NewFromConfig(awsCfg), cfg.AccountsTable, cfg.ConnectionsTable)

	var recorder audit.Recorder = &audit.LogRecorder{Logger: logger}
	if cfg.FailureQueueURL != "" {
		recorder = audit.NewSQSRecorder(sqs.NewFromConfig(awsCfg), cfg.FailureQueueURL)
	}

	engine := economy.NewEngine(economy.NewExecutor(store, recorder, logger), cfg.DebounceWindow, logger)
	projector := economy.NewProjector()
	session := economy.NewSession(engine, projector, store)
	hub := websockets.NewHub()

	var snapshots feed.Feed
	switch {
	case cfg.StreamARN != "":
		snapshots = feed.NewStreamsFeed(dynamodbstreams.NewFromConfig(awsCfg), cfg.StreamARN, cfg.StreamPollInterval, logger)
	case cfg.FeedURL != "":
		snapshots = feed.NewWebSocketFeed(cfg.FeedURL, nil, cfg.StreamPollInterval, logger)
	default:
		logger.Warn("no snapshot feed configured, remote changes will not be reconciled")
	}

	reconcilerDone := make(chan struct{})
	if snapshots != nil {
		reconciler := reconcile.NewReconciler(snapshots, engine, projector, logger)
		reconciler.OnApplied(broadcast(hub, logger))
		go func() {
			defer close(reconcilerDone)
			if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("reconciler stopped", "error", err)
			}
		}()
	} else {
		close(reconcilerDone)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.NewStructuredLogger(logger))

	accounts.NewAccountsHandler(store, session).Routes(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "environment": cfg.Env})
	})
	if cfg.ConnectionsTable != "" {
		router.Handle("/ws", wshandlers.NewHandler(store, hub))
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	<-reconcilerDone

	// Pending changes are written before exit.
	if err := engine.Close(shutdownCtx); err != nil {
		logger.Error("failed to flush pending changes", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
