package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example/marketplace/internal/config"
	"example/marketplace/internal/events"
	"example/marketplace/internal/ledger"
	"example/marketplace/internal/logger"
	"example/marketplace/internal/market"
	"example/marketplace/internal/repository"
	"example/marketplace/internal/server"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.Env)
	defer logger.Sync()

	logger.Log.Info("Starting Marketplace Server")

	db, err := server.OpenDatabase(cfg.DB)
	if err != nil {
		logger.Log.Fatalw("Failed to initialize database", "error", err)
	}
	defer server.CloseDatabase(db)

	ctx := context.Background()
	if err := repository.CreateSchema(ctx, db, cfg.DB.Driver); err != nil {
		logger.Log.Fatalw("Failed to create schema", "error", err)
	}

	bank := ledger.NewSQLBank(db)
	if err := bank.CreateSchema(ctx); err != nil {
		logger.Log.Fatalw("Failed to create ledger schema", "error", err)
	}

	pub := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer pub.Close()

	svc, err := market.New(ctx, db, bank,
		market.WithLedgerTimeout(cfg.LedgerTimeout),
		market.WithEvents(pub),
	)
	if err != nil {
		logger.Log.Fatalw("Failed to load marketplace", "error", err)
	}

	ws := server.NewHandler(svc, cfg.SinkBuffer)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.HandleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Marketplace Server\nConnect to ws://<host>%s/ws\n", cfg.HTTPAddr)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Log.Infow("WebSocket server starting", "addr", cfg.HTTPAddr, "endpoint", "/ws")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalw("Server error", "error", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	logger.Log.Infow("Shutdown signal received", "signal", s.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP shutdown error", "error", err)
	}
	if err := ws.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("WebSocket shutdown error", "error", err)
	}
	logger.Log.Info("Marketplace Server stopped")
}
