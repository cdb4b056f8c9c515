package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"contactlink/internal/config"
	"contactlink/internal/database"
	"contactlink/internal/handlers"
	"contactlink/internal/keymutex"
	"contactlink/internal/logging"
	"contactlink/internal/middleware"
	"contactlink/internal/repository"
	"contactlink/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	logger.Info().Str("driver", db.Driver).Msg("Database initialized")

	repo := repository.New(db)
	locks := keymutex.New()
	svc := service.NewReconciliationService(repo, locks, cfg.ReconcileTimeout)
	identifyHandler := handlers.NewIdentifyHandler(svc)

	router := mux.NewRouter()
	router.HandleFunc("/identify", identifyHandler.Handle).Methods(http.MethodPost)
	router.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)

	handler := middleware.Chain(
		middleware.RequestID(&logger),
		middleware.Recovery(),
		middleware.Logger(),
	)(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Server starting")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}
