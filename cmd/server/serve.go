package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/langchou/chargebook/internal/api/ampeco"
	"github.com/langchou/chargebook/internal/api/handlers"
	"github.com/langchou/chargebook/internal/auth"
	"github.com/langchou/chargebook/internal/config"
	"github.com/langchou/chargebook/internal/service"
	"github.com/langchou/chargebook/pkg/ws"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting chargebook",
		zap.String("version", Version),
		zap.String("port", cfg.ServerPort),
		zap.String("ampeco_url", cfg.AmpecoAPIURL))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := ampeco.NewClient(cfg.AmpecoAPIURL, cfg.AmpecoAPIToken, cfg.ProviderTimeout)

	wsHub := ws.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go wsHub.Run(hubCtx)

	sites := service.NewSiteService(client, logger)
	bookings := service.NewBookingService(client, service.NewEnricher(client, logger), wsHub, logger)

	handler := handlers.NewHandler(logger, sites, bookings, auth.NewSharedSecret(cfg.AdminPassword), wsHub)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handler, cfg.CORSOrigin, cfg.RequestTimeout)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopHub()

	logger.Info("Server exited")
	return nil
}
