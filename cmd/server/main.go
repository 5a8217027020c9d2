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

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/controller"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/middleware"
	"github.com/ikkim/storefront-cart/internal/router"
	"github.com/ikkim/storefront-cart/internal/scheduler"
	"github.com/ikkim/storefront-cart/internal/storage"
	ws "github.com/ikkim/storefront-cart/internal/websocket"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Log.Level
	if logLevel == "" {
		logLevel = "info"
		if cfg.Server.Environment == "development" {
			logLevel = "debug"
		}
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format == "console",
		Service:     "storefront-cart",
	})

	logger.Info("Starting storefront cart server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"storage":     cfg.Cart.StorageBackend,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize cart storage
	cartRepo, closeStorage, err := storage.OpenCartRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open cart storage", err)
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logger.Error("Failed to close cart storage", err)
		}
	}()

	// Initialize services
	carts := service.NewCartRegistry(cartRepo, cfg.Cart.StorageKey, cfg.Cart.PersistTimeout)

	hub := ws.NewHub()
	go hub.Run(ctx)
	carts.OnChange(hub.PublishCart)

	flushScheduler := scheduler.NewCartFlushScheduler(carts, cfg.Cart.FlushSchedule, cfg.Cart.PersistTimeout, cfg.Session.TTL)
	if err := flushScheduler.Start(); err != nil {
		logger.Fatal("Failed to start cart flush scheduler", err)
	}

	// Initialize controllers and middleware
	cartController := controller.NewCartController(carts)
	cartFeedController := controller.NewCartFeedController(carts, hub, cfg.CORS.AllowedOrigins)
	sessionMiddleware := middleware.NewSessionMiddleware(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookie)

	// Setup router
	r := router.NewRouter(cartController, cartFeedController, sessionMiddleware, cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	flushScheduler.Stop()

	// Last attempt for carts whose writes failed
	if flushed, err := carts.FlushDirty(shutdownCtx); err != nil {
		logger.Error("Some carts could not be persisted before exit", err, map[string]interface{}{
			"flushed": flushed,
		})
	}

	logger.Info("Server stopped successfully")
}
