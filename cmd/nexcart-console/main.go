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

	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/api"
	"github.com/nexcart/storefront/internal/api/handlers"
	"github.com/nexcart/storefront/internal/api/middleware"
	"github.com/nexcart/storefront/internal/app"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/logger"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-key" {
		hashKey(os.Args[2:])
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storefront", zap.Error(err))
	}
	defer a.Close()

	if err := a.Cart.Start(ctx); err != nil {
		log.Fatal("Failed to start cart", zap.Error(err))
	}

	router := api.NewRouter(cfg, api.Dependencies{
		Cart:     a.Cart,
		Checkout: handlers.NewCheckoutSessions(a.NewCheckout),
		Orders:   a.Orders,
		Session:  a.Session,
		Metrics:  a.Metrics.Handler(),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Storefront console listening",
			zap.String("addr", srv.Addr),
			zap.String("api", cfg.API.BaseURL),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func hashKey(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: nexcart-console hash-key <console-key>")
		fmt.Println("Example: nexcart-console hash-key \"my-console-key\"")
		os.Exit(1)
	}

	hash, err := middleware.HashKey(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash console key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Add this to your environment or .env:\n\n")
	fmt.Printf("CONSOLE_KEY_HASH=%s\n", hash)
	fmt.Printf("\nThen call the console with:\n")
	fmt.Printf("Authorization: Bearer %s\n", args[0])
}
