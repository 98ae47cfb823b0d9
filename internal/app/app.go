// Package app wires configuration into the storefront services shared by both binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/cart"
	"github.com/nexcart/storefront/internal/checkout"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/metrics"
	"github.com/nexcart/storefront/internal/nexcart"
	"github.com/nexcart/storefront/internal/service"
	"github.com/nexcart/storefront/internal/storage"
)

type App struct {
	Config  *config.Config
	Storage storage.Store
	Client  *nexcart.Client
	Cart    *cart.Store
	Orders  *service.OrderService
	Session *service.SessionService
	Metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	client := nexcart.NewClient(cfg.API, storage.TokenSource{Store: store}, logger, nexcart.WithObserver(m))

	return &App{
		Config:  cfg,
		Storage: store,
		Client:  client,
		Cart:    cart.New(client, store, logger, cart.WithRecorder(m)),
		Orders:  service.NewOrderService(client, logger),
		Session: service.NewSessionService(client, store, logger),
		Metrics: m,
		logger:  logger,
	}, nil
}

// NewCheckout starts a checkout session over the app's cart
func (a *App) NewCheckout() *checkout.Orchestrator {
	return checkout.New(a.Cart, a.Client, a.logger, checkout.Options{
		PushPolicy: a.Config.Checkout.PushPolicy,
		PushMode:   a.Config.Checkout.PushMode,
		TaxRate:    a.Config.Checkout.TaxRate,
		Recorder:   a.Metrics,
	})
}

func (a *App) Close() error {
	a.Cart.Close()
	return a.Storage.Close()
}
