package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/api/handlers"
	"github.com/nexcart/storefront/internal/api/middleware"
	"github.com/nexcart/storefront/internal/cart"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/service"
)

// Dependencies are the services the console exposes
type Dependencies struct {
	Cart     *cart.Store
	Checkout *handlers.CheckoutSessions
	Orders   *service.OrderService
	Session  *service.SessionService
	// Metrics serves /metrics when set
	Metrics http.Handler
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	// API v1 routes
	v1 := router.Group("/v1")
	v1.Use(middleware.ConsoleKeyMiddleware(cfg.Console.KeyHash, logger))
	{
		v1.GET("/cart", handlers.HandleGetCart(deps.Cart))
		v1.POST("/cart/items", handlers.HandleAddCartItem(deps.Cart, logger))
		v1.PATCH("/cart/items/:productId", handlers.HandleUpdateCartItem(deps.Cart, logger))
		v1.DELETE("/cart/items/:productId", handlers.HandleRemoveCartItem(deps.Cart))
		v1.DELETE("/cart", handlers.HandleClearCart(deps.Cart))
		v1.POST("/cart/reload", handlers.HandleReloadCart(deps.Cart))

		v1.GET("/checkout", handlers.HandleGetCheckout(deps.Checkout))
		v1.POST("/checkout/begin", handlers.HandleBeginCheckout(deps.Checkout, logger))
		v1.POST("/checkout/shipping", handlers.HandleSubmitShipping(deps.Checkout, logger))
		v1.POST("/checkout/payment", handlers.HandleSubmitPayment(deps.Checkout, logger))
		v1.POST("/checkout/back", handlers.HandleCheckoutBack(deps.Checkout, logger))
		v1.GET("/checkout/review", handlers.HandleReview(deps.Checkout))
		v1.POST("/checkout/place", handlers.HandlePlaceOrder(deps.Checkout, logger))

		v1.GET("/orders", handlers.HandleListOrders(deps.Orders, logger))
		v1.GET("/orders/:id", handlers.HandleGetOrder(deps.Orders, logger))
		v1.POST("/orders/:id/cancel", handlers.HandleCancelOrder(deps.Orders, logger))

		v1.POST("/session/login", handlers.HandleLogin(deps.Session, logger))
		v1.POST("/session/logout", handlers.HandleLogout(deps.Session, logger))
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
