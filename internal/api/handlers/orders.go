package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/domain"
	"github.com/nexcart/storefront/internal/service"
)

// HandleListOrders handles GET /v1/orders
func HandleListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.OrderStatus(c.Query("status"))

		list, err := orders.List(c.Request.Context(), status)
		if err != nil {
			respondError(c, err, logger)
			return
		}

		responses := make([]OrderResponse, len(list))
		for i, order := range list {
			responses[i] = newOrderResponse(order)
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": responses,
			"count":  len(responses),
		})
	}
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		order, err := orders.Get(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel
func HandleCancelOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseID(c, "id")
		if !ok {
			return
		}

		order, err := orders.Cancel(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, err, logger)
			return
		}

		logger.Info("Order cancelled via console", zap.Int64("order_id", orderID))
		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}
