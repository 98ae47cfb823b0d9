package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/cart"
	"github.com/nexcart/storefront/internal/domain"
)

// AddItemRequest represents the add-to-cart payload
type AddItemRequest struct {
	ProductID     int64            `json:"product_id" binding:"required,min=1"`
	Name          string           `json:"name" binding:"required"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	Image         string           `json:"image"`
	Quantity      int              `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateQuantityRequest represents the quantity change payload; zero removes the line
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// HandleGetCart handles GET /v1/cart
func HandleGetCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, newCartResponse(store.Snapshot(), nil))
	}
}

// HandleAddCartItem handles POST /v1/cart/items
func HandleAddCartItem(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid add item request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
		if !req.Price.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": "price must be positive"})
			return
		}

		product := domain.Product{
			ID:            req.ProductID,
			Name:          req.Name,
			Price:         req.Price,
			DiscountPrice: req.DiscountPrice,
			Image:         req.Image,
		}
		result := store.AddItem(c.Request.Context(), product, req.Quantity)
		c.JSON(http.StatusOK, newCartResponse(store.Snapshot(), &result))
	}
}

// HandleUpdateCartItem handles PATCH /v1/cart/items/:productId
func HandleUpdateCartItem(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := parseID(c, "productId")
		if !ok {
			return
		}

		var req UpdateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid update quantity request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}

		result := store.UpdateQuantity(c.Request.Context(), productID, *req.Quantity)
		c.JSON(http.StatusOK, newCartResponse(store.Snapshot(), &result))
	}
}

// HandleRemoveCartItem handles DELETE /v1/cart/items/:productId
func HandleRemoveCartItem(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := parseID(c, "productId")
		if !ok {
			return
		}
		result := store.RemoveItem(c.Request.Context(), productID)
		c.JSON(http.StatusOK, newCartResponse(store.Snapshot(), &result))
	}
}

// HandleClearCart handles DELETE /v1/cart
func HandleClearCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := store.Clear(c.Request.Context())
		c.JSON(http.StatusOK, newCartResponse(store.Snapshot(), &result))
	}
}

// HandleReloadCart handles POST /v1/cart/reload
func HandleReloadCart(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := store.Load(c.Request.Context())
		c.JSON(http.StatusOK, newCartResponse(store.Snapshot(), &result))
	}
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}
