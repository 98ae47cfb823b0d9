package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/cart"
	"github.com/nexcart/storefront/internal/checkout"
	"github.com/nexcart/storefront/internal/domain"
	"github.com/nexcart/storefront/internal/nexcart"
	apperrors "github.com/nexcart/storefront/pkg/errors"
)

// LineResponse represents one cart line
type LineResponse struct {
	ProductID     int64            `json:"product_id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Image         string           `json:"image,omitempty"`
	Quantity      int              `json:"quantity"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	CartItemID    *int64           `json:"cart_item_id,omitempty"`
}

// CartResponse represents the cart snapshot
type CartResponse struct {
	Lines     []LineResponse  `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Sync      *SyncResponse   `json:"sync,omitempty"`
}

// SyncResponse tells the caller whether the last change reached the backend
type SyncResponse struct {
	Status cart.SyncStatus `json:"status"`
	Reason string          `json:"reason,omitempty"`
}

type AddressResponse struct {
	ID               int64              `json:"id"`
	Type             domain.AddressType `json:"address_type"`
	StreetAddress    string             `json:"street_address"`
	ApartmentAddress string             `json:"apartment_address,omitempty"`
	City             string             `json:"city"`
	State            string             `json:"state"`
	ZipCode          string             `json:"zip_code"`
	Country          string             `json:"country"`
}

type OrderItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderResponse represents the order response
type OrderResponse struct {
	ID              int64               `json:"id"`
	Status          domain.OrderStatus  `json:"status"`
	Cancellable     bool                `json:"cancellable"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	PaymentStatus   bool                `json:"payment_status"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	ShippingAddress *AddressResponse    `json:"shipping_address,omitempty"`
	BillingAddress  *AddressResponse    `json:"billing_address,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       string              `json:"created_at,omitempty"`
}

func newLineResponses(in []domain.CartLine) []LineResponse {
	lines := make([]LineResponse, len(in))
	for i, l := range in {
		lines[i] = LineResponse{
			ProductID:     l.ProductID,
			Name:          l.Name,
			Price:         l.UnitPrice,
			DiscountPrice: l.DiscountPrice,
			Image:         l.Image,
			Quantity:      l.Quantity,
			Subtotal:      l.Subtotal(),
			CartItemID:    l.RemoteLineID,
		}
	}
	return lines
}

func newCartResponse(snap cart.Snapshot, result *cart.SyncResult) CartResponse {
	resp := CartResponse{Lines: newLineResponses(snap.Lines), ItemCount: snap.ItemCount, Total: snap.Total}
	if result != nil {
		resp.Sync = &SyncResponse{Status: result.Status}
		if result.Reason != nil {
			resp.Sync.Reason = result.Reason.Error()
		}
	}
	return resp
}

func newAddressResponse(a *domain.Address) *AddressResponse {
	if a == nil {
		return nil
	}
	return &AddressResponse{
		ID:               a.ID,
		Type:             a.Type,
		StreetAddress:    a.StreetAddress,
		ApartmentAddress: a.ApartmentAddress,
		City:             a.City,
		State:            a.State,
		ZipCode:          a.ZipCode,
		Country:          a.Country,
	}
}

func newOrderResponse(order domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	response := OrderResponse{
		ID:              order.ID,
		Status:          order.Status,
		Cancellable:     order.Status.IsCancellable(),
		TotalAmount:     order.TotalAmount,
		ShippingCost:    order.ShippingCost,
		PaymentStatus:   order.PaymentStatus,
		TrackingNumber:  order.TrackingNumber,
		ShippingAddress: newAddressResponse(order.ShippingAddress),
		BillingAddress:  newAddressResponse(order.BillingAddress),
		Items:           items,
	}
	if !order.CreatedAt.IsZero() {
		response.CreatedAt = order.CreatedAt.Format(time.RFC3339)
	}
	return response
}

// respondError maps domain and backend errors onto HTTP responses
func respondError(c *gin.Context, err error, logger *zap.Logger) {
	var (
		validation *apperrors.ErrValidation
		transition *apperrors.ErrInvalidStateTransition
		notFound   *apperrors.ErrNotFound
		unauth     *apperrors.ErrUnauthorized
		placeErr   *checkout.PlaceOrderError
		apiErr     *nexcart.APIError
	)

	switch {
	case errors.Is(err, checkout.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "redirect": "/login"})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "redirect": "/cart"})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": gin.H{"field": validation.Field, "message": validation.Message}})
	case errors.Is(err, checkout.ErrInvalidStep), errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &unauth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "redirect": "/login"})
	case errors.As(err, &placeErr):
		status := http.StatusBadGateway
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error(), "details": gin.H{"stage": placeErr.Stage}})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend error", "details": err.Error()})
	default:
		logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
