package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/checkout"
	"github.com/nexcart/storefront/internal/domain"
)

// CheckoutSessions holds the console's current checkout. Begin starts a new
// session when none exists or the previous one was confirmed.
type CheckoutSessions struct {
	mu      sync.Mutex
	current *checkout.Orchestrator
	start   func() *checkout.Orchestrator
}

func NewCheckoutSessions(start func() *checkout.Orchestrator) *CheckoutSessions {
	return &CheckoutSessions{start: start}
}

func (s *CheckoutSessions) begin() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.State().Step == domain.CheckoutStepConfirmed {
		s.current = s.start()
	}
	return s.current
}

func (s *CheckoutSessions) active(c *gin.Context) (*checkout.Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no checkout in progress", "redirect": "/cart"})
		return nil, false
	}
	return s.current, true
}

// CheckoutResponse represents the checkout session state
type CheckoutResponse struct {
	SessionID   string                  `json:"session_id"`
	Step        domain.CheckoutStep     `json:"step"`
	StepIndex   int                     `json:"step_index"`
	Shipping    *domain.ShippingDetails `json:"shipping,omitempty"`
	Payment     domain.PaymentMethod    `json:"payment_method,omitempty"`
	OrderID     int64                   `json:"order_id,omitempty"`
	Order       *OrderResponse          `json:"order,omitempty"`
	UnsyncedIDs []int64                 `json:"unsynced_product_ids,omitempty"`
}

// ReviewResponse represents the order summary before placing
type ReviewResponse struct {
	Lines    []LineResponse          `json:"lines"`
	Subtotal decimal.Decimal         `json:"subtotal"`
	Tax      decimal.Decimal         `json:"tax"`
	Total    decimal.Decimal         `json:"total"`
	Shipping *domain.ShippingDetails `json:"shipping,omitempty"`
	Payment  domain.PaymentMethod    `json:"payment_method,omitempty"`
}

func newCheckoutResponse(state checkout.State) CheckoutResponse {
	resp := CheckoutResponse{
		SessionID: state.SessionID,
		Step:      state.Step,
		StepIndex: state.StepIndex,
		Shipping:  state.Shipping,
		Payment:   state.Payment,
	}
	if state.Confirmation != nil {
		order := newOrderResponse(state.Confirmation.Order)
		resp.OrderID = state.Confirmation.OrderID
		resp.Order = &order
		resp.UnsyncedIDs = state.Confirmation.FailedLines
	}
	return resp
}

// HandleGetCheckout handles GET /v1/checkout
func HandleGetCheckout(sessions *CheckoutSessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessions.active(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(flow.State()))
	}
}

// HandleBeginCheckout handles POST /v1/checkout/begin
func HandleBeginCheckout(sessions *CheckoutSessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow := sessions.begin()
		if _, err := flow.Begin(); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(flow.State()))
	}
}

// HandleSubmitShipping handles POST /v1/checkout/shipping
func HandleSubmitShipping(sessions *CheckoutSessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessions.active(c)
		if !ok {
			return
		}

		var req domain.ShippingDetails
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
		if err := flow.SubmitShipping(req); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(flow.State()))
	}
}

// HandleSubmitPayment handles POST /v1/checkout/payment
func HandleSubmitPayment(sessions *CheckoutSessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessions.active(c)
		if !ok {
			return
		}

		var req domain.PaymentDetails
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
		if err := flow.SubmitPayment(req); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(flow.State()))
	}
}

// HandleCheckoutBack handles POST /v1/checkout/back
func HandleCheckoutBack(sessions *CheckoutSessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessions.active(c)
		if !ok {
			return
		}
		if _, err := flow.Back(); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(flow.State()))
	}
}

// HandleReview handles GET /v1/checkout/review
func HandleReview(sessions *CheckoutSessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessions.active(c)
		if !ok {
			return
		}

		review := flow.Review()
		c.JSON(http.StatusOK, ReviewResponse{
			Lines:    newLineResponses(review.Lines),
			Subtotal: review.Subtotal,
			Tax:      review.Tax,
			Total:    review.Total,
			Shipping: review.Shipping,
			Payment:  review.Payment,
		})
	}
}

// HandlePlaceOrder handles POST /v1/checkout/place
func HandlePlaceOrder(sessions *CheckoutSessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessions.active(c)
		if !ok {
			return
		}
		if _, err := flow.PlaceOrder(c.Request.Context()); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusCreated, newCheckoutResponse(flow.State()))
	}
}
