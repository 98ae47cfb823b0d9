package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/domain"
	"github.com/nexcart/storefront/internal/nexcart"
	apperrors "github.com/nexcart/storefront/pkg/errors"
)

// OrderBackend is the part of the NexCart client order history needs
type OrderBackend interface {
	ListOrders(ctx context.Context) (nexcart.Page[domain.Order], error)
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	CancelOrder(ctx context.Context, id int64) (domain.Order, error)
}

type OrderService struct {
	backend OrderBackend
	logger  *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(backend OrderBackend, logger *zap.Logger) *OrderService {
	return &OrderService{
		backend: backend,
		logger:  logger,
	}
}

// List returns the user's orders, limited to status when it is set
func (s *OrderService) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status != "" && !status.IsValid() {
		return nil, &apperrors.ErrValidation{Field: "status", Message: "unknown order status " + string(status)}
	}

	page, err := s.backend.ListOrders(ctx)
	if err != nil {
		return nil, translate(err, "")
	}
	if status == "" {
		return page.Items, nil
	}

	orders := make([]domain.Order, 0, len(page.Items))
	for _, o := range page.Items {
		if o.Status == status {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// Get fetches a single order
func (s *OrderService) Get(ctx context.Context, id int64) (domain.Order, error) {
	order, err := s.backend.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, translate(err, strconv.FormatInt(id, 10))
	}
	return order, nil
}

// Cancel requests cancellation of a pending or processing order
func (s *OrderService) Cancel(ctx context.Context, id int64) (domain.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	// Validate state transition
	if !order.Status.IsCancellable() {
		return domain.Order{}, &apperrors.ErrInvalidStateTransition{
			From: order.Status,
			To:   domain.OrderStatusCancelled,
		}
	}

	cancelled, err := s.backend.CancelOrder(ctx, id)
	if err != nil {
		s.logger.Error("Failed to cancel order", zap.Int64("order_id", id), zap.Error(err))
		return domain.Order{}, translate(err, strconv.FormatInt(id, 10))
	}

	s.logger.Info("Order cancelled", zap.Int64("order_id", id))
	return cancelled, nil
}

// translate maps backend failures onto the typed errors callers switch on.
// Other API errors keep the backend detail as their message.
func translate(err error, id string) error {
	if errors.Is(err, nexcart.ErrNoCredential) {
		return &apperrors.ErrUnauthorized{Message: "sign in to view your orders"}
	}
	var apiErr *nexcart.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &apperrors.ErrUnauthorized{Message: apiErr.Detail}
		case http.StatusNotFound:
			return &apperrors.ErrNotFound{Resource: "order", ID: id}
		}
	}
	return err
}
