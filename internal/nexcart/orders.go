package nexcart

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nexcart/storefront/internal/domain"
)

type createFromCartRequest struct {
	ShippingAddressID int64 `json:"shipping_address_id"`
	BillingAddressID  int64 `json:"billing_address_id"`
}

// CreateOrderFromCart asks the backend to turn the remote cart into an order
func (c *Client) CreateOrderFromCart(ctx context.Context, shippingAddressID, billingAddressID int64) (domain.Order, error) {
	var order orderDTO
	err := c.do(ctx, call{
		operation: "orders.create_from_cart",
		method:    http.MethodPost,
		path:      "/orders/create_from_cart/",
		auth:      true,
		body:      createFromCartRequest{ShippingAddressID: shippingAddressID, BillingAddressID: billingAddressID},
	}, &order)
	if err != nil {
		return domain.Order{}, err
	}
	return order.toDomain(), nil
}

// ListOrders returns the signed-in user's orders
func (c *Client) ListOrders(ctx context.Context) (Page[domain.Order], error) {
	raw, err := c.doRaw(ctx, call{operation: "orders.list", method: http.MethodGet, path: "/orders/", auth: true})
	if err != nil {
		return Page[domain.Order]{}, err
	}
	page, err := decodeList[orderDTO](raw)
	if err != nil {
		return Page[domain.Order]{}, err
	}
	return mapPage(page, orderDTO.toDomain), nil
}

// GetOrder fetches a single order
func (c *Client) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	var order orderDTO
	err := c.do(ctx, call{
		operation: "orders.get",
		method:    http.MethodGet,
		path:      fmt.Sprintf("/orders/%d/", id),
		auth:      true,
	}, &order)
	if err != nil {
		return domain.Order{}, err
	}
	return order.toDomain(), nil
}

// CancelOrder requests the cancel transition and returns the updated order
func (c *Client) CancelOrder(ctx context.Context, id int64) (domain.Order, error) {
	var order orderDTO
	err := c.do(ctx, call{
		operation: "orders.cancel",
		method:    http.MethodPost,
		path:      fmt.Sprintf("/orders/%d/cancel_order/", id),
		auth:      true,
		body:      struct{}{},
	}, &order)
	if err != nil {
		return domain.Order{}, err
	}
	return order.toDomain(), nil
}
