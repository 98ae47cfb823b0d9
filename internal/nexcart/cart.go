package nexcart

import (
	"context"
	"net/http"

	"github.com/nexcart/storefront/internal/domain"
)

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	CartItemID int64 `json:"cart_item_id"`
	Quantity   int   `json:"quantity"`
}

type removeItemRequest struct {
	CartItemID int64 `json:"cart_item_id"`
}

// MyCart fetches the signed-in user's cart, field-mapped into cart lines
func (c *Client) MyCart(ctx context.Context) ([]domain.CartLine, error) {
	var cart cartDTO
	err := c.do(ctx, call{operation: "cart.my_cart", method: http.MethodGet, path: "/cart/my_cart/", auth: true}, &cart)
	if err != nil {
		return nil, err
	}
	return cart.toLines(), nil
}

// AddItem adds quantity of a product to the remote cart
func (c *Client) AddItem(ctx context.Context, productID int64, quantity int) error {
	return c.do(ctx, call{
		operation: "cart.add_item",
		method:    http.MethodPost,
		path:      "/cart/add_item/",
		auth:      true,
		body:      addItemRequest{ProductID: productID, Quantity: quantity},
	}, nil)
}

// UpdateItem sets the quantity of an existing remote cart line
func (c *Client) UpdateItem(ctx context.Context, cartItemID int64, quantity int) error {
	return c.do(ctx, call{
		operation: "cart.update_item",
		method:    http.MethodPost,
		path:      "/cart/update_item/",
		auth:      true,
		body:      updateItemRequest{CartItemID: cartItemID, Quantity: quantity},
	}, nil)
}

// RemoveItem deletes a remote cart line
func (c *Client) RemoveItem(ctx context.Context, cartItemID int64) error {
	return c.do(ctx, call{
		operation: "cart.remove_item",
		method:    http.MethodPost,
		path:      "/cart/remove_item/",
		auth:      true,
		body:      removeItemRequest{CartItemID: cartItemID},
	}, nil)
}

// ClearCart empties the remote cart
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, call{
		operation: "cart.clear",
		method:    http.MethodPost,
		path:      "/cart/clear/",
		auth:      true,
		body:      struct{}{},
	}, nil)
}
