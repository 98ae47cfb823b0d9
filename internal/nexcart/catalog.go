package nexcart

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nexcart/storefront/internal/domain"
)

// ListProducts returns one page of the public catalog
func (c *Client) ListProducts(ctx context.Context, search string, page int) (Page[domain.Product], error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page > 1 {
		q.Set("page", fmt.Sprint(page))
	}
	path := "/products/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	raw, err := c.doRaw(ctx, call{operation: "products.list", method: http.MethodGet, path: path})
	if err != nil {
		return Page[domain.Product]{}, err
	}
	p, err := decodeList[productDTO](raw)
	if err != nil {
		return Page[domain.Product]{}, err
	}
	return mapPage(p, productDTO.toDomain), nil
}

// GetProduct fetches a single catalog product
func (c *Client) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var product productDTO
	err := c.do(ctx, call{
		operation: "products.get",
		method:    http.MethodGet,
		path:      fmt.Sprintf("/products/%d/", id),
	}, &product)
	if err != nil {
		return domain.Product{}, err
	}
	return product.toDomain(), nil
}
