package nexcart

import (
	"context"
	"net/http"

	"github.com/nexcart/storefront/internal/domain"
)

// ListAddresses returns the signed-in user's addresses
func (c *Client) ListAddresses(ctx context.Context) (Page[domain.Address], error) {
	raw, err := c.doRaw(ctx, call{operation: "addresses.list", method: http.MethodGet, path: "/addresses/", auth: true})
	if err != nil {
		return Page[domain.Address]{}, err
	}
	page, err := decodeList[addressDTO](raw)
	if err != nil {
		return Page[domain.Address]{}, err
	}
	return mapPage(page, addressDTO.toDomain), nil
}

// CreateAddress stores a new address and returns it with its assigned ID
func (c *Client) CreateAddress(ctx context.Context, address domain.Address) (domain.Address, error) {
	var created addressDTO
	err := c.do(ctx, call{
		operation: "addresses.create",
		method:    http.MethodPost,
		path:      "/addresses/",
		auth:      true,
		body:      addressFromDomain(address),
	}, &created)
	if err != nil {
		return domain.Address{}, err
	}
	return created.toDomain(), nil
}

// FindDefault returns the first address of the given type flagged default
func FindDefault(addresses []domain.Address, addressType domain.AddressType) (domain.Address, bool) {
	for _, a := range addresses {
		if a.Type == addressType && a.Default {
			return a, true
		}
	}
	return domain.Address{}, false
}
