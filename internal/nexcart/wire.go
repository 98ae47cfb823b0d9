package nexcart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcart/storefront/internal/domain"
)

// Page is the canonical list shape every backend collection is normalized into
type Page[T any] struct {
	Items []T
	Count int
}

// decodeList accepts a bare JSON array or a paginated {results, count} envelope
func decodeList[T any](raw []byte) (Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Page[T]{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page[T]{}, fmt.Errorf("failed to unmarshal list: %w", err)
		}
		return Page[T]{Items: items, Count: len(items)}, nil
	}

	var envelope struct {
		Results []T  `json:"results"`
		Count   *int `json:"count"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return Page[T]{}, fmt.Errorf("failed to unmarshal paginated list: %w", err)
	}
	count := len(envelope.Results)
	if envelope.Count != nil {
		count = *envelope.Count
	}
	return Page[T]{Items: envelope.Results, Count: count}, nil
}

func mapPage[From, To any](p Page[From], fn func(From) To) Page[To] {
	out := Page[To]{Items: make([]To, 0, len(p.Items)), Count: p.Count}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}

type productDTO struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	PrimaryImage  string              `json:"primary_image"`
	ImageURL      string              `json:"image_url"`
	Inventory     int                 `json:"inventory"`
	CategoryName  string              `json:"category_name"`
}

func (p productDTO) toDomain() domain.Product {
	product := domain.Product{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Image:        p.PrimaryImage,
		Inventory:    p.Inventory,
		CategoryName: p.CategoryName,
	}
	if product.Image == "" {
		product.Image = p.ImageURL
	}
	if p.DiscountPrice.Valid {
		d := p.DiscountPrice.Decimal
		product.DiscountPrice = &d
	}
	return product
}

type cartItemDTO struct {
	ID       int64      `json:"id"`
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
}

type cartDTO struct {
	Items []cartItemDTO `json:"items"`
}

func (c cartDTO) toLines() []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(c.Items))
	for _, item := range c.Items {
		remoteID := item.ID
		line := domain.LineFromProduct(item.Product.toDomain(), item.Quantity)
		line.RemoteLineID = &remoteID
		lines = append(lines, line)
	}
	return lines
}

type addressDTO struct {
	ID               int64              `json:"id,omitempty"`
	AddressType      domain.AddressType `json:"address_type"`
	Default          bool               `json:"default"`
	StreetAddress    string             `json:"street_address"`
	ApartmentAddress string             `json:"apartment_address"`
	City             string             `json:"city"`
	State            string             `json:"state"`
	ZipCode          string             `json:"zip_code"`
	Country          string             `json:"country"`
}

func addressFromDomain(a domain.Address) addressDTO {
	return addressDTO{
		ID:               a.ID,
		AddressType:      a.Type,
		Default:          a.Default,
		StreetAddress:    a.StreetAddress,
		ApartmentAddress: a.ApartmentAddress,
		City:             a.City,
		State:            a.State,
		ZipCode:          a.ZipCode,
		Country:          a.Country,
	}
}

func (a addressDTO) toDomain() domain.Address {
	return domain.Address{
		ID:               a.ID,
		Type:             a.AddressType,
		Default:          a.Default,
		StreetAddress:    a.StreetAddress,
		ApartmentAddress: a.ApartmentAddress,
		City:             a.City,
		State:            a.State,
		ZipCode:          a.ZipCode,
		Country:          a.Country,
	}
}

type orderItemDTO struct {
	ID       int64           `json:"id"`
	Product  *productDTO     `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderDTO struct {
	ID              int64              `json:"id"`
	Status          domain.OrderStatus `json:"status"`
	ShippingAddress *addressDTO        `json:"shipping_address"`
	BillingAddress  *addressDTO        `json:"billing_address"`
	PaymentStatus   bool               `json:"payment_status"`
	ShippingCost    decimal.Decimal    `json:"shipping_cost"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	TrackingNumber  string             `json:"tracking_number"`
	Items           []orderItemDTO     `json:"items"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (o orderDTO) toDomain() domain.Order {
	order := domain.Order{
		ID:             o.ID,
		Status:         o.Status,
		TotalAmount:    o.TotalAmount,
		ShippingCost:   o.ShippingCost,
		PaymentStatus:  o.PaymentStatus,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
		Items:          make([]domain.OrderItem, 0, len(o.Items)),
	}
	if o.ShippingAddress != nil {
		a := o.ShippingAddress.toDomain()
		order.ShippingAddress = &a
	}
	if o.BillingAddress != nil {
		a := o.BillingAddress.toDomain()
		order.BillingAddress = &a
	}
	for _, item := range o.Items {
		oi := domain.OrderItem{ID: item.ID, Quantity: item.Quantity, Price: item.Price, Name: "Product"}
		if item.Product != nil {
			oi.ProductID = item.Product.ID
			oi.Name = item.Product.Name
		}
		order.Items = append(order.Items, oi)
	}
	return order
}
