package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view of a purchasable item
type Product struct {
	ID            int64
	Name          string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Image         string
	Inventory     int
	CategoryName  string
}

// CartLine represents one product in the cart
type CartLine struct {
	ProductID     int64
	Name          string
	UnitPrice     decimal.Decimal
	DiscountPrice *decimal.Decimal
	Image         string
	Quantity      int
	// RemoteLineID is set only when the backend cart holds a counterpart of this line.
	RemoteLineID *int64
}

// EffectivePrice is the discount price when present and positive, otherwise the unit price
func (l CartLine) EffectivePrice() decimal.Decimal {
	if l.DiscountPrice != nil && l.DiscountPrice.IsPositive() {
		return *l.DiscountPrice
	}
	return l.UnitPrice
}

// Subtotal is EffectivePrice * Quantity
func (l CartLine) Subtotal() decimal.Decimal {
	return l.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineFromProduct builds a local-only cart line
func LineFromProduct(p Product, quantity int) CartLine {
	return CartLine{
		ProductID:     p.ID,
		Name:          p.Name,
		UnitPrice:     p.Price,
		DiscountPrice: p.DiscountPrice,
		Image:         p.Image,
		Quantity:      quantity,
	}
}

// Address is a backend-owned shipping or billing address
type Address struct {
	ID               int64
	Type             AddressType
	Default          bool
	StreetAddress    string
	ApartmentAddress string
	City             string
	State            string
	ZipCode          string
	Country          string
}

// Order is a backend-owned order; the client only reads it and may request cancellation
type Order struct {
	ID              int64
	Status          OrderStatus
	TotalAmount     decimal.Decimal
	ShippingCost    decimal.Decimal
	PaymentStatus   bool
	TrackingNumber  string
	ShippingAddress *Address
	BillingAddress  *Address
	Items           []OrderItem
	CreatedAt       time.Time
}

// OrderItem is one line of a placed order
type OrderItem struct {
	ID        int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// ShippingDetails is the transient shipping form collected during checkout
type ShippingDetails struct {
	FullName     string `json:"full_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required"`
	Pincode      string `json:"pincode" binding:"required"`
	Country      string `json:"country" binding:"required"`
}

// ToAddress converts the form into a default shipping address
func (d ShippingDetails) ToAddress() Address {
	return Address{
		Type:             AddressTypeShipping,
		Default:          true,
		StreetAddress:    d.AddressLine1,
		ApartmentAddress: d.AddressLine2,
		City:             d.City,
		State:            d.State,
		ZipCode:          d.Pincode,
		Country:          d.Country,
	}
}

// PaymentDetails is the transient payment form collected during checkout.
// It is never sent to the backend.
type PaymentDetails struct {
	Method     PaymentMethod `json:"payment_method" binding:"required"`
	CardNumber string        `json:"card_number"`
	ExpiryDate string        `json:"expiry_date"`
	CVV        string        `json:"cvv"`
	NameOnCard string        `json:"name_on_card"`
	UPIID      string        `json:"upi_id"`
	Bank       string        `json:"bank"`
}
