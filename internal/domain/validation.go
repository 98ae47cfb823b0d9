package domain

import (
	"net/mail"
	"strings"

	"github.com/nexcart/storefront/pkg/errors"
)

// Validate checks the required shipping fields
func (d ShippingDetails) Validate() error {
	required := []struct{ field, value, msg string }{
		{"full_name", d.FullName, "please enter your full name"},
		{"email", d.Email, "please enter your email"},
		{"phone", d.Phone, "please enter your phone number"},
		{"address_line1", d.AddressLine1, "please enter your address"},
		{"city", d.City, "please enter your city"},
		{"state", d.State, "please select your state"},
		{"pincode", d.Pincode, "please enter your PIN code"},
		{"country", d.Country, "please select your country"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &errors.ErrValidation{Field: r.field, Message: r.msg}
		}
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return &errors.ErrValidation{Field: "email", Message: "please enter a valid email"}
	}
	return nil
}

// Validate checks the fields the selected payment method needs
func (d PaymentDetails) Validate() error {
	if !d.Method.IsValid() {
		return &errors.ErrValidation{Field: "payment_method", Message: "please select a payment method"}
	}

	var required []struct{ field, value, msg string }
	switch d.Method {
	case PaymentMethodCreditCard:
		required = []struct{ field, value, msg string }{
			{"card_number", d.CardNumber, "please enter your card number"},
			{"expiry_date", d.ExpiryDate, "please enter expiry date"},
			{"cvv", d.CVV, "please enter CVV"},
			{"name_on_card", d.NameOnCard, "please enter name on card"},
		}
	case PaymentMethodUPI:
		required = []struct{ field, value, msg string }{
			{"upi_id", d.UPIID, "please enter your UPI ID"},
		}
	case PaymentMethodNetBanking:
		required = []struct{ field, value, msg string }{
			{"bank", d.Bank, "please select your bank"},
		}
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &errors.ErrValidation{Field: r.field, Message: r.msg}
		}
	}
	return nil
}
