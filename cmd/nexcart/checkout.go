package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexcart/storefront/internal/checkout"
	"github.com/nexcart/storefront/internal/domain"
)

func newCheckoutCmd(e *env) *cobra.Command {
	var shipping domain.ShippingDetails
	var payment domain.PaymentDetails
	var method string
	var yes bool

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			e.app.Cart.Load(ctx)
			flow := e.app.NewCheckout()
			if _, err := flow.Begin(); err != nil {
				return err
			}
			if err := flow.SubmitShipping(shipping); err != nil {
				return err
			}
			payment.Method = domain.PaymentMethod(method)
			if err := flow.SubmitPayment(payment); err != nil {
				return err
			}

			review := flow.Review()
			printCart(cmd, e.app.Cart.Snapshot())
			fmt.Fprintf(out, "Subtotal %s  Tax %s  Total %s (estimate)\n",
				review.Subtotal.StringFixed(2), review.Tax.StringFixed(2), review.Total.StringFixed(2))
			fmt.Fprintf(out, "Ship to %s, %s, %s %s\n", shipping.FullName, shipping.AddressLine1, shipping.City, shipping.Pincode)
			if !yes {
				fmt.Fprintln(out, "\nRe-run with --yes to place the order")
				return nil
			}

			conf, err := flow.PlaceOrder(ctx)
			if errors.Is(err, checkout.ErrAuthRequired) {
				return fmt.Errorf("%w (run `nexcart login` first)", err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nOrder #%d placed, status %s, total %s\n",
				conf.OrderID, conf.Order.Status, conf.Order.TotalAmount.StringFixed(2))
			if len(conf.FailedLines) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: products %v could not be synced and may be missing from the order\n", conf.FailedLines)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&shipping.FullName, "name", "", "recipient full name")
	f.StringVar(&shipping.Email, "email", "", "contact email")
	f.StringVar(&shipping.Phone, "phone", "", "contact phone")
	f.StringVar(&shipping.AddressLine1, "address", "", "street address")
	f.StringVar(&shipping.AddressLine2, "address2", "", "apartment, suite")
	f.StringVar(&shipping.City, "city", "", "city")
	f.StringVar(&shipping.State, "state", "", "state")
	f.StringVar(&shipping.Pincode, "pincode", "", "PIN code")
	f.StringVar(&shipping.Country, "country", "India", "country")
	f.StringVar(&method, "payment", string(domain.PaymentMethodCOD), "creditCard, upi, netBanking or cod")
	f.StringVar(&payment.CardNumber, "card-number", "", "card number")
	f.StringVar(&payment.ExpiryDate, "card-expiry", "", "card expiry MM/YY")
	f.StringVar(&payment.CVV, "card-cvv", "", "card CVV")
	f.StringVar(&payment.NameOnCard, "card-name", "", "name on card")
	f.StringVar(&payment.UPIID, "upi-id", "", "UPI ID")
	f.StringVar(&payment.Bank, "bank", "", "net banking bank")
	f.BoolVarP(&yes, "yes", "y", false, "place the order without stopping at review")
	return cmd
}
