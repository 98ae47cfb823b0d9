package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexcart/storefront/internal/domain"
)

func newOrdersCmd(e *env) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Review past orders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := e.app.Orders.List(cmd.Context(), domain.OrderStatus(status))
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tITEMS\tPLACED")
			for _, o := range orders {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", o.ID, o.Status, o.TotalAmount.StringFixed(2), len(o.Items), o.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&status, "status", "", "only orders in this status")

	show := &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			order, err := e.app.Orders.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printOrder(cmd, order)
			return nil
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a pending or processing order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			order, err := e.app.Orders.Cancel(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order #%d is now %s\n", order.ID, order.Status)
			return nil
		},
	}

	cmd.AddCommand(list, show, cancel)
	return cmd
}

func printOrder(cmd *cobra.Command, o domain.Order) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order #%d  %s  placed %s\n", o.ID, o.Status, o.CreatedAt.Format("2006-01-02 15:04"))
	if o.TrackingNumber != "" {
		fmt.Fprintf(out, "Tracking: %s\n", o.TrackingNumber)
	}
	if a := o.ShippingAddress; a != nil {
		fmt.Fprintf(out, "Ship to: %s, %s, %s %s, %s\n", a.StreetAddress, a.City, a.State, a.ZipCode, a.Country)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nPRODUCT\tPRICE\tQTY")
	for _, it := range o.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\n", it.Name, it.Price.StringFixed(2), it.Quantity)
	}
	w.Flush()

	fmt.Fprintf(out, "\nShipping %s  Total %s\n", o.ShippingCost.StringFixed(2), o.TotalAmount.StringFixed(2))
	if o.Status.IsCancellable() {
		fmt.Fprintf(out, "Cancel with: nexcart orders cancel %d\n", o.ID)
	}
}
