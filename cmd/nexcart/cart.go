package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexcart/storefront/internal/cart"
)

func newCartCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the cart",
		// Every cart subcommand starts from the backend's view when it is reachable.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			e.app.Cart.Load(cmd.Context())
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the cart",
			RunE: func(cmd *cobra.Command, args []string) error {
				printCart(cmd, e.app.Cart.Snapshot())
				return nil
			},
		},
		newCartAddCmd(e),
		&cobra.Command{
			Use:   "update <product-id> <quantity>",
			Short: "Set a line quantity; zero removes the line",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				qty, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
				printSync(cmd, e.app.Cart.UpdateQuantity(cmd.Context(), id, qty))
				printCart(cmd, e.app.Cart.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a line",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				printSync(cmd, e.app.Cart.RemoveItem(cmd.Context(), id))
				printCart(cmd, e.app.Cart.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			RunE: func(cmd *cobra.Command, args []string) error {
				printSync(cmd, e.app.Cart.Clear(cmd.Context()))
				return nil
			},
		},
	)
	return cmd
}

func newCartAddCmd(e *env) *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a catalog product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			product, err := e.app.Client.GetProduct(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to look up product %d: %w", id, err)
			}
			printSync(cmd, e.app.Cart.AddItem(cmd.Context(), product, quantity))
			printCart(cmd, e.app.Cart.Snapshot())
			return nil
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity to add")
	return cmd
}

func printCart(cmd *cobra.Command, snap cart.Snapshot) {
	out := cmd.OutOrStdout()
	if snap.IsEmpty() {
		fmt.Fprintln(out, "Your cart is empty")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tQTY\tSUBTOTAL")
	for _, l := range snap.Lines {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", l.ProductID, l.Name, l.EffectivePrice().StringFixed(2), l.Quantity, l.Subtotal().StringFixed(2))
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d items, total %s\n", snap.ItemCount, snap.Total.StringFixed(2))
}

func printSync(cmd *cobra.Command, result cart.SyncResult) {
	if result.Status == cart.LocalOnly {
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved locally only: %v\n", result.Reason)
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
