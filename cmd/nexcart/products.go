package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProductsCmd(e *env) *cobra.Command {
	var page int
	var all bool
	cmd := &cobra.Command{
		Use:   "products [search]",
		Short: "Browse the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			search := ""
			if len(args) == 1 {
				search = args[0]
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")

			seen := 0
			for {
				p, err := e.app.Client.ListProducts(cmd.Context(), search, page)
				if err != nil {
					return fmt.Errorf("failed to list products: %w", err)
				}
				for _, product := range p.Items {
					price := product.Price.StringFixed(2)
					if product.DiscountPrice != nil && product.DiscountPrice.IsPositive() {
						price = fmt.Sprintf("%s (was %s)", product.DiscountPrice.StringFixed(2), price)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", product.ID, product.Name, price, product.Inventory)
				}
				seen += len(p.Items)

				// Stop on the last page or an unpaginated response
				if !all || len(p.Items) == 0 || seen >= p.Count {
					break
				}
				page++
			}
			w.Flush()

			if seen == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products found")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to start from")
	cmd.Flags().BoolVar(&all, "all", false, "walk every remaining page")
	return cmd
}
