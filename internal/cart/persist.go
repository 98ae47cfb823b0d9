package cart

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nexcart/storefront/internal/domain"
)

// persistedLine is the on-disk shape of a cart line. Prices are written as
// JSON numbers and read back from numbers or strings.
type persistedLine struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Price         json.Number  `json:"price"`
	DiscountPrice *json.Number `json:"discount_price"`
	Quantity      int          `json:"quantity"`
	Image         string       `json:"image,omitempty"`
	CartItemID    *int64       `json:"cart_item_id,omitempty"`
}

func encodeLines(lines []domain.CartLine) ([]byte, error) {
	out := make([]persistedLine, 0, len(lines))
	for _, l := range lines {
		p := persistedLine{
			ID:         l.ProductID,
			Name:       l.Name,
			Price:      json.Number(l.UnitPrice.String()),
			Quantity:   l.Quantity,
			Image:      l.Image,
			CartItemID: l.RemoteLineID,
		}
		if l.DiscountPrice != nil {
			n := json.Number(l.DiscountPrice.String())
			p.DiscountPrice = &n
		}
		out = append(out, p)
	}
	return json.Marshal(out)
}

func decodeLines(data []byte) ([]domain.CartLine, error) {
	var in []persistedLine
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse persisted cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(in))
	for _, p := range in {
		if p.Quantity < 1 {
			continue
		}
		price, err := decimal.NewFromString(p.Price.String())
		if err != nil {
			return nil, fmt.Errorf("invalid price for product %d: %w", p.ID, err)
		}
		line := domain.CartLine{
			ProductID:    p.ID,
			Name:         p.Name,
			UnitPrice:    price,
			Image:        p.Image,
			Quantity:     p.Quantity,
			RemoteLineID: p.CartItemID,
		}
		if p.DiscountPrice != nil && p.DiscountPrice.String() != "" {
			d, err := decimal.NewFromString(p.DiscountPrice.String())
			if err != nil {
				return nil, fmt.Errorf("invalid discount price for product %d: %w", p.ID, err)
			}
			line.DiscountPrice = &d
		}
		lines = append(lines, line)
	}
	return lines, nil
}
