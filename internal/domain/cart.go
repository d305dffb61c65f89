package domain

import "github.com/shopspring/decimal"

// CartLine is a cart item joined with the product fields the cart page shows.
type CartLine struct {
	ProductID  string          `db:"product_id" json:"productId"`
	Name       string          `db:"name" json:"name"`
	Slug       string          `db:"slug" json:"slug"`
	ImageURL   string          `db:"image_url" json:"imageUrl"`
	Unit       string          `db:"unit" json:"unit"`
	Qty        int             `db:"qty" json:"qty"`
	PriceAtAdd decimal.Decimal `db:"price_at_add" json:"priceAtAdd"`
	Stock      int             `db:"stock" json:"-"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.PriceAtAdd.Mul(decimal.NewFromInt(int64(l.Qty)))
}

type Cart struct {
	ID       string          `json:"id"`
	Lines    []CartLine      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func (c Cart) Empty() bool { return len(c.Lines) == 0 }

// Count is the number of units in the cart, used for the header badge.
func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}
