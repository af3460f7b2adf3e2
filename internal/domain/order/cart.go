package order

import (
	"github.com/shopspring/decimal"
)

// LineItem is one cart row; ID is the product variant id.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
}

// Subtotal returns price x quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// MaxQuantity caps the units of one item in a cart
const MaxQuantity = 1000

// Cart keeps insertion order and merges repeated ids.
type Cart struct {
	items []LineItem
}

func NewCart(items ...LineItem) *Cart {
	c := &Cart{}
	for _, it := range items {
		c.Add(it)
	}
	return c
}

// Add appends the item or bumps the quantity of an existing entry, never
// past MaxQuantity.
func (c *Cart) Add(item LineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item.Quantity = min(item.Quantity, MaxQuantity)
	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity = min(c.items[i].Quantity+item.Quantity, MaxQuantity)
			return
		}
	}
	c.items = append(c.items, item)
}

func (c *Cart) Remove(id string) {
	out := c.items[:0]
	for _, it := range c.items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	c.items = out
}

func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}
