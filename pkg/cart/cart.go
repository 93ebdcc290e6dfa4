// Package cart holds the client-side shopping cart. The API is
// stateless; the cart only becomes server state when it is submitted
// as an order.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/example/storefront/pkg/client"
)

type Item struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Name      string           `json:"name,omitempty"`
	Image     string           `json:"image,omitempty"`
	Slug      string           `json:"slug,omitempty"`
}

// Meta is display data copied onto an item when it is added. Empty
// fields leave the existing value alone.
type Meta struct {
	Price    *decimal.Decimal
	Currency string
	Name     string
	Image    string
	Slug     string
}

type Cart struct {
	Items []Item `json:"items"`
}

func New() *Cart {
	return &Cart{Items: []Item{}}
}

// Add increases the quantity of productID by qty, appending a new line
// if the product is not in the cart yet.
func (c *Cart) Add(productID string, qty int, meta Meta) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			c.Items[i].merge(meta)
			return
		}
	}
	item := Item{ProductID: productID, Quantity: qty}
	item.merge(meta)
	c.Items = append(c.Items, item)
}

func (c *Cart) Remove(productID string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

// SetQty sets the quantity of an existing line, never below 1. Unknown
// products are ignored.
func (c *Cart) SetQty(productID string, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
		}
	}
}

func (c *Cart) Clear() {
	c.Items = []Item{}
}

func (c *Cart) TotalQty() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

// Subtotal sums the known line prices. It is a display estimate; the
// server recomputes the subtotal from current prices.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		if it.Price != nil {
			sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return sum
}

// OrderItems converts the cart to the lines of an order request.
func (c *Cart) OrderItems() []client.OrderItem {
	items := make([]client.OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, client.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return items
}

func (it *Item) merge(meta Meta) {
	if meta.Price != nil {
		p := *meta.Price
		it.Price = &p
	}
	if meta.Currency != "" {
		it.Currency = meta.Currency
	}
	if meta.Name != "" {
		it.Name = meta.Name
	}
	if meta.Image != "" {
		it.Image = meta.Image
	}
	if meta.Slug != "" {
		it.Slug = meta.Slug
	}
}
