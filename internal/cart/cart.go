// Package cart keeps the quantity and total bookkeeping for a shopper's cart.
package cart

import (
	"errors"
	"fmt"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNotInCart       = errors.New("product is not in the cart")
	ErrUnavailable     = errors.New("product is not available")
	ErrOutOfStock      = errors.New("not enough stock")
)

type Item struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	Quantity  int     `json:"quantity"`
	Stock     int     `json:"-"`
}

// Subtotal is price times quantity rounded to cents.
func (i Item) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// Cart is not safe for concurrent use; the owner serialises access.
type Cart struct {
	items []Item
}

func New() *Cart {
	return &Cart{}
}

// Add puts quantity units of p in the cart, merging with an existing line.
func (c *Cart) Add(p models.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if !p.IsAvailable {
		return fmt.Errorf("%s: %w", p.Name, ErrUnavailable)
	}

	for i := range c.items {
		if c.items[i].ProductID != p.ID {
			continue
		}
		want := c.items[i].Quantity + quantity
		if want > p.StockQuantity {
			return fmt.Errorf("%s: %w (%d left)", p.Name, ErrOutOfStock, p.StockQuantity)
		}
		c.items[i].Quantity = want
		c.items[i].Price = p.Price
		c.items[i].Stock = p.StockQuantity
		return nil
	}

	if quantity > p.StockQuantity {
		return fmt.Errorf("%s: %w (%d left)", p.Name, ErrOutOfStock, p.StockQuantity)
	}
	c.items = append(c.items, Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Unit:      p.Unit,
		Quantity:  quantity,
		Stock:     p.StockQuantity,
	})
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less removes it.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	for i := range c.items {
		if c.items[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
		if quantity > c.items[i].Stock {
			return fmt.Errorf("%s: %w (%d left)", c.items[i].Name, ErrOutOfStock, c.items[i].Stock)
		}
		c.items[i].Quantity = quantity
		return nil
	}
	return ErrNotInCart
}

func (c *Cart) Remove(productID string) {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Subtract takes ordered quantities out of the cart, dropping lines that
// reach zero. Units added after the order was taken stay in the cart.
func (c *Cart) Subtract(ordered []models.OrderItem) {
	for _, o := range ordered {
		for i := range c.items {
			if c.items[i].ProductID != o.ProductID {
				continue
			}
			c.items[i].Quantity -= o.Quantity
			if c.items[i].Quantity <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
			}
			break
		}
	}
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// Total is the sum of line subtotals.
func (c *Cart) Total() float64 {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.Subtotal())
	}
	f, _ := sum.Round(2).Float64()
	return f
}

// Summary is the JSON view of a cart.
type Summary struct {
	Items []Item  `json:"items"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

func (c *Cart) Summary() Summary {
	return Summary{Items: c.Items(), Count: c.Count(), Total: c.Total()}
}

// OrderItems converts the cart lines into order lines priced at the cart price.
func (c *Cart) OrderItems() []models.OrderItem {
	out := make([]models.OrderItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, models.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}
	return out
}

// OrderTotal sums order lines the same way Total sums cart lines.
func OrderTotal(items []models.OrderItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	f, _ := sum.Round(2).Float64()
	return f
}
