package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/drstein77/grocerystore/internal/cart"
	"github.com/drstein77/grocerystore/internal/models"
)

// cartFor returns the user's cart, creating it on first use. Callers hold s.mx.
func (s *Storage) cartFor(userID string) *cart.Cart {
	c, ok := s.carts[userID]
	if !ok {
		c = cart.New()
		s.carts[userID] = c
	}
	return c
}

func (s *Storage) Cart(userID string) cart.Summary {
	s.mx.RLock()
	defer s.mx.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return cart.New().Summary()
	}
	return c.Summary()
}

// AddToCart adds quantity units of a product at its current price.
func (s *Storage) AddToCart(ctx context.Context, userID, productID string, quantity int) (cart.Summary, error) {
	p, err := s.keeper.GetProduct(ctx, productID)
	if err != nil {
		return cart.Summary{}, err
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	c := s.cartFor(userID)
	if err := c.Add(*p, quantity); err != nil {
		return c.Summary(), invalid(err)
	}
	return c.Summary(), nil
}

func (s *Storage) UpdateCartItem(userID, productID string, quantity int) (cart.Summary, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	c := s.cartFor(userID)
	if err := c.UpdateQuantity(productID, quantity); err != nil {
		if errors.Is(err, cart.ErrNotInCart) {
			return c.Summary(), fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return c.Summary(), invalid(err)
	}
	return c.Summary(), nil
}

func (s *Storage) RemoveFromCart(userID, productID string) cart.Summary {
	s.mx.Lock()
	defer s.mx.Unlock()

	c := s.cartFor(userID)
	c.Remove(productID)
	return c.Summary()
}

func (s *Storage) ClearCart(userID string) {
	s.mx.Lock()
	defer s.mx.Unlock()

	delete(s.carts, userID)
}

// takeOrdered removes checked-out quantities from the user's cart.
func (s *Storage) takeOrdered(userID string, items []models.OrderItem) {
	s.mx.Lock()
	defer s.mx.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		return
	}
	c.Subtract(items)
	if c.Empty() {
		delete(s.carts, userID)
	}
}
