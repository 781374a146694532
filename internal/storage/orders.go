package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drstein77/grocerystore/internal/cart"
	"github.com/drstein77/grocerystore/internal/insights"
	"github.com/drstein77/grocerystore/internal/models"
	"go.uber.org/zap"
)

var errEmptyCart = errors.New("cart is empty")

// Checkout turns the user's cart into a pending order. Once the order is
// stored the ordered lines leave the cart; anything added meanwhile stays.
func (s *Storage) Checkout(ctx context.Context, userID string, in models.CheckoutInput) (*models.Order, error) {
	s.mx.RLock()
	c, ok := s.carts[userID]
	var (
		items []models.OrderItem
		total float64
	)
	if ok {
		items, total = c.OrderItems(), c.Total()
	}
	s.mx.RUnlock()

	if len(items) == 0 {
		return nil, invalid(errEmptyCart)
	}

	order, err := s.keeper.CreateOrder(ctx, models.Order{
		UserID:          userID,
		Status:          models.StatusPending,
		TotalAmount:     total,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Items:           items,
	})
	if err != nil {
		return nil, err
	}

	s.takeOrdered(userID, items)
	s.log.Info("Checkout completed", zap.String("user_id", userID), zap.String("order_id", order.ID), zap.Float64("total", order.TotalAmount))
	return order, nil
}

// CreateOrder places an explicitly itemised order. Unit prices are taken
// from the catalogue, not from the request.
func (s *Storage) CreateOrder(ctx context.Context, userID string, in models.OrderInput) (*models.Order, error) {
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, invalid(cart.ErrInvalidQuantity)
		}
		p, err := s.keeper.GetProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, NewValidationError(fmt.Sprintf("product %s does not exist", it.ProductID))
			}
			return nil, err
		}
		if !p.IsAvailable {
			return nil, invalid(fmt.Errorf("%s: %w", p.Name, cart.ErrUnavailable))
		}
		items = append(items, models.OrderItem{ProductID: p.ID, Quantity: it.Quantity, UnitPrice: p.Price})
	}

	return s.keeper.CreateOrder(ctx, models.Order{
		UserID:          userID,
		Status:          models.StatusPending,
		TotalAmount:     cart.OrderTotal(items),
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Items:           items,
	})
}

func (s *Storage) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.keeper.ListOrdersByUser(ctx, userID)
}

// Insights scores the user's purchase history.
func (s *Storage) Insights(ctx context.Context, userID string) (models.Insights, error) {
	items, err := s.keeper.PurchasedItems(ctx, userID)
	if err != nil {
		return models.Insights{}, err
	}
	return insights.Compute(items), nil
}
