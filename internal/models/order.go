package models

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// forward lists the only status each non-terminal status may advance to
// besides cancellation.
var forward = map[OrderStatus]OrderStatus{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	switch st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return forward[s] == next
}

// Predecessors returns every status from which s can be reached in one step.
func (s OrderStatus) Predecessors() []OrderStatus {
	var out []OrderStatus
	for _, from := range []OrderStatus{StatusPending, StatusProcessing, StatusShipped} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}

type Order struct {
	ID              string      `json:"id" csv:"id"`
	UserID          string      `json:"user_id" csv:"user_id"`
	Status          OrderStatus `json:"status" csv:"status"`
	TotalAmount     float64     `json:"total_amount" csv:"total_amount"`
	ShippingAddress string      `json:"shipping_address" csv:"shipping_address"`
	CreatedAt       time.Time   `json:"created_at" csv:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" csv:"-"`
	Items           []OrderItem `json:"items,omitempty" csv:"-"`
	Customer        *Customer   `json:"customer,omitempty" csv:"-"`
}

type OrderItem struct {
	ID        string   `json:"id"`
	OrderID   string   `json:"order_id"`
	ProductID string   `json:"product_id" validate:"required"`
	Quantity  int      `json:"quantity" validate:"required,min=1"`
	UnitPrice float64  `json:"unit_price" validate:"gte=0"`
	Product   *Product `json:"product,omitempty"`
}

// Customer is the user summary attached to orders in admin views.
type Customer struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

// OrderInput is an explicitly itemised order placed without the server-side cart.
type OrderInput struct {
	ShippingAddress string      `json:"shipping_address" validate:"required,min=5,max=500"`
	Items           []OrderItem `json:"items" validate:"required,min=1,dive"`
}

// CheckoutInput turns the current cart into an order.
type CheckoutInput struct {
	ShippingAddress string `json:"shipping_address" validate:"required,min=5,max=500"`
}

// OrderExportRow is the flat CSV shape of an order for admin exports.
type OrderExportRow struct {
	ID              string  `csv:"id"`
	CreatedAt       string  `csv:"created_at"`
	Status          string  `csv:"status"`
	CustomerName    string  `csv:"customer_name"`
	CustomerEmail   string  `csv:"customer_email"`
	ShippingAddress string  `csv:"shipping_address"`
	TotalAmount     float64 `csv:"total_amount"`
}
