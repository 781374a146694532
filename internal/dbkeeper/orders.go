package dbkeeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/drstein77/grocerystore/internal/storage"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CreateOrder stores the order and its items in one transaction.
func (kp *DBKeeper) CreateOrder(ctx context.Context, o models.Order) (*models.Order, error) {
	err := kp.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO orders (user_id, status, total_amount, shipping_address)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`, o.UserID, string(o.Status), o.TotalAmount, o.ShippingAddress)
		if err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return mapError("create order", err)
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(`
				INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, o.ID, it.ProductID, it.Quantity, it.UnitPrice)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range o.Items {
			if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
				br.Close()
				return mapError("create order item", err)
			}
			o.Items[i].OrderID = o.ID
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close batch results: %w", err)
		}
		return nil
	})
	if err != nil {
		kp.log.Error("Failed to create order", zap.String("user_id", o.UserID), zap.Error(err))
		return nil, err
	}

	kp.log.Info("Order created", zap.String("order_id", o.ID), zap.Int("items", len(o.Items)))
	return &o, nil
}

const orderColumns = `o.id, o.user_id, o.status, o.total_amount, o.shipping_address, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, extra ...any) (models.Order, error) {
	var (
		o      models.Order
		status string
	)
	dest := append([]any{&o.ID, &o.UserID, &status, &o.TotalAmount, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return o, err
	}
	o.Status = models.OrderStatus(status)
	return o, nil
}

// ListOrdersByUser returns the user's orders, newest first, with items and products.
func (kp *DBKeeper) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, mapError("list user orders", err)
	}

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}

	if err := kp.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrders returns every order with its customer, newest first.
func (kp *DBKeeper) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT `+orderColumns+`, COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM orders o
		LEFT JOIN user_profiles u ON u.id = o.user_id
		ORDER BY o.created_at DESC
	`)
	if err != nil {
		return nil, mapError("list orders", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var c models.Customer
		o, err := scanOrder(rows, &c.Name, &c.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Customer = &c
		orders = append(orders, o)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}
	return orders, nil
}

// GetOrder returns one order with customer contact details, items and products.
func (kp *DBKeeper) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var c models.Customer
	row := kp.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`, COALESCE(u.name, ''), COALESCE(u.email, ''),
		       COALESCE(u.phone_number, ''), COALESCE(u.address, '')
		FROM orders o
		LEFT JOIN user_profiles u ON u.id = o.user_id
		WHERE o.id = $1
	`, id)
	o, err := scanOrder(row, &c.Name, &c.Email, &c.PhoneNumber, &c.Address)
	if err != nil {
		return nil, mapError("get order", err)
	}
	o.Customer = &c

	orders := []models.Order{o}
	if err := kp.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachItems loads the items of all given orders with a single query.
func (kp *DBKeeper) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	rows, err := kp.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
		       p.id, p.name, p.description, p.price, p.category, p.image_url, p.stock_quantity,
		       p.is_available, p.is_organic, p.unit, p.created_at, p.updated_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, p.name
	`, ids)
	if err != nil {
		return mapError("list order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it models.OrderItem
			p  models.Product
		)
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.StockQuantity,
			&p.IsAvailable, &p.IsOrganic, &p.Unit, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		it.Product = &p
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

// UpdateOrderStatus moves an order to status when its current status may
// transition there. The check and the write are one statement; concurrent
// valid updates are last-write-wins.
func (kp *DBKeeper) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	from := status.Predecessors()
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	tag, err := kp.pool.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
	`, id, string(status), allowed)
	if err != nil {
		return mapError("update order status", err)
	}
	if tag.RowsAffected() == 1 {
		kp.log.Info("Order status updated", zap.String("order_id", id), zap.String("status", string(status)))
		return nil
	}

	var current string
	err = kp.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if err != nil {
		return mapError("update order status", err)
	}
	return fmt.Errorf("order %s is %s, cannot become %s: %w", id, current, status, storage.ErrInvalidTransition)
}

// PurchasedItems lists the non-cancelled order lines of a user for insights.
func (kp *DBKeeper) PurchasedItems(ctx context.Context, userID string) ([]models.PurchasedItem, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT oi.product_id, p.category, oi.quantity, oi.unit_price, p.price, p.is_organic
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE o.user_id = $1 AND o.status <> 'cancelled'
	`, userID)
	if err != nil {
		return nil, mapError("list purchased items", err)
	}
	defer rows.Close()

	items := []models.PurchasedItem{}
	for rows.Next() {
		var it models.PurchasedItem
		if err := rows.Scan(&it.ProductID, &it.Category, &it.Quantity, &it.UnitPrice, &it.ListPrice, &it.IsOrganic); err != nil {
			return nil, fmt.Errorf("failed to scan purchased item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// OrderTotals counts orders and sums their totals, cancelled orders excluded from revenue.
func (kp *DBKeeper) OrderTotals(ctx context.Context) (int, float64, error) {
	var (
		count   int
		revenue float64
	)
	err := kp.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount) FILTER (WHERE status <> 'cancelled'), 0)
		FROM orders
	`).Scan(&count, &revenue)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, mapError("order totals", err)
	}
	return count, revenue, nil
}
