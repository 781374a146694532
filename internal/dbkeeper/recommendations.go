package dbkeeper

import (
	"context"
	"fmt"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ListRecommendations returns the user's best scored recommendations with their products.
func (kp *DBKeeper) ListRecommendations(ctx context.Context, userID string, limit int) ([]models.Recommendation, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.product_id, r.score, r.reason,
		       p.id, p.name, p.description, p.price, p.category, p.image_url, p.stock_quantity,
		       p.is_available, p.is_organic, p.unit, p.created_at, p.updated_at
		FROM recommendations r
		JOIN products p ON p.id = r.product_id
		WHERE r.user_id = $1
		ORDER BY r.score DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, mapError("list recommendations", err)
	}
	defer rows.Close()

	recs := []models.Recommendation{}
	for rows.Next() {
		var (
			r models.Recommendation
			p models.Product
		)
		err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Score, &r.Reason,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.StockQuantity,
			&p.IsAvailable, &p.IsOrganic, &p.Unit, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		r.Product = &p
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// RefreshRecommendations rebuilds every user's recommendations from order history:
// available products from the categories a user buys most, excluding products
// they already bought, scored by category affinity and average rating.
func (kp *DBKeeper) RefreshRecommendations(ctx context.Context) (int64, error) {
	var inserted int64
	err := kp.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recommendations`); err != nil {
			return mapError("clear recommendations", err)
		}

		tag, err := tx.Exec(ctx, `
			WITH affinity AS (
				SELECT o.user_id, p.category,
				       SUM(oi.quantity)::float8 / SUM(SUM(oi.quantity)) OVER (PARTITION BY o.user_id) AS share
				FROM orders o
				JOIN order_items oi ON oi.order_id = o.id
				JOIN products p ON p.id = oi.product_id
				WHERE o.status <> 'cancelled'
				GROUP BY o.user_id, p.category
			),
			ratings AS (
				SELECT product_id, AVG(rating)::float8 AS avg_rating
				FROM reviews
				GROUP BY product_id
			),
			scored AS (
				SELECT a.user_id, p.id AS product_id, c.name AS category_name,
				       a.share * 0.7 + COALESCE(r.avg_rating, 3) / 5 * 0.3 AS score
				FROM affinity a
				JOIN products p ON p.category = a.category AND p.is_available
				JOIN categories c ON c.id = p.category
				LEFT JOIN ratings r ON r.product_id = p.id
				WHERE NOT EXISTS (
					SELECT 1
					FROM orders o
					JOIN order_items oi ON oi.order_id = o.id
					WHERE o.user_id = a.user_id AND oi.product_id = p.id
				)
			),
			ranked AS (
				SELECT *, ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY score DESC, product_id) AS rn
				FROM scored
			)
			INSERT INTO recommendations (user_id, product_id, score, reason)
			SELECT user_id, product_id, ROUND(score::numeric, 4)::float8, 'Because you often buy ' || category_name
			FROM ranked
			WHERE rn <= 20
			ON CONFLICT (user_id, product_id) DO NOTHING
		`)
		if err != nil {
			return mapError("refresh recommendations", err)
		}
		inserted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		kp.log.Error("Failed to refresh recommendations", zap.Error(err))
		return 0, err
	}
	return inserted, nil
}
