package dbkeeper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const productColumns = `id, name, description, price, category, image_url, stock_quantity,
	is_available, is_organic, unit, created_at, updated_at`

// productSortColumns whitelists sortable columns to keep user input out of SQL.
var productSortColumns = map[string]string{
	"":           "name",
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
	"stock":      "stock_quantity",
}

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.ImageURL,
		&p.StockQuantity,
		&p.IsAvailable,
		&p.IsOrganic,
		&p.Unit,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (kp *DBKeeper) collectProducts(ctx context.Context, op string, query string, args ...any) ([]models.Product, error) {
	rows, err := kp.pool.Query(ctx, query, args...)
	if err != nil {
		kp.log.Error("Failed to execute query", zap.String("op", op), zap.Error(err))
		return nil, mapError(op, err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			kp.log.Error("Failed to scan row", zap.String("op", op), zap.Error(err))
			return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
		}
		products = append(products, p)
	}
	if rows.Err() != nil {
		kp.log.Error("Error occurred during rows iteration", zap.String("op", op), zap.Error(rows.Err()))
		return nil, fmt.Errorf("%s: error during rows iteration: %w", op, rows.Err())
	}
	return products, nil
}

func (kp *DBKeeper) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AvailableOnly {
		where = append(where, "is_available")
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.OrganicOnly {
		where = append(where, "is_organic")
	}
	if f.MinPrice > 0 {
		where = append(where, "price >= "+arg(f.MinPrice))
	}
	if f.MaxPrice > 0 {
		where = append(where, "price <= "+arg(f.MaxPrice))
	}

	sortCol, ok := productSortColumns[f.Sort]
	if !ok {
		sortCol = "name"
	}
	order := "ASC"
	if f.Descending {
		order = "DESC"
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + sortCol + " " + order + ", id"

	return kp.collectProducts(ctx, "list products", query, args...)
}

func (kp *DBKeeper) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := kp.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, mapError("get product", err)
	}
	return &p, nil
}

// SearchProducts runs a full-text search over available products, best matches first.
func (kp *DBKeeper) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	return kp.collectProducts(ctx, "search products", `
		SELECT `+productColumns+`
		FROM products
		WHERE is_available
		  AND (search_vector @@ websearch_to_tsquery('english', $1) OR name ILIKE '%' || $1 || '%')
		ORDER BY ts_rank(search_vector, websearch_to_tsquery('english', $1)) DESC, name
	`, query)
}

func (kp *DBKeeper) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	row := kp.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, category, image_url, stock_quantity, is_available, is_organic, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+productColumns,
		in.Name, in.Description, in.Price, in.Category, in.ImageURL, in.StockQuantity, in.IsAvailable, in.IsOrganic, in.Unit,
	)
	p, err := scanProduct(row)
	if err != nil {
		kp.log.Error("Failed to create product", zap.Error(err))
		return nil, mapError("create product", err)
	}
	return &p, nil
}

func (kp *DBKeeper) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error) {
	row := kp.pool.QueryRow(ctx, `
		UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			category = COALESCE($5, category),
			image_url = COALESCE($6, image_url),
			stock_quantity = COALESCE($7, stock_quantity),
			is_available = COALESCE($8, is_available),
			is_organic = COALESCE($9, is_organic),
			unit = COALESCE($10, unit),
			updated_at = $11
		WHERE id = $1
		RETURNING `+productColumns,
		id, upd.Name, upd.Description, upd.Price, upd.Category, upd.ImageURL, upd.StockQuantity,
		upd.IsAvailable, upd.IsOrganic, upd.Unit, time.Now(),
	)
	p, err := scanProduct(row)
	if err != nil {
		return nil, mapError("update product", err)
	}
	return &p, nil
}

func (kp *DBKeeper) DeleteProduct(ctx context.Context, id string) error {
	tag, err := kp.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("delete product", pgx.ErrNoRows)
	}
	return nil
}

// InsertProducts upserts a batch of imported products and reports catalogue totals.
func (kp *DBKeeper) InsertProducts(ctx context.Context, products []models.Product) (*models.ImportResult, error) {
	if len(products) == 0 {
		return &models.ImportResult{}, nil
	}

	resp := &models.ImportResult{Imported: len(products)}
	err := kp.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(`
				INSERT INTO products (id, name, description, price, category, image_url, stock_quantity, is_available, is_organic, unit)
				VALUES (COALESCE($1, gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					description = EXCLUDED.description,
					price = EXCLUDED.price,
					category = EXCLUDED.category,
					image_url = EXCLUDED.image_url,
					stock_quantity = EXCLUDED.stock_quantity,
					is_available = EXCLUDED.is_available,
					is_organic = EXCLUDED.is_organic,
					unit = EXCLUDED.unit,
					updated_at = now()
			`, nilIfEmpty(p.ID), p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.StockQuantity, p.IsAvailable, p.IsOrganic, p.Unit)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range products {
			if _, execErr := br.Exec(); execErr != nil {
				br.Close()
				return mapError(fmt.Sprintf("import product %d (%s)", i+1, products[i].Name), execErr)
			}
		}
		if closeErr := br.Close(); closeErr != nil {
			return fmt.Errorf("failed to close batch results: %w", closeErr)
		}

		row := tx.QueryRow(ctx, `
			SELECT COUNT(*), COUNT(DISTINCT category), COALESCE(SUM(price * stock_quantity), 0)
			FROM products
		`)
		if scanErr := row.Scan(&resp.TotalProducts, &resp.TotalCategories, &resp.CatalogValue); scanErr != nil {
			return fmt.Errorf("failed to calculate stats: %w", scanErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kp.log.Info("Products successfully imported", zap.Int("count", len(products)))
	return resp, nil
}

func (kp *DBKeeper) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := kp.pool.Query(ctx, `SELECT id, name, icon, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, mapError("list categories", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (kp *DBKeeper) ProductReviews(ctx context.Context, productID string) ([]models.Review, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.product_id, r.rating, r.review_text, r.sentiment_score,
		       COALESCE(u.name, ''), r.created_at
		FROM reviews r
		LEFT JOIN user_profiles u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC
	`, productID)
	if err != nil {
		return nil, mapError("list reviews", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Rating, &r.ReviewText, &r.SentimentScore, &r.AuthorName, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (kp *DBKeeper) CreateReview(ctx context.Context, r models.Review) (*models.Review, error) {
	row := kp.pool.QueryRow(ctx, `
		INSERT INTO reviews (user_id, product_id, rating, review_text, sentiment_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, r.UserID, r.ProductID, r.Rating, r.ReviewText, r.SentimentScore)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return nil, mapError("create review", err)
	}
	return &r, nil
}
