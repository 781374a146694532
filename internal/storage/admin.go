package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Stats collects the dashboard counters concurrently.
func (s *Storage) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Users, err = s.keeper.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.Products, err = s.keeper.CountProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.Orders, st.Revenue, err = s.keeper.OrderTotals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.keeper.ListUsers(ctx)
}

// UpdateUserRole changes a user's role. Admins cannot demote themselves.
func (s *Storage) UpdateUserRole(ctx context.Context, actorID, userID string, role models.Role) error {
	if !role.Valid() {
		return NewValidationError(fmt.Sprintf("unknown role %q", role))
	}
	if actorID == userID && role != models.RoleAdmin {
		return NewValidationError("you cannot remove your own admin role")
	}
	if err := s.keeper.UpdateUserRole(ctx, userID, role); err != nil {
		return err
	}
	s.log.Info("User role changed", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("by", actorID))
	return nil
}

// DeleteUser removes a user with their orders and reviews.
func (s *Storage) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return NewValidationError("you cannot delete your own account")
	}
	if err := s.keeper.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.ClearCart(userID)
	return nil
}

func (s *Storage) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	return s.keeper.CreateProduct(ctx, in)
}

func (s *Storage) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error) {
	return s.keeper.UpdateProduct(ctx, id, upd)
}

func (s *Storage) DeleteProduct(ctx context.Context, id string) error {
	return s.keeper.DeleteProduct(ctx, id)
}

// UploadProductImage stores an image under a fresh name and returns its public URL.
func (s *Storage) UploadProductImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("file storage: %w", ErrUnavailable)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] {
		return "", NewValidationError(fmt.Sprintf("unsupported image type %q", ext))
	}

	url, err := s.files.Save(ctx, path.Join("product-images", uuid.NewString()+ext), r)
	if err != nil {
		s.log.Error("Failed to store product image", zap.String("file", filename), zap.Error(err))
		return "", err
	}
	return url, nil
}

// ImportProducts reads products from CSV and upserts them in one batch.
// Rows with an id replace the existing product.
func (s *Storage) ImportProducts(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	var rows []*models.Product
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, NewValidationError(fmt.Sprintf("malformed product CSV: %v", err))
	}
	if len(rows) == 0 {
		return nil, NewValidationError("product CSV has no rows")
	}

	categories, err := s.keeper.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}

	products := make([]models.Product, 0, len(rows))
	for i, p := range rows {
		line := i + 2 // header is line 1
		p.Name = strings.TrimSpace(p.Name)
		switch {
		case p.Name == "":
			return nil, NewValidationError(fmt.Sprintf("line %d: name is required", line))
		case !known[p.Category]:
			return nil, NewValidationError(fmt.Sprintf("line %d: unknown category %q", line, p.Category))
		case p.Price < 0:
			return nil, NewValidationError(fmt.Sprintf("line %d: price must not be negative", line))
		case p.StockQuantity < 0:
			return nil, NewValidationError(fmt.Sprintf("line %d: stock_quantity must not be negative", line))
		}
		products = append(products, *p)
	}

	return s.keeper.InsertProducts(ctx, products)
}

// ExportOrders writes every order as CSV.
func (s *Storage) ExportOrders(ctx context.Context, w io.Writer) error {
	orders, err := s.keeper.ListOrders(ctx)
	if err != nil {
		return err
	}

	rows := make([]models.OrderExportRow, 0, len(orders))
	for _, o := range orders {
		row := models.OrderExportRow{
			ID:              o.ID,
			CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
			Status:          string(o.Status),
			ShippingAddress: o.ShippingAddress,
			TotalAmount:     o.TotalAmount,
		}
		if o.Customer != nil {
			row.CustomerName, row.CustomerEmail = o.Customer.Name, o.Customer.Email
		}
		rows = append(rows, row)
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write orders CSV: %w", err)
	}
	return nil
}

func (s *Storage) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.keeper.ListOrders(ctx)
}

func (s *Storage) OrderDetails(ctx context.Context, id string) (*models.Order, error) {
	return s.keeper.GetOrder(ctx, id)
}

// UpdateOrderStatus moves an order forward (or cancels it) and returns the updated order.
func (s *Storage) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	next, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, invalid(err)
	}
	if err := s.keeper.UpdateOrderStatus(ctx, id, next); err != nil {
		return nil, err
	}
	return s.keeper.GetOrder(ctx, id)
}
