package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/drstein77/grocerystore/internal/models"
)

// fakeKeeper is an in-memory Keeper for service tests.
type fakeKeeper struct {
	mx sync.Mutex

	users    map[string]models.User
	hashes   map[string]string
	products map[string]models.Product
	orders   []models.Order
	reviews  []models.Review
	recs     []models.Recommendation
	statuses map[string]models.OrderStatus
	imported []models.Product

	failOrders    error
	onCreateOrder func() // runs before the order is stored
	seq           int
}

func newFakeKeeper() *fakeKeeper {
	return &fakeKeeper{
		users:    map[string]models.User{},
		hashes:   map[string]string{},
		products: map[string]models.Product{},
		statuses: map[string]models.OrderStatus{},
	}
}

func (f *fakeKeeper) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeKeeper) Ping(context.Context) bool { return true }
func (f *fakeKeeper) Close() bool               { return true }

func (f *fakeKeeper) CreateUser(_ context.Context, u models.User, hash string) (*models.User, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("create user: %w", ErrConflict)
		}
	}
	u.ID = f.nextID("user")
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	f.hashes[u.ID] = hash
	return &u, nil
}

func (f *fakeKeeper) UserCredentials(_ context.Context, email string) (*models.User, string, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return &u, f.hashes[u.ID], nil
		}
	}
	return nil, "", fmt.Errorf("get user credentials: %w", ErrNotFound)
}

func (f *fakeKeeper) GetUser(_ context.Context, id string) (*models.User, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", ErrNotFound)
	}
	return &u, nil
}

func (f *fakeKeeper) ListUsers(context.Context) ([]models.User, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeKeeper) UpdateUser(_ context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("update user: %w", ErrNotFound)
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.DietaryPreferences != nil {
		u.DietaryPreferences = upd.DietaryPreferences
	}
	f.users[id] = u
	return &u, nil
}

func (f *fakeKeeper) UpdateUserRole(_ context.Context, id string, role models.Role) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("update user role: %w", ErrNotFound)
	}
	u.Role = role
	f.users[id] = u
	return nil
}

func (f *fakeKeeper) DeleteUser(_ context.Context, id string) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	if _, ok := f.users[id]; !ok {
		return fmt.Errorf("delete user: %w", ErrNotFound)
	}
	delete(f.users, id)
	return nil
}

func (f *fakeKeeper) CountUsers(context.Context) (int, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	return len(f.users), nil
}

func (f *fakeKeeper) CountProducts(context.Context) (int, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	return len(f.products), nil
}

func (f *fakeKeeper) addProduct(p models.Product) models.Product {
	f.mx.Lock()
	defer f.mx.Unlock()
	if p.ID == "" {
		p.ID = f.nextID("prod")
	}
	f.products[p.ID] = p
	return p
}

func (f *fakeKeeper) ListProducts(_ context.Context, flt models.ProductFilter) ([]models.Product, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	out := []models.Product{}
	for _, p := range f.products {
		if flt.AvailableOnly && !p.IsAvailable {
			continue
		}
		if flt.Category != "" && p.Category != flt.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeKeeper) GetProduct(_ context.Context, id string) (*models.Product, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("get product: %w", ErrNotFound)
	}
	return &p, nil
}

func (f *fakeKeeper) SearchProducts(_ context.Context, query string) ([]models.Product, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	out := []models.Product{}
	for _, p := range f.products {
		if p.IsAvailable && strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeKeeper) CreateProduct(_ context.Context, in models.ProductInput) (*models.Product, error) {
	p := f.addProduct(models.Product{
		Name: in.Name, Description: in.Description, Price: in.Price, Category: in.Category,
		StockQuantity: in.StockQuantity, IsAvailable: in.IsAvailable, IsOrganic: in.IsOrganic, Unit: in.Unit,
	})
	return &p, nil
}

func (f *fakeKeeper) UpdateProduct(_ context.Context, id string, upd models.ProductUpdate) (*models.Product, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("update product: %w", ErrNotFound)
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	f.products[id] = p
	return &p, nil
}

func (f *fakeKeeper) DeleteProduct(_ context.Context, id string) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	if _, ok := f.products[id]; !ok {
		return fmt.Errorf("delete product: %w", ErrNotFound)
	}
	delete(f.products, id)
	return nil
}

func (f *fakeKeeper) InsertProducts(_ context.Context, products []models.Product) (*models.ImportResult, error) {
	f.mx.Lock()
	f.imported = append(f.imported, products...)
	f.mx.Unlock()
	for _, p := range products {
		f.addProduct(p)
	}
	return &models.ImportResult{Imported: len(products), TotalProducts: len(f.products)}, nil
}

func (f *fakeKeeper) ListCategories(context.Context) ([]models.Category, error) {
	return models.ProductCategories, nil
}

func (f *fakeKeeper) ProductReviews(_ context.Context, productID string) ([]models.Review, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	out := []models.Review{}
	for _, r := range f.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeKeeper) CreateReview(_ context.Context, r models.Review) (*models.Review, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	r.ID = f.nextID("review")
	f.reviews = append(f.reviews, r)
	return &r, nil
}

func (f *fakeKeeper) ListRecommendations(_ context.Context, userID string, limit int) ([]models.Recommendation, error) {
	out := []models.Recommendation{}
	for _, r := range f.recs {
		if r.UserID == userID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeKeeper) RefreshRecommendations(context.Context) (int64, error) {
	return int64(len(f.recs)), nil
}

func (f *fakeKeeper) CreateOrder(_ context.Context, o models.Order) (*models.Order, error) {
	if f.onCreateOrder != nil {
		f.onCreateOrder()
	}
	f.mx.Lock()
	defer f.mx.Unlock()
	if f.failOrders != nil {
		return nil, f.failOrders
	}
	o.ID = f.nextID("order")
	o.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.orders = append(f.orders, o)
	f.statuses[o.ID] = o.Status
	return &o, nil
}

func (f *fakeKeeper) ListOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeKeeper) ListOrders(context.Context) ([]models.Order, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	out := make([]models.Order, len(f.orders))
	for i, o := range f.orders {
		o.Status = f.statuses[o.ID]
		if u, ok := f.users[o.UserID]; ok {
			o.Customer = &models.Customer{Name: u.Name, Email: u.Email}
		}
		out[i] = o
	}
	return out, nil
}

func (f *fakeKeeper) GetOrder(_ context.Context, id string) (*models.Order, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			o.Status = f.statuses[id]
			return &o, nil
		}
	}
	return nil, fmt.Errorf("get order: %w", ErrNotFound)
}

func (f *fakeKeeper) UpdateOrderStatus(_ context.Context, id string, status models.OrderStatus) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	current, ok := f.statuses[id]
	if !ok {
		return fmt.Errorf("update order status: %w", ErrNotFound)
	}
	if !current.CanTransitionTo(status) {
		return fmt.Errorf("order %s is %s: %w", id, current, ErrInvalidTransition)
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeKeeper) PurchasedItems(_ context.Context, userID string) ([]models.PurchasedItem, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	out := []models.PurchasedItem{}
	for _, o := range f.orders {
		if o.UserID != userID || f.statuses[o.ID] == models.StatusCancelled {
			continue
		}
		for _, it := range o.Items {
			p := f.products[it.ProductID]
			out = append(out, models.PurchasedItem{
				ProductID: it.ProductID, Category: p.Category, Quantity: it.Quantity,
				UnitPrice: it.UnitPrice, ListPrice: p.Price, IsOrganic: p.IsOrganic,
			})
		}
	}
	return out, nil
}

func (f *fakeKeeper) OrderTotals(context.Context) (int, float64, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	var revenue float64
	for _, o := range f.orders {
		if f.statuses[o.ID] != models.StatusCancelled {
			revenue += o.TotalAmount
		}
	}
	return len(f.orders), revenue, nil
}
