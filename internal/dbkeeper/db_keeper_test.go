package dbkeeper

import (
	"context"
	"os"
	"testing"

	"github.com/drstein77/grocerystore/internal/logger"
	"github.com/drstein77/grocerystore/internal/models"
	"github.com/drstein77/grocerystore/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestKeeper connects to TEST_DATABASE_URI and migrates it; the test is
// skipped when the variable is not set.
func newTestKeeper(t *testing.T) *DBKeeper {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	log := logger.NewNop()
	require.NoError(t, Migrate(dsn, "migrations", log))

	kp := NewDBKeeper(context.Background(), func() string { return dsn }, log)
	require.NotNil(t, kp)
	t.Cleanup(func() { kp.Close() })
	return kp
}

func TestOrderLifecycle(t *testing.T) {
	kp := newTestKeeper(t)
	ctx := context.Background()

	user, err := kp.CreateUser(ctx, models.User{
		Email: uuid.NewString() + "@example.com",
		Name:  "Ada",
		Role:  models.RoleUser,
	}, "hash")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kp.DeleteUser(context.Background(), user.ID) })

	_, err = kp.CreateUser(ctx, models.User{Email: user.Email, Role: models.RoleUser}, "hash")
	assert.ErrorIs(t, err, storage.ErrConflict)

	product, err := kp.CreateProduct(ctx, models.ProductInput{
		Name:          "Test plantain " + uuid.NewString()[:8],
		Description:   "ripe",
		Price:         2.5,
		Category:      "fruits-veg",
		StockQuantity: 10,
		IsAvailable:   true,
		IsOrganic:     true,
	})
	require.NoError(t, err)

	order, err := kp.CreateOrder(ctx, models.Order{
		UserID:          user.ID,
		Status:          models.StatusPending,
		TotalAmount:     5,
		ShippingAddress: "12 Marina Road, Lagos",
		Items:           []models.OrderItem{{ProductID: product.ID, Quantity: 2, UnitPrice: 2.5}},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.NotEmpty(t, order.Items[0].ID)

	require.NoError(t, kp.UpdateOrderStatus(ctx, order.ID, models.StatusProcessing))
	err = kp.UpdateOrderStatus(ctx, order.ID, models.StatusPending)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)
	assert.ErrorIs(t, kp.UpdateOrderStatus(ctx, uuid.NewString(), models.StatusShipped), storage.ErrNotFound)

	got, err := kp.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, "Ada", got.Customer.Name)
	require.Len(t, got.Items, 1)
	assert.Equal(t, product.Name, got.Items[0].Product.Name)

	mine, err := kp.ListOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Items, 1)

	items, err := kp.PurchasedItems(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fruits-veg", items[0].Category)

	_, err = kp.RefreshRecommendations(ctx)
	require.NoError(t, err)

	// ordered products cannot be deleted
	err = kp.DeleteProduct(ctx, product.ID)
	assert.True(t, storage.IsValidation(err))
}

func TestProductCatalogue(t *testing.T) {
	kp := newTestKeeper(t)
	ctx := context.Background()
	tag := uuid.NewString()[:8]

	res, err := kp.InsertProducts(ctx, []models.Product{
		{Name: "Jollof spice " + tag, Description: "blend", Price: 3, Category: "snacks", StockQuantity: 4, IsAvailable: true},
		{Name: "Hidden yam " + tag, Price: 1, Category: "fruits-veg", StockQuantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.GreaterOrEqual(t, res.TotalProducts, 2)

	found, err := kp.SearchProducts(ctx, tag)
	require.NoError(t, err)
	require.Len(t, found, 1, "unavailable products are not searchable")
	assert.Equal(t, "Jollof spice "+tag, found[0].Name)

	price := 4.25
	updated, err := kp.UpdateProduct(ctx, found[0].ID, models.ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.InDelta(t, 4.25, updated.Price, 1e-9)
	assert.Equal(t, found[0].Name, updated.Name)

	_, err = kp.CreateProduct(ctx, models.ProductInput{Name: "Bad", Category: "nope"})
	assert.True(t, storage.IsValidation(err))

	categories, err := kp.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(models.ProductCategories))

	require.NoError(t, kp.DeleteProduct(ctx, found[0].ID))
	_, err = kp.GetProduct(ctx, found[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
