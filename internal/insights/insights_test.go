package insights

import (
	"testing"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEmptyHistory(t *testing.T) {
	res := Compute(nil)
	assert.Zero(t, res.OverallScore)
	assert.Empty(t, res.CategoryDistribution)
	require.Len(t, res.Alerts, 1)
	assert.Contains(t, res.Alerts[0], "No purchase history")
}

func TestComputeScores(t *testing.T) {
	items := []models.PurchasedItem{
		{Category: "fruits-veg", Quantity: 4, UnitPrice: 1, ListPrice: 1, IsOrganic: true},
		{Category: "meat-fish", Quantity: 2, UnitPrice: 10, ListPrice: 12},
		{Category: "snacks", Quantity: 4, UnitPrice: 3, ListPrice: 2},
	}

	res := Compute(items)

	assert.Equal(t, 60, res.HealthScore)
	assert.Equal(t, 40, res.SustainabilityScore)
	assert.Equal(t, 60, res.BudgetScore)
	assert.Equal(t, 53, res.OverallScore)

	require.Len(t, res.CategoryDistribution, 3)
	assert.Equal(t, "fruits-veg", res.CategoryDistribution[0].Category)
	assert.Equal(t, "snacks", res.CategoryDistribution[1].Category)
	assert.Equal(t, 20.0, res.CategoryDistribution[2].Percentage)

	sum := 0.0
	for _, share := range res.CategoryDistribution {
		sum += share.Percentage
	}
	assert.InDelta(t, 100, sum, 0.5)

	assert.Contains(t, res.Alerts, "Snacks make up 40% of your purchases")
	assert.NotContains(t, res.Alerts, "Add more fruits and vegetables to your cart")
}

func TestComputeScoresStayInRange(t *testing.T) {
	items := []models.PurchasedItem{
		{Category: "snacks", Quantity: 3, UnitPrice: 5, ListPrice: 4},
		{Category: "frozen", Quantity: 0, UnitPrice: 5, ListPrice: 4},
	}

	res := Compute(items)
	for _, score := range []int{res.OverallScore, res.HealthScore, res.SustainabilityScore, res.BudgetScore} {
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
	assert.Len(t, res.CategoryDistribution, 1)
	assert.Contains(t, res.Alerts, "Add more fruits and vegetables to your cart")
	assert.Contains(t, res.Alerts, "Try organic alternatives")
}
