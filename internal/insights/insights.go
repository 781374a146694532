// Package insights scores a shopper's purchase history.
package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/drstein77/grocerystore/internal/models"
)

// healthy categories count towards the health score.
var healthy = map[string]bool{
	"fruits-veg": true,
	"dairy-eggs": true,
	"meat-fish":  true,
}

const (
	lowHealthScore   = 50
	snackShareAlert  = 30.0
	lowOrganicScore  = 20
	noHistoryMessage = "No purchase history yet. Place an order to see your insights."
)

// Compute derives scores (0..100) and the category distribution from purchased items.
func Compute(items []models.PurchasedItem) models.Insights {
	var total, healthyQty, organicQty, fairQty int
	byCategory := make(map[string]int)

	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		total += it.Quantity
		byCategory[it.Category] += it.Quantity
		if healthy[it.Category] {
			healthyQty += it.Quantity
		}
		if it.IsOrganic {
			organicQty += it.Quantity
		}
		if it.UnitPrice <= it.ListPrice {
			fairQty += it.Quantity
		}
	}

	if total == 0 {
		return models.Insights{
			CategoryDistribution: []models.CategoryShare{},
			Alerts:               []string{noHistoryMessage},
		}
	}

	res := models.Insights{
		HealthScore:         percent(healthyQty, total),
		SustainabilityScore: percent(organicQty, total),
		BudgetScore:         percent(fairQty, total),
	}
	res.OverallScore = int(math.Round(float64(res.HealthScore+res.SustainabilityScore+res.BudgetScore) / 3))

	for category, qty := range byCategory {
		res.CategoryDistribution = append(res.CategoryDistribution, models.CategoryShare{
			Category:   category,
			Percentage: math.Round(float64(qty)*1000/float64(total)) / 10,
		})
	}
	sort.Slice(res.CategoryDistribution, func(i, j int) bool {
		a, b := res.CategoryDistribution[i], res.CategoryDistribution[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		return a.Category < b.Category
	})

	res.Alerts = []string{}
	if res.HealthScore < lowHealthScore {
		res.Alerts = append(res.Alerts, "Add more fruits and vegetables to your cart")
	}
	if share := float64(byCategory["snacks"]) * 100 / float64(total); share > snackShareAlert {
		res.Alerts = append(res.Alerts, fmt.Sprintf("Snacks make up %.0f%% of your purchases", share))
	}
	if res.SustainabilityScore < lowOrganicScore {
		res.Alerts = append(res.Alerts, "Try organic alternatives")
	}
	return res
}

func percent(part, total int) int {
	return int(math.Round(float64(part) * 100 / float64(total)))
}
