package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drstein77/grocerystore/internal/assistant"
	"github.com/drstein77/grocerystore/internal/models"
	"go.uber.org/zap"
)

const recommendationLimit = 10

// ListProducts lists the storefront catalogue; unavailable products are hidden.
func (s *Storage) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return nil, NewValidationError("min_price must not exceed max_price")
	}
	f.AvailableOnly = true
	return s.keeper.ListProducts(ctx, f)
}

// ListAllProducts is the admin view of the catalogue, unavailable products included.
func (s *Storage) ListAllProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	f.AvailableOnly = false
	return s.keeper.ListProducts(ctx, f)
}

func (s *Storage) GetProduct(ctx context.Context, id string) (*models.ProductDetails, error) {
	p, err := s.keeper.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.keeper.ProductReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ProductDetails{Product: *p, Reviews: reviews}, nil
}

func (s *Storage) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("search query is empty")
	}
	return s.keeper.SearchProducts(ctx, query)
}

// SmartSearchResult tells the shopper which English name their query resolved to.
type SmartSearchResult struct {
	Query    string           `json:"query"`
	Resolved string           `json:"resolved"`
	Products []models.Product `json:"products"`
}

// SmartSearch resolves local-language names or descriptions to a grocery
// item before searching. Without a model only exact table names resolve.
func (s *Storage) SmartSearch(ctx context.Context, query string) (*SmartSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("search query is empty")
	}

	resolved := query
	if s.ai != nil {
		name, err := s.ai.TranslateGroceryName(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		resolved = name
	} else if name, ok := assistant.LookupLocalName(query); ok {
		resolved = name
	}

	products, err := s.keeper.SearchProducts(ctx, resolved)
	if err != nil {
		return nil, err
	}
	s.log.Info("Smart search", zap.String("query", query), zap.String("resolved", resolved), zap.Int("found", len(products)))
	return &SmartSearchResult{Query: query, Resolved: resolved, Products: products}, nil
}

func (s *Storage) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.keeper.ListCategories(ctx)
}

// Recommendations returns the user's top recommendations by score.
func (s *Storage) Recommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	return s.keeper.ListRecommendations(ctx, userID, recommendationLimit)
}

// RefreshRecommendations rebuilds every user's recommendations from order history.
func (s *Storage) RefreshRecommendations(ctx context.Context) error {
	n, err := s.keeper.RefreshRecommendations(ctx)
	if err != nil {
		s.log.Error("Failed to refresh recommendations", zap.Error(err))
		return err
	}
	s.log.Info("Recommendations refreshed", zap.Int64("rows", n))
	return nil
}

func (s *Storage) AddReview(ctx context.Context, userID, productID string, in models.ReviewInput) (*models.Review, error) {
	if _, err := s.keeper.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	r := models.Review{
		UserID:     userID,
		ProductID:  productID,
		Rating:     in.Rating,
		ReviewText: in.ReviewText,
	}
	if r.ReviewText != nil {
		text := strings.TrimSpace(*r.ReviewText)
		if text == "" {
			r.ReviewText = nil
		} else {
			r.ReviewText = &text
		}
	}

	created, err := s.keeper.CreateReview(ctx, r)
	if err != nil {
		return nil, err
	}
	if u, err := s.keeper.GetUser(ctx, userID); err == nil {
		created.AuthorName = u.Name
	} else if !errors.Is(err, ErrNotFound) {
		s.log.Error("Failed to load review author", zap.String("user_id", userID), zap.Error(err))
	}
	return created, nil
}
