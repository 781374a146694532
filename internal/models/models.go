package models

import "time"

type Product struct {
	ID            string    `json:"id" csv:"id"`
	Name          string    `json:"name" csv:"name"`
	Description   string    `json:"description" csv:"description"`
	Price         float64   `json:"price" csv:"price"`
	Category      string    `json:"category" csv:"category"`
	ImageURL      string    `json:"image_url" csv:"image_url"`
	StockQuantity int       `json:"stock_quantity" csv:"stock_quantity"`
	IsAvailable   bool      `json:"is_available" csv:"is_available"`
	IsOrganic     bool      `json:"is_organic" csv:"is_organic"`
	Unit          string    `json:"unit,omitempty" csv:"unit"`
	CreatedAt     time.Time `json:"created_at" csv:"-"`
	UpdatedAt     time.Time `json:"updated_at" csv:"-"`
}

// ProductDetails is a product together with its reviews.
type ProductDetails struct {
	Product
	Reviews []Review `json:"reviews"`
}

// ProductInput carries the admin-editable product fields.
type ProductInput struct {
	Name          string  `json:"name" validate:"required,min=1,max=200"`
	Description   string  `json:"description" validate:"max=2000"`
	Price         float64 `json:"price" validate:"gte=0"`
	Category      string  `json:"category" validate:"required"`
	ImageURL      string  `json:"image_url" validate:"omitempty,url"`
	StockQuantity int     `json:"stock_quantity" validate:"gte=0"`
	IsAvailable   bool    `json:"is_available"`
	IsOrganic     bool    `json:"is_organic"`
	Unit          string  `json:"unit" validate:"max=32"`
}

// ProductUpdate is a partial product update; nil fields are left untouched.
type ProductUpdate struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	Category      *string  `json:"category" validate:"omitempty,min=1"`
	ImageURL      *string  `json:"image_url" validate:"omitempty,url"`
	StockQuantity *int     `json:"stock_quantity" validate:"omitempty,gte=0"`
	IsAvailable   *bool    `json:"is_available"`
	IsOrganic     *bool    `json:"is_organic"`
	Unit          *string  `json:"unit" validate:"omitempty,max=32"`
}

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	Category      string
	OrganicOnly   bool
	MinPrice      float64
	MaxPrice      float64
	Sort          string
	Descending    bool
	AvailableOnly bool
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// ProductCategories is the fixed catalogue the store is seeded with.
var ProductCategories = []Category{
	{ID: "fruits-veg", Name: "Fruits & Vegetables", Color: "green"},
	{ID: "dairy-eggs", Name: "Dairy & Eggs", Color: "yellow"},
	{ID: "meat-fish", Name: "Meat & Fish", Color: "red"},
	{ID: "bakery", Name: "Bakery", Color: "orange"},
	{ID: "beverages", Name: "Beverages", Color: "blue"},
	{ID: "snacks", Name: "Snacks", Color: "purple"},
	{ID: "household", Name: "Household", Color: "gray"},
	{ID: "frozen", Name: "Frozen Foods", Color: "cyan"},
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	PhoneNumber        string    `json:"phone_number"`
	Address            string    `json:"address"`
	DietaryPreferences []string  `json:"dietary_preferences"`
	Role               Role      `json:"role"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UserUpdate is a partial profile update; nil fields are left untouched.
type UserUpdate struct {
	Name               *string  `json:"name" validate:"omitempty,min=1,max=120"`
	PhoneNumber        *string  `json:"phone_number" validate:"omitempty,min=7,max=20"`
	Address            *string  `json:"address" validate:"omitempty,max=500"`
	DietaryPreferences []string `json:"dietary_preferences" validate:"omitempty,dive,min=1,max=64"`
}

type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterData struct {
	Email              string   `json:"email" validate:"required,email"`
	Password           string   `json:"password" validate:"required,min=8,max=72"`
	Name               string   `json:"name" validate:"required,min=1,max=120"`
	PhoneNumber        string   `json:"phone_number" validate:"omitempty,min=7,max=20"`
	Address            string   `json:"address" validate:"max=500"`
	DietaryPreferences []string `json:"dietary_preferences" validate:"omitempty,dive,min=1,max=64"`
}

type Review struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ProductID      string    `json:"product_id"`
	Rating         int       `json:"rating"`
	ReviewText     *string   `json:"review_text"`
	SentimentScore *float64  `json:"sentiment_score"`
	AuthorName     string    `json:"author_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ReviewInput struct {
	Rating     int     `json:"rating" validate:"required,min=1,max=5"`
	ReviewText *string `json:"review_text" validate:"omitempty,max=2000"`
}

type Recommendation struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	ProductID string   `json:"product_id"`
	Score     float64  `json:"score"`
	Reason    *string  `json:"reason"`
	Product   *Product `json:"product,omitempty"`
}

// Stats summarises the store for the admin dashboard.
type Stats struct {
	Users    int     `json:"users"`
	Products int     `json:"products"`
	Orders   int     `json:"orders"`
	Revenue  float64 `json:"revenue"`
}

// ImportResult is returned after a bulk product import.
type ImportResult struct {
	Imported        int     `json:"imported"`
	TotalProducts   int     `json:"total_products"`
	TotalCategories int     `json:"total_categories"`
	CatalogValue    float64 `json:"catalog_value"`
}

// PurchasedItem is one order line as seen by the insights calculation.
type PurchasedItem struct {
	ProductID string
	Category  string
	Quantity  int
	UnitPrice float64
	ListPrice float64
	IsOrganic bool
}

type CategoryShare struct {
	Category   string  `json:"category"`
	Percentage float64 `json:"percentage"`
}

type Insights struct {
	OverallScore         int             `json:"overallScore"`
	HealthScore          int             `json:"healthScore"`
	SustainabilityScore  int             `json:"sustainabilityScore"`
	BudgetScore          int             `json:"budgetScore"`
	CategoryDistribution []CategoryShare `json:"categoryDistribution"`
	Alerts               []string        `json:"alerts"`
}
