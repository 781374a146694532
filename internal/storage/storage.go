package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/drstein77/grocerystore/internal/assistant"
	"github.com/drstein77/grocerystore/internal/auth"
	"github.com/drstein77/grocerystore/internal/cart"
	"github.com/drstein77/grocerystore/internal/models"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Keeper interface for database operations
type Keeper interface {
	Ping(context.Context) bool
	Close() bool

	CreateUser(ctx context.Context, u models.User, passwordHash string) (*models.User, error)
	UserCredentials(ctx context.Context, email string) (*models.User, string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
	CountProducts(ctx context.Context) (int, error)

	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	InsertProducts(ctx context.Context, products []models.Product) (*models.ImportResult, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ProductReviews(ctx context.Context, productID string) ([]models.Review, error)
	CreateReview(ctx context.Context, r models.Review) (*models.Review, error)

	ListRecommendations(ctx context.Context, userID string, limit int) ([]models.Recommendation, error)
	RefreshRecommendations(ctx context.Context) (int64, error)

	CreateOrder(ctx context.Context, o models.Order) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	PurchasedItems(ctx context.Context, userID string) ([]models.PurchasedItem, error)
	OrderTotals(ctx context.Context) (int, float64, error)
}

// FileStore saves uploaded files and returns their public URL.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
}

// Assistant is the generative model behind chat and smart search.
type Assistant interface {
	Chat(ctx context.Context, history []assistant.Message, cc assistant.ChatContext, onChunk func(string) error) (string, error)
	TranslateGroceryName(ctx context.Context, query string) (string, error)
}

// Storage is the service layer between HTTP handlers and the keeper. Carts
// live in memory, keyed by user id.
type Storage struct {
	mx    sync.RWMutex
	carts map[string]*cart.Cart

	keeper Keeper
	tokens *auth.Manager
	files  FileStore
	ai     Assistant
	log    Log
}

// NewStorage creates a new Storage instance. files and ai may be nil, in
// which case uploads and chat report ErrUnavailable.
func NewStorage(keeper Keeper, tokens *auth.Manager, files FileStore, ai Assistant, log Log) *Storage {
	return &Storage{
		carts:  make(map[string]*cart.Cart),
		keeper: keeper,
		tokens: tokens,
		files:  files,
		ai:     ai,
		log:    log,
	}
}

// Credentials is what a successful login or registration hands back.
type Credentials struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (s *Storage) Ping(ctx context.Context) bool {
	return s.keeper.Ping(ctx)
}

// Register creates a shopper account and signs it in.
func (s *Storage) Register(ctx context.Context, data models.RegisterData) (*Credentials, error) {
	hash, err := auth.HashPassword(data.Password)
	if err != nil {
		return nil, err
	}

	u := models.User{
		Email:              normalizeEmail(data.Email),
		Name:               strings.TrimSpace(data.Name),
		PhoneNumber:        strings.TrimSpace(data.PhoneNumber),
		Address:            strings.TrimSpace(data.Address),
		DietaryPreferences: data.DietaryPreferences,
		Role:               models.RoleUser,
	}
	created, err := s.keeper.CreateUser(ctx, u, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("email %s is already registered: %w", u.Email, ErrConflict)
		}
		return nil, err
	}
	return s.issue(*created)
}

func (s *Storage) Login(ctx context.Context, creds models.LoginCredentials) (*Credentials, error) {
	u, hash, err := s.keeper.UserCredentials(ctx, normalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(hash, creds.Password); err != nil {
		s.log.Info("Failed login attempt", zap.String("user_id", u.ID))
		return nil, err
	}
	return s.issue(*u)
}

func (s *Storage) issue(u models.User) (*Credentials, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Credentials{User: u, Token: token}, nil
}

// Logout revokes the session's token. The cart is kept for the next login.
func (s *Storage) Logout(session auth.Session) {
	s.tokens.Revoke(session)
	s.log.Info("User logged out", zap.String("user_id", session.UserID))
}

// Authorize verifies a bearer token and reloads its user, so role changes
// and deletions apply to sessions issued before them.
func (s *Storage) Authorize(ctx context.Context, token string) (*auth.Session, error) {
	session, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.keeper.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	session.Email = u.Email
	session.Role = u.Role
	return session, nil
}

// PruneSessions forgets revoked tokens that have expired anyway.
func (s *Storage) PruneSessions() int {
	return s.tokens.PruneRevoked()
}

func (s *Storage) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return s.keeper.GetUser(ctx, userID)
}

func (s *Storage) UpdateProfile(ctx context.Context, userID string, upd models.UserUpdate) (*models.User, error) {
	return s.keeper.UpdateUser(ctx, userID, upd)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
