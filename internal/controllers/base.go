package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/drstein77/grocerystore/internal/assistant"
	"github.com/drstein77/grocerystore/internal/auth"
	"github.com/drstein77/grocerystore/internal/cart"
	"github.com/drstein77/grocerystore/internal/middleware"
	"github.com/drstein77/grocerystore/internal/models"
	"github.com/drstein77/grocerystore/internal/storage"
	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Storage interface for the service layer
type Storage interface {
	middleware.SessionParser
	Ping(context.Context) bool

	Register(context.Context, models.RegisterData) (*storage.Credentials, error)
	Login(context.Context, models.LoginCredentials) (*storage.Credentials, error)
	Logout(auth.Session)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd models.UserUpdate) (*models.User, error)

	ListProducts(context.Context, models.ProductFilter) ([]models.Product, error)
	ListAllProducts(context.Context, models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.ProductDetails, error)
	SearchProducts(ctx context.Context, query string) ([]models.Product, error)
	SmartSearch(ctx context.Context, query string) (*storage.SmartSearchResult, error)
	ListCategories(context.Context) ([]models.Category, error)
	Recommendations(ctx context.Context, userID string) ([]models.Recommendation, error)
	AddReview(ctx context.Context, userID, productID string, in models.ReviewInput) (*models.Review, error)

	Cart(userID string) cart.Summary
	AddToCart(ctx context.Context, userID, productID string, quantity int) (cart.Summary, error)
	UpdateCartItem(userID, productID string, quantity int) (cart.Summary, error)
	RemoveFromCart(userID, productID string) cart.Summary
	ClearCart(userID string)

	Checkout(ctx context.Context, userID string, in models.CheckoutInput) (*models.Order, error)
	CreateOrder(ctx context.Context, userID string, in models.OrderInput) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	Insights(ctx context.Context, userID string) (models.Insights, error)
	Chat(ctx context.Context, userID string, history []assistant.Message, onChunk func(string) error) (string, error)

	Stats(context.Context) (*models.Stats, error)
	ListUsers(context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, actorID, userID string, role models.Role) error
	DeleteUser(ctx context.Context, actorID, userID string) error
	CreateProduct(context.Context, models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadProductImage(ctx context.Context, filename string, r io.Reader) (string, error)
	ImportProducts(context.Context, io.Reader) (*models.ImportResult, error)
	ExportOrders(context.Context, io.Writer) error
	ListAllOrders(context.Context) ([]models.Order, error)
	OrderDetails(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error)
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController struct for handling requests
type BaseController struct {
	storage  Storage
	validate *validator.Validate
	log      Log
}

// NewBaseController creates a new BaseController instance
func NewBaseController(storage Storage, log Log) *BaseController {
	validate := validator.New()
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &BaseController{
		storage:  storage,
		validate: validate,
		log:      log,
	}
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Get("/products", h.listProducts)
		r.Get("/products/search", h.searchProducts)
		r.Get("/products/smart-search", h.smartSearch)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/categories", h.listCategories)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(h.storage))

			r.Post("/auth/logout", h.logout)
			r.Get("/auth/me", h.me)

			r.Post("/products/{id}/reviews", h.addReview)
			r.Get("/recommendations", h.recommendations)

			r.Get("/cart", h.getCart)
			r.Post("/cart", h.addToCart)
			r.Delete("/cart", h.clearCart)
			r.Put("/cart/{productID}", h.updateCartItem)
			r.Delete("/cart/{productID}", h.removeFromCart)
			r.Post("/checkout", h.checkout)

			r.Get("/orders", h.listOrders)
			r.Post("/orders", h.createOrder)

			r.Get("/profile", h.me)
			r.Put("/profile", h.updateProfile)
			r.Get("/insights", h.insights)
			r.Post("/chat", h.chat)

			r.Route("/admin", h.adminRoutes)
		})
	})

	return r
}

func (h *BaseController) health(w http.ResponseWriter, r *http.Request) {
	if !h.storage.Ping(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "database is unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the authenticated session; routes using it sit behind Authenticate.
func session(r *http.Request) auth.Session {
	s, _ := middleware.SessionFrom(r.Context())
	if s == nil {
		return auth.Session{}
	}
	return *s
}

// decode reads a JSON body into dst and validates it.
func (h *BaseController) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		msg := field + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var body errorBody
	body.Error.Message, body.Error.Status = msg, status
	writeJSON(w, status, body)
}

// fail maps service errors onto HTTP statuses and logs unexpected ones.
func (h *BaseController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case storage.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, storage.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
