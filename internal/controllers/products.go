package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/go-chi/chi"
)

// parseProductFilter reads category, organic, min_price, max_price, sort and order.
func parseProductFilter(r *http.Request) (models.ProductFilter, string) {
	q := r.URL.Query()
	f := models.ProductFilter{
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}
	if f.Category == "all" {
		f.Category = ""
	}

	if v := q.Get("organic"); v != "" {
		organic, err := strconv.ParseBool(v)
		if err != nil {
			return f, "organic must be true or false"
		}
		f.OrganicOnly = organic
	}
	for name, dst := range map[string]*float64{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return f, name + " must be a non-negative number"
		}
		*dst = price
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		f.Descending = true
	default:
		return f, "order must be asc or desc"
	}
	return f, ""
}

func (h *BaseController) listProducts(w http.ResponseWriter, r *http.Request) {
	f, msg := parseProductFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	products, err := h.storage.ListProducts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *BaseController) searchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.storage.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *BaseController) smartSearch(w http.ResponseWriter, r *http.Request) {
	res, err := h.storage.SmartSearch(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BaseController) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.storage.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *BaseController) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.storage.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *BaseController) recommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.storage.Recommendations(r.Context(), session(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *BaseController) addReview(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if !h.decode(w, r, &in) {
		return
	}
	review, err := h.storage.AddReview(r.Context(), session(r).UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}
