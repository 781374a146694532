package controllers

import (
	"net/http"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/go-chi/chi"
)

type addToCartRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=999"`
}

func (h *BaseController) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.Cart(session(r).UserID))
}

func (h *BaseController) addToCart(w http.ResponseWriter, r *http.Request) {
	var in addToCartRequest
	if !h.decode(w, r, &in) {
		return
	}
	summary, err := h.storage.AddToCart(r.Context(), session(r).UserID, in.ProductID, in.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *BaseController) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var in updateCartRequest
	if !h.decode(w, r, &in) {
		return
	}
	summary, err := h.storage.UpdateCartItem(session(r).UserID, chi.URLParam(r, "productID"), in.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *BaseController) removeFromCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.RemoveFromCart(session(r).UserID, chi.URLParam(r, "productID")))
}

func (h *BaseController) clearCart(w http.ResponseWriter, r *http.Request) {
	h.storage.ClearCart(session(r).UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BaseController) checkout(w http.ResponseWriter, r *http.Request) {
	var in models.CheckoutInput
	if !h.decode(w, r, &in) {
		return
	}
	order, err := h.storage.Checkout(r.Context(), session(r).UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}
