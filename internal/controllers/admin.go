package controllers

import (
	"bytes"
	"net/http"

	"github.com/drstein77/grocerystore/internal/filestore"
	"github.com/drstein77/grocerystore/internal/middleware"
	"github.com/drstein77/grocerystore/internal/models"
	"github.com/go-chi/chi"
)

type roleRequest struct {
	Role models.Role `json:"role" validate:"required,oneof=user admin"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *BaseController) adminRoutes(r chi.Router) {
	r.Use(middleware.RequireAdmin)

	r.Get("/stats", h.stats)

	r.Get("/users", h.listUsers)
	r.Put("/users/{id}/role", h.updateUserRole)
	r.Delete("/users/{id}", h.deleteUser)

	r.Get("/products", h.adminListProducts)
	r.Post("/products", h.createProduct)
	r.Post("/products/image", h.uploadProductImage)
	r.With(middleware.ArchiveTypeMiddleware).Post("/products/import", h.importProducts)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)

	r.Get("/orders", h.listAllOrders)
	r.With(middleware.CompressResponseMiddleware("orders.csv")).Get("/orders/export", h.exportOrders)
	r.Get("/orders/{id}", h.orderDetails)
	r.Put("/orders/{id}/status", h.updateOrderStatus)
}

func (h *BaseController) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.storage.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *BaseController) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.storage.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *BaseController) updateUserRole(w http.ResponseWriter, r *http.Request) {
	var in roleRequest
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.storage.UpdateUserRole(r.Context(), session(r).UserID, chi.URLParam(r, "id"), in.Role); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BaseController) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteUser(r.Context(), session(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BaseController) adminListProducts(w http.ResponseWriter, r *http.Request) {
	f, msg := parseProductFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	products, err := h.storage.ListAllProducts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *BaseController) createProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.storage.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *BaseController) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductUpdate
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.storage.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *BaseController) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BaseController) uploadProductImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, filestore.MaxFileSize+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required: "+err.Error())
		return
	}
	defer file.Close()

	url, err := h.storage.UploadProductImage(r.Context(), header.Filename, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *BaseController) importProducts(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	res, err := h.storage.ImportProducts(r.Context(), r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BaseController) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.storage.ListAllOrders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *BaseController) exportOrders(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.storage.ExportOrders(r.Context(), &buf); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *BaseController) orderDetails(w http.ResponseWriter, r *http.Request) {
	order, err := h.storage.OrderDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *BaseController) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if !h.decode(w, r, &in) {
		return
	}
	order, err := h.storage.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), in.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
