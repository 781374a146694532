package controllers

import (
	"net/http"

	"github.com/drstein77/grocerystore/internal/models"
)

func (h *BaseController) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterData
	if !h.decode(w, r, &in) {
		return
	}
	creds, err := h.storage.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, creds)
}

func (h *BaseController) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginCredentials
	if !h.decode(w, r, &in) {
		return
	}
	creds, err := h.storage.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (h *BaseController) logout(w http.ResponseWriter, r *http.Request) {
	h.storage.Logout(session(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *BaseController) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.storage.CurrentUser(r.Context(), session(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *BaseController) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.UserUpdate
	if !h.decode(w, r, &in) {
		return
	}
	u, err := h.storage.UpdateProfile(r.Context(), session(r).UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
