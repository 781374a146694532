package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/drstein77/grocerystore/internal/assistant"
	"github.com/drstein77/grocerystore/internal/models"
	"go.uber.org/zap"
)

func (h *BaseController) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.storage.OrdersByUser(r.Context(), session(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *BaseController) createOrder(w http.ResponseWriter, r *http.Request) {
	var in models.OrderInput
	if !h.decode(w, r, &in) {
		return
	}
	order, err := h.storage.CreateOrder(r.Context(), session(r).UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *BaseController) insights(w http.ResponseWriter, r *http.Request) {
	res, err := h.storage.Insights(r.Context(), session(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type chatRequest struct {
	Messages []assistant.Message `json:"messages" validate:"required,min=1,max=50,dive"`
}

type chatChunk struct {
	Content string `json:"content"`
}

// chat streams the reply as server-sent events: one data event per chunk,
// then "[DONE]". Failures after the stream started become an error event.
func (h *BaseController) chat(w http.ResponseWriter, r *http.Request) {
	var in chatRequest
	if !h.decode(w, r, &in) {
		return
	}

	rc := http.NewResponseController(w)
	started := false
	send := func(chunk string) error {
		if !started {
			started = true
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
		}
		data, err := json.Marshal(chatChunk{Content: chunk})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		_ = rc.Flush()
		return r.Context().Err()
	}

	_, err := h.storage.Chat(r.Context(), session(r).UserID, in.Messages, send)
	if err != nil && !started {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		h.log.Error("Chat stream interrupted", zap.String("user_id", session(r).UserID), zap.Error(err))
		msg, _ := json.Marshal(map[string]string{"message": "the assistant stopped responding"})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", msg)
		_ = rc.Flush()
		return
	}
	if !started {
		// empty reply
		if err := send(""); err != nil {
			return
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	_ = rc.Flush()
}
