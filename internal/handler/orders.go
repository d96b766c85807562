package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/caretray/api/internal/enum"
	"github.com/caretray/api/internal/service"
	"github.com/caretray/api/internal/ws"
	"github.com/go-chi/chi/v5"
)

// OrderStatusService advances an order through its lifecycle.
// Satisfied by *service.OrderService.
type OrderStatusService interface {
	UpdateStatus(ctx context.Context, orderID int64, status int) (*service.StatusChange, error)
}

// OrderHandler exposes staff-side order administration.
type OrderHandler struct {
	orders OrderStatusService
	hub    Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders OrderStatusService, hub Broadcaster) *OrderHandler {
	return &OrderHandler{orders: orders, hub: hub}
}

// RegisterRoutes registers staff order endpoints on the given Chi router.
// The caller mounts these behind authentication and role checks.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status int `json:"status"`
}

type statusChangedPayload struct {
	OrderID int64 `json:"order_id"`
	Status  int   `json:"status"`
}

// --- Handlers ---

// UpdateStatus sets the status on an order and notifies the patient's room.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	change, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status code"})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			log.Printf("ERROR: failed to update order %d status: %v", orderID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	payload, err := json.Marshal(statusChangedPayload{OrderID: change.Order.ID, Status: int(change.Order.Status)})
	if err != nil {
		log.Printf("ERROR: failed to marshal status change event: %v", err)
	} else {
		h.hub.BroadcastToPatient(change.PatientRef, ws.Event{Type: enum.EventOrderStatusChanged, Payload: payload})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     change.Order.ID,
		"status": change.Order.Status,
	})
}
