package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/caretray/api/internal/database"
	"github.com/caretray/api/internal/status"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// StayStore defines the database methods needed by the stay handler.
// Satisfied by *database.Queries; narrow interface for testability.
type StayStore interface {
	GetStayByPatientRef(ctx context.Context, patientRef string) (database.Stay, error)
	ListOrdersByStay(ctx context.Context, stayID int64) ([]database.OrderWithNames, error)
}

// StayHandler serves the per-patient stay record with its order history.
type StayHandler struct {
	store StayStore
}

// NewStayHandler creates a new StayHandler.
func NewStayHandler(store StayStore) *StayHandler {
	return &StayHandler{store: store}
}

// RegisterRoutes registers stay endpoints on the given Chi router.
func (h *StayHandler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog/patients/{pid}/stay", h.GetStay)
}

// --- Response types ---

type stayResponse struct {
	Name   string          `json:"name"`
	Orders []orderResponse `json:"orders"`
}

type orderResponse struct {
	ID        int64           `json:"id"`
	Meal      orderMeal       `json:"meal"`
	Menu      orderMenu       `json:"menu"`
	Status    int             `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Category  status.Category `json:"status_category"`
	MealKind  status.Category `json:"meal_category"`
}

type orderMeal struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type orderMenu struct {
	ID   int64    `json:"id"`
	Name string   `json:"name"`
	Body []string `json:"body"`
}

func toOrderResponse(o database.OrderWithNames) orderResponse {
	body := o.MenuBody
	if body == nil {
		body = []string{}
	}
	return orderResponse{
		ID:        o.ID,
		Meal:      orderMeal{ID: o.MealID, Name: o.MealName},
		Menu:      orderMenu{ID: o.MenuID, Name: o.MenuName, Body: body},
		Status:    int(o.Status),
		CreatedAt: o.CreatedAt,
		Category:  status.ResolveStatus(int(o.Status)),
		MealKind:  status.ResolveMealCategory(o.MealName),
	}
}

// --- Handlers ---

// GetStay returns the admission record for the scanned patient identifier,
// with order history newest first. Orders is never null, even when empty.
func (h *StayHandler) GetStay(w http.ResponseWriter, r *http.Request) {
	patientRef := chi.URLParam(r, "pid")

	stay, err := h.store.GetStayByPatientRef(r.Context(), patientRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no stay for patient"})
			return
		}
		log.Printf("ERROR: failed to get stay for %s: %v", patientRef, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders, err := h.store.ListOrdersByStay(r.Context(), stay.ID)
	if err != nil {
		log.Printf("ERROR: failed to list orders for stay %d: %v", stay.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := stayResponse{Name: stay.PatientName, Orders: make([]orderResponse, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}
