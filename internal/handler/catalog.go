package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/caretray/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// CatalogStore defines the database methods needed by catalog handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListMeals(ctx context.Context) ([]database.Meal, error)
	GetMeal(ctx context.Context, id int64) (database.Meal, error)
	ListMenusByMeal(ctx context.Context, mealID int64) ([]database.Menu, error)
}

// CatalogHandler serves the read-only meal and menu feeds the kiosks load.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog/meals", h.ListMeals)
	r.Get("/catalog/meals/{id}/menus", h.ListMenus)
}

// --- Response types ---

type mealResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Servings    int    `json:"servings,omitempty"`
}

type menuResponse struct {
	ID   int64    `json:"id"`
	Name string   `json:"name"`
	Body []string `json:"body"`
}

func toMealResponse(m database.Meal) mealResponse {
	resp := mealResponse{ID: m.ID, Name: m.Name}
	if m.Description.Valid {
		resp.Description = m.Description.String
	}
	if m.Duration.Valid {
		resp.Duration = m.Duration.String
	}
	if m.Servings.Valid {
		resp.Servings = int(m.Servings.Int32)
	}
	return resp
}

func toMenuResponse(m database.Menu) menuResponse {
	body := m.Body
	if body == nil {
		body = []string{}
	}
	return menuResponse{ID: m.ID, Name: m.Name, Body: body}
}

// --- Handlers ---

// ListMeals returns the full meal catalog in display order.
func (h *CatalogHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := h.store.ListMeals(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list meals: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]mealResponse, 0, len(meals))
	for _, m := range meals {
		resp = append(resp, toMealResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMenus returns the menus of one meal.
func (h *CatalogHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	mealID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid meal id"})
		return
	}

	if _, err := h.store.GetMeal(r.Context(), mealID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "meal not found"})
			return
		}
		log.Printf("ERROR: failed to get meal %d: %v", mealID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	menus, err := h.store.ListMenusByMeal(r.Context(), mealID)
	if err != nil {
		log.Printf("ERROR: failed to list menus for meal %d: %v", mealID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuResponse, 0, len(menus))
	for _, m := range menus {
		resp = append(resp, toMenuResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}
