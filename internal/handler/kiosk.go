package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/caretray/api/internal/enum"
	"github.com/caretray/api/internal/service"
	"github.com/caretray/api/internal/session"
	"github.com/caretray/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderPlacerService records a confirmed selection as a real order.
// Satisfied by *service.OrderService.
type OrderPlacerService interface {
	PlaceOrder(ctx context.Context, patientRef string, mealID, menuID int64) (*service.PlacedOrder, error)
}

// Broadcaster pushes an event to every listener of a patient's room.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToPatient(patientRef string, event ws.Event)
}

// KioskHandler exposes the order session workflow over HTTP. One session per
// kiosk interaction; a confirmed session is terminal and a new order starts
// a fresh one.
type KioskHandler struct {
	sessions *session.Manager
	orders   OrderPlacerService
	hub      Broadcaster
}

// NewKioskHandler creates a new KioskHandler.
func NewKioskHandler(sessions *session.Manager, orders OrderPlacerService, hub Broadcaster) *KioskHandler {
	return &KioskHandler{sessions: sessions, orders: orders, hub: hub}
}

// RegisterRoutes registers kiosk endpoints on the given Chi router.
func (h *KioskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/kiosk/sessions", h.CreateSession)
	r.Get("/kiosk/sessions/{id}", h.GetSession)
	r.Post("/kiosk/sessions/{id}/scan", h.Scan)
	r.Post("/kiosk/sessions/{id}/meal", h.SelectMeal)
	r.Post("/kiosk/sessions/{id}/tab", h.SetTab)
	r.Post("/kiosk/sessions/{id}/back", h.Back)
	r.Post("/kiosk/sessions/{id}/refresh", h.Refresh)
	r.Post("/kiosk/sessions/{id}/confirm", h.Confirm)
	r.Get("/kiosk/sessions/{id}/recap", h.GetRecap)
}

// --- Request types ---

type scanRequest struct {
	Code string `json:"code"`
}

type selectMealRequest struct {
	MealID int64 `json:"meal_id"`
}

type setTabRequest struct {
	Index int `json:"index"`
}

type orderPlacedPayload struct {
	OrderID int64  `json:"order_id"`
	Meal    string `json:"meal"`
	Menu    string `json:"menu"`
	Status  int    `json:"status"`
}

// --- Handlers ---

// CreateSession starts a kiosk session and applies the first scan attempt.
// An empty code leaves the new session at the identification step with a
// user-visible error; the kiosk retries through the scan endpoint.
func (h *KioskHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s := h.sessions.Create()
	if _, err := h.sessions.Scan(s.ID, req.Code); err != nil {
		writeJSON(w, sessionErrorStatus(err), s.Snapshot())
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession returns the current snapshot: step, loads in flight, selection.
func (h *KioskHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Scan retries identity acquisition for a session still identifying.
func (h *KioskHandler) Scan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s, err := h.sessions.Scan(id, req.Code)
	if err != nil {
		h.respondSessionError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// SelectMeal records the meal choice and starts the scoped menu load.
func (h *KioskHandler) SelectMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req selectMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s, err := h.sessions.SelectMeal(id, req.MealID)
	if err != nil {
		h.respondSessionError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// SetTab switches the active course tab. Internal transition only; the step
// does not change.
func (h *KioskHandler) SetTab(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req setTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.SetTab(req.Index); err != nil {
		h.respondSessionError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Back navigates one step backward. Loaded data is kept; returning forward
// reuses it without a new fetch.
func (h *KioskHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Back(); err != nil {
		h.respondSessionError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Refresh re-invokes the load behind the current step, dropping its cache.
func (h *KioskHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	s, err := h.sessions.Refresh(id)
	if err != nil {
		h.respondSessionError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Confirm places the order for the active menu and returns the recap.
// Confirming an already confirmed session returns the same recap.
func (h *KioskHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var placed *service.PlacedOrder
	recap, err := s.Confirm(r.Context(), session.PlacerFunc(func(ctx context.Context, patientRef string, mealID, menuID int64) error {
		p, err := h.orders.PlaceOrder(ctx, patientRef, mealID, menuID)
		if err != nil {
			return err
		}
		placed = p
		return nil
	}))
	if err != nil {
		h.respondSessionError(w, s, err)
		return
	}

	if placed != nil {
		h.broadcastPlaced(placed)
	}
	writeJSON(w, http.StatusOK, recap)
}

// GetRecap re-reads the recap of a confirmed session. The reference code is
// generated once; every read returns the same record.
func (h *KioskHandler) GetRecap(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	recap, err := s.Recap()
	if err != nil {
		h.respondSessionError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, recap)
}

// --- Helpers ---

func (h *KioskHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *KioskHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return s, true
}

// respondSessionError maps a workflow error onto a status code. The snapshot
// rides along so the kiosk can render the step it is actually in.
func (h *KioskHandler) respondSessionError(w http.ResponseWriter, s *session.Session, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	resp := map[string]interface{}{"error": err.Error()}
	if s != nil {
		resp["session"] = s.Snapshot()
	}
	writeJSON(w, sessionErrorStatus(err), resp)
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrEmptyScan),
		errors.Is(err, session.ErrUnknownMeal),
		errors.Is(err, session.ErrInvalidTab):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrWrongStep),
		errors.Is(err, session.ErrMealsNotReady),
		errors.Is(err, session.ErrNoMenu),
		errors.Is(err, session.ErrAtFirstStep),
		errors.Is(err, session.ErrTerminal):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *KioskHandler) broadcastPlaced(placed *service.PlacedOrder) {
	payload, err := json.Marshal(orderPlacedPayload{
		OrderID: placed.Order.ID,
		Meal:    placed.MealName,
		Menu:    placed.MenuName,
		Status:  int(placed.Order.Status),
	})
	if err != nil {
		log.Printf("ERROR: failed to marshal order placed event: %v", err)
		return
	}
	h.hub.BroadcastToPatient(placed.PatientRef, ws.Event{Type: enum.EventOrderPlaced, Payload: payload})
}
