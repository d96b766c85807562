package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caretray/api/internal/auth"
	"github.com/caretray/api/internal/database"
	"github.com/caretray/api/internal/enum"
	"github.com/caretray/api/internal/handler"
	mw "github.com/caretray/api/internal/middleware"
	"github.com/caretray/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// --- Mocks ---

type mockStatusService struct {
	change *service.StatusChange
	err    error

	orderID int64
	status  int
}

func (m *mockStatusService) UpdateStatus(_ context.Context, orderID int64, status int) (*service.StatusChange, error) {
	m.orderID, m.status = orderID, status
	if m.err != nil {
		return nil, m.err
	}
	return m.change, nil
}

// --- Helpers ---

func setupOrderRouter(svc *mockStatusService) http.Handler {
	h := handler.NewOrderHandler(svc, &mockBroadcaster{})
	r := chi.NewRouter()
	r.Use(mw.Authenticate(testJWTSecret))
	r.Use(mw.RequireRole(enum.StaffRoleAdmin, enum.StaffRoleKitchen))
	r.Route("/staff", h.RegisterRoutes)
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, uuid.New(), role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestUpdateOrderStatus_Success(t *testing.T) {
	svc := &mockStatusService{
		change: &service.StatusChange{
			Order:      database.Order{ID: 42, Status: int32(enum.OrderStatusDelivered)},
			PatientRef: "P12345",
		},
	}
	hub := &mockBroadcaster{}
	h := handler.NewOrderHandler(svc, hub)
	r := chi.NewRouter()
	r.Use(mw.Authenticate(testJWTSecret))
	r.Use(mw.RequireRole(enum.StaffRoleAdmin, enum.StaffRoleKitchen))
	r.Route("/staff", h.RegisterRoutes)

	rr := doAuthRequest(t, r, "PATCH", "/staff/orders/42/status", enum.StaffRoleKitchen,
		map[string]int{"status": enum.OrderStatusDelivered})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if svc.orderID != 42 || svc.status != enum.OrderStatusDelivered {
		t.Errorf("service called with (%d, %d)", svc.orderID, svc.status)
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(hub.events) != 1 || hub.events[0].Type != "order.status_changed" {
		t.Fatalf("expected one order.status_changed event, got %+v", hub.events)
	}
	if hub.rooms[0] != "P12345" {
		t.Errorf("event room: got %v", hub.rooms[0])
	}
}

func TestUpdateOrderStatus_InvalidCode(t *testing.T) {
	svc := &mockStatusService{err: service.ErrInvalidStatus}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "PATCH", "/staff/orders/42/status", enum.StaffRoleKitchen,
		map[string]int{"status": 9})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateOrderStatus_OrderNotFound(t *testing.T) {
	svc := &mockStatusService{err: service.ErrOrderNotFound}
	router := setupOrderRouter(svc)

	rr := doAuthRequest(t, router, "PATCH", "/staff/orders/999/status", enum.StaffRoleAdmin,
		map[string]int{"status": enum.OrderStatusCancelled})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUpdateOrderStatus_InvalidOrderID(t *testing.T) {
	router := setupOrderRouter(&mockStatusService{})

	rr := doAuthRequest(t, router, "PATCH", "/staff/orders/abc/status", enum.StaffRoleAdmin,
		map[string]int{"status": 1})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateOrderStatus_RequiresAuth(t *testing.T) {
	router := setupOrderRouter(&mockStatusService{})

	rr := doRequest(t, router, "PATCH", "/staff/orders/42/status", map[string]int{"status": 1})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
