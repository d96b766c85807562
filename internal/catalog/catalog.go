// Package catalog is the kiosk's data gateway. It performs the three
// network-backed loads the order workflow depends on (meal catalog, menu
// catalog scoped to a meal, stay/history record scoped to a patient) and
// caches successful results per scope key so backward navigation does not
// re-fetch. Every load is a single attempt under a bounded timeout; callers
// that want a retry invoke the load again after invalidating its scope.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// LoadState is the tri-state outcome of a gateway load as observed by a
// screen: exactly one of loading, ready or failed at any instant.
type LoadState string

const (
	StateLoading LoadState = "loading"
	StateReady   LoadState = "ready"
	StateFailed  LoadState = "failed"
)

// Meal mirrors one entry of the meal catalog feed.
type Meal struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Servings    int    `json:"servings,omitempty"`
}

// Menu mirrors one selectable menu of a meal. Body is the ordered course
// list; index 0 is the first course.
type Menu struct {
	ID   int64    `json:"id"`
	Name string   `json:"name"`
	Body []string `json:"body"`
}

// Order is one history entry of a stay record.
type Order struct {
	ID        int64     `json:"id"`
	Meal      Meal      `json:"meal"`
	Menu      Menu      `json:"menu"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Stay is the patient's admission record with its order history.
type Stay struct {
	Name   string  `json:"name"`
	Orders []Order `json:"orders"`
}

// Loader is the gateway surface the session machine depends on.
// Satisfied by *Gateway; narrow interface for testability.
type Loader interface {
	Meals(ctx context.Context) ([]Meal, error)
	MenusForMeal(ctx context.Context, mealID int64) ([]Menu, error)
	Stay(ctx context.Context, patientRef string) (Stay, error)
	InvalidateMeals()
	InvalidateMenus(mealID int64)
	InvalidateStay(patientRef string)
}

// Gateway loads catalog data over HTTP and caches it per scope key.
type Gateway struct {
	client *resty.Client

	mu    sync.Mutex
	meals []Meal
	menus map[int64][]Menu
	stays map[string]Stay
}

// NewGateway creates a gateway against the given base URL. Timeout bounds
// each individual load; there is no retry.
func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Gateway{
		client: client,
		menus:  make(map[int64][]Menu),
		stays:  make(map[string]Stay),
	}
}

// Meals loads the meal catalog, serving a cached copy when present.
func (g *Gateway) Meals(ctx context.Context) ([]Meal, error) {
	g.mu.Lock()
	if g.meals != nil {
		cached := g.meals
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	var meals []Meal
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&meals).
		Get("/catalog/meals")
	if err != nil {
		return nil, fmt.Errorf("load meals: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("load meals: catalog responded %d", resp.StatusCode())
	}
	if meals == nil {
		meals = []Meal{}
	}

	g.mu.Lock()
	g.meals = meals
	g.mu.Unlock()
	return meals, nil
}

// MenusForMeal loads the menus of one meal, serving a cached copy when
// present. The meal id is the scope key.
func (g *Gateway) MenusForMeal(ctx context.Context, mealID int64) ([]Menu, error) {
	g.mu.Lock()
	if cached, ok := g.menus[mealID]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	var menus []Menu
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&menus).
		Get(fmt.Sprintf("/catalog/meals/%d/menus", mealID))
	if err != nil {
		return nil, fmt.Errorf("load menus for meal %d: %w", mealID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("load menus for meal %d: catalog responded %d", mealID, resp.StatusCode())
	}
	if menus == nil {
		menus = []Menu{}
	}

	g.mu.Lock()
	g.menus[mealID] = menus
	g.mu.Unlock()
	return menus, nil
}

// Stay loads a patient's stay record, serving a cached copy when present.
// The scanned patient identifier is the scope key.
func (g *Gateway) Stay(ctx context.Context, patientRef string) (Stay, error) {
	g.mu.Lock()
	if cached, ok := g.stays[patientRef]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	var stay Stay
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&stay).
		Get(fmt.Sprintf("/catalog/patients/%s/stay", patientRef))
	if err != nil {
		return Stay{}, fmt.Errorf("load stay for %s: %w", patientRef, err)
	}
	if resp.IsError() {
		return Stay{}, fmt.Errorf("load stay for %s: catalog responded %d", patientRef, resp.StatusCode())
	}
	if stay.Orders == nil {
		stay.Orders = []Order{}
	}

	g.mu.Lock()
	g.stays[patientRef] = stay
	g.mu.Unlock()
	return stay, nil
}

// InvalidateMeals drops the cached meal catalog so the next load re-fetches.
func (g *Gateway) InvalidateMeals() {
	g.mu.Lock()
	g.meals = nil
	g.mu.Unlock()
}

// InvalidateMenus drops the cached menus of one meal.
func (g *Gateway) InvalidateMenus(mealID int64) {
	g.mu.Lock()
	delete(g.menus, mealID)
	g.mu.Unlock()
}

// InvalidateStay drops the cached stay record of one patient.
func (g *Gateway) InvalidateStay(patientRef string) {
	g.mu.Lock()
	delete(g.stays, patientRef)
	g.mu.Unlock()
}
