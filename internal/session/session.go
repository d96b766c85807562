// Package session owns the kiosk order workflow: one session per ordering
// pass, stepping Identifying → MealSelection → MenuSelection → Confirmed.
// The session carries the scanned patient identity and the user's selections
// across steps, holds the tri-state results of the catalog loads, and builds
// the confirmation recap exactly once. All mutation goes through the methods
// here; catalog responses are applied only when their scope still matches
// the session, so a stale response never overwrites a newer relevant one.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caretray/api/internal/catalog"
)

// Step is the workflow position of a session.
type Step string

const (
	StepIdentifying   Step = "identifying"
	StepMealSelection Step = "meal_selection"
	StepMenuSelection Step = "menu_selection"
	StepConfirmed     Step = "confirmed"
)

// Errors returned by session operations.
var (
	ErrEmptyScan     = errors.New("scan yielded no identifier")
	ErrWrongStep     = errors.New("operation not allowed in current step")
	ErrMealsNotReady = errors.New("meal catalog not loaded")
	ErrUnknownMeal   = errors.New("meal not in loaded catalog")
	ErrNoMenu        = errors.New("no menu available to confirm")
	ErrInvalidTab    = errors.New("tab index must not be negative")
	ErrAtFirstStep   = errors.New("already at the first step")
	ErrTerminal      = errors.New("session is confirmed; start a new one")
	ErrNotFound      = errors.New("session not found")
)

// Identity is the scanned patient identifier with its acquisition time.
// An empty Ref reads as "not yet scanned".
type Identity struct {
	Ref      string    `json:"ref"`
	StoredAt time.Time `json:"stored_at"`
}

// MealsLoad is the tri-state result of the meal catalog load.
type MealsLoad struct {
	State catalog.LoadState `json:"state"`
	Items []catalog.Meal    `json:"items"`
	Error string            `json:"error,omitempty"`
}

// MenusLoad is the tri-state result of the menu load for one meal.
// MealID is the scope tag the result was requested for.
type MenusLoad struct {
	State  catalog.LoadState `json:"state"`
	MealID int64             `json:"meal_id"`
	Items  []catalog.Menu    `json:"items"`
	Error  string            `json:"error,omitempty"`
}

// StayLoad is the tri-state result of the stay record load.
type StayLoad struct {
	State catalog.LoadState `json:"state"`
	Stay  catalog.Stay      `json:"stay"`
	Error string            `json:"error,omitempty"`
}

// Recap is the confirmed-order record shown on the confirmation screen.
// It is built exactly once when the session is confirmed; re-reading it
// never regenerates the reference.
type Recap struct {
	Reference string       `json:"reference"`
	Patient   string       `json:"patient"`
	Meal      catalog.Meal `json:"meal"`
	Menu      catalog.Menu `json:"menu"`
	Date      string       `json:"date"`
	Time      string       `json:"time"`
}

// OrderPlacer records a confirmed order. Implemented by the order service;
// nil placers skip placement (client-side confirmation only).
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, patientRef string, mealID, menuID int64) error
}

// PlacerFunc adapts a function to the OrderPlacer interface.
type PlacerFunc func(ctx context.Context, patientRef string, mealID, menuID int64) error

func (f PlacerFunc) PlaceOrder(ctx context.Context, patientRef string, mealID, menuID int64) error {
	return f(ctx, patientRef, mealID, menuID)
}

// Session is one ordering pass at a kiosk. All fields are guarded by mu;
// the generation counters pair each in-flight load with the state it was
// started from so late responses of superseded loads are dropped.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	step     Step
	identity Identity
	errMsg   string

	meals    MealsLoad
	mealsGen int

	stay    StayLoad
	stayGen int

	selectedMeal *catalog.Meal
	menus        MenusLoad
	menusGen     int
	activeTab    int

	recap *Recap
}

// View is a JSON-ready snapshot of a session.
type View struct {
	ID           uuid.UUID     `json:"id"`
	Step         Step          `json:"step"`
	Patient      string        `json:"patient,omitempty"`
	PatientName  string        `json:"patient_name,omitempty"`
	ScannedAt    *time.Time    `json:"scanned_at,omitempty"`
	Error        string        `json:"error,omitempty"`
	Meals        *MealsLoad    `json:"meals,omitempty"`
	SelectedMeal *catalog.Meal `json:"selected_meal,omitempty"`
	Menus        *MenusLoad    `json:"menus,omitempty"`
	ActiveTab    int           `json:"active_tab"`
	ActiveMenu   *catalog.Menu `json:"active_menu,omitempty"`
	Recap        *Recap        `json:"recap,omitempty"`
}

func newSession() *Session {
	return &Session{
		ID:   uuid.New(),
		step: StepIdentifying,
	}
}

// Scan stores the decoded identifier and advances to meal selection.
// An empty code keeps the session in Identifying with a user-visible error.
func (s *Session) Scan(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.step {
	case StepConfirmed:
		return ErrTerminal
	case StepIdentifying:
	default:
		return ErrWrongStep
	}

	if code == "" {
		s.errMsg = "could not read an identifier from the scanned code"
		return ErrEmptyScan
	}

	s.identity = Identity{Ref: code, StoredAt: time.Now()}
	s.errMsg = ""
	s.step = StepMealSelection
	return nil
}

// SetTab switches the active course tab. Internal transition: the step
// never changes. Out-of-range indices read back as 0 once the menu list
// no longer covers them.
func (s *Session) SetTab(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepConfirmed {
		return ErrTerminal
	}
	if s.step != StepMenuSelection {
		return ErrWrongStep
	}
	if index < 0 {
		return ErrInvalidTab
	}
	s.activeTab = index
	return nil
}

// Back navigates one step backward. Previously loaded data is kept; the
// confirmed step is terminal.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.step {
	case StepConfirmed:
		return ErrTerminal
	case StepMenuSelection:
		s.step = StepMealSelection
		s.errMsg = ""
		return nil
	case StepMealSelection:
		s.step = StepIdentifying
		s.errMsg = ""
		return nil
	default:
		return ErrAtFirstStep
	}
}

// Confirm finalizes the currently active menu. When a placer is given the
// order is recorded first; a placement failure leaves the session in
// MenuSelection with its selections intact. Confirming an already confirmed
// session returns the existing recap unchanged.
func (s *Session) Confirm(ctx context.Context, placer OrderPlacer) (Recap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepConfirmed {
		return *s.recap, nil
	}
	if s.step != StepMenuSelection {
		return Recap{}, ErrWrongStep
	}

	menu := s.activeMenuLocked()
	if menu == nil {
		return Recap{}, ErrNoMenu
	}

	if placer != nil {
		if err := placer.PlaceOrder(ctx, s.identity.Ref, s.selectedMeal.ID, menu.ID); err != nil {
			return Recap{}, err
		}
	}

	now := time.Now()
	patient := s.identity.Ref
	if s.stay.State == catalog.StateReady && s.stay.Stay.Name != "" {
		patient = s.stay.Stay.Name
	}

	s.recap = &Recap{
		Reference: generateRef(),
		Patient:   patient,
		Meal:      *s.selectedMeal,
		Menu:      *menu,
		Date:      now.Format("Monday 2 January 2006"),
		Time:      now.Format("15:04"),
	}
	s.step = StepConfirmed
	return *s.recap, nil
}

// Recap returns the confirmation record. Only available once confirmed.
func (s *Session) Recap() (Recap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepConfirmed {
		return Recap{}, ErrWrongStep
	}
	return *s.recap, nil
}

// PatientRef returns the stored identifier; empty means not yet scanned.
func (s *Session) PatientRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.Ref
}

// Snapshot returns the session as the presentation layer sees it.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:        s.ID,
		Step:      s.step,
		Patient:   s.identity.Ref,
		Error:     s.errMsg,
		ActiveTab: s.clampedTabLocked(),
	}
	if !s.identity.StoredAt.IsZero() {
		t := s.identity.StoredAt
		v.ScannedAt = &t
	}
	if s.stay.State == catalog.StateReady {
		v.PatientName = s.stay.Stay.Name
	}
	if s.meals.State != "" {
		meals := s.meals
		v.Meals = &meals
	}
	if s.selectedMeal != nil {
		meal := *s.selectedMeal
		v.SelectedMeal = &meal
	}
	if s.menus.State != "" {
		menus := s.menus
		v.Menus = &menus
	}
	if menu := s.activeMenuLocked(); menu != nil {
		m := *menu
		v.ActiveMenu = &m
	}
	if s.recap != nil {
		r := *s.recap
		v.Recap = &r
	}
	return v
}

// ── Selection, guarded load bookkeeping ──

// selectMeal records the chosen meal, moves to menu selection and opens a
// new menu load generation scoped to the meal id.
func (s *Session) selectMeal(mealID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepConfirmed {
		return 0, ErrTerminal
	}
	if s.step != StepMealSelection {
		return 0, ErrWrongStep
	}
	if s.meals.State != catalog.StateReady {
		return 0, ErrMealsNotReady
	}

	var meal *catalog.Meal
	for i := range s.meals.Items {
		if s.meals.Items[i].ID == mealID {
			meal = &s.meals.Items[i]
			break
		}
	}
	if meal == nil {
		return 0, ErrUnknownMeal
	}

	chosen := *meal
	s.selectedMeal = &chosen
	s.step = StepMenuSelection
	s.activeTab = 0
	s.errMsg = ""

	s.menusGen++
	s.menus = MenusLoad{State: catalog.StateLoading, MealID: mealID}
	return s.menusGen, nil
}

func (s *Session) beginMealsLoad() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mealsGen++
	s.meals = MealsLoad{State: catalog.StateLoading}
	return s.mealsGen
}

// applyMeals installs a meal catalog result unless a newer load has been
// started since.
func (s *Session) applyMeals(gen int, items []catalog.Meal, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.mealsGen {
		return
	}
	if err != nil {
		s.meals = MealsLoad{State: catalog.StateFailed, Error: err.Error()}
		return
	}
	s.meals = MealsLoad{State: catalog.StateReady, Items: items}
}

// beginMenusLoad opens a fresh load generation for the currently selected
// meal, used by refresh.
func (s *Session) beginMenusLoad() (int64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMenuSelection || s.selectedMeal == nil {
		return 0, 0, ErrWrongStep
	}
	s.menusGen++
	s.menus = MenusLoad{State: catalog.StateLoading, MealID: s.selectedMeal.ID}
	return s.selectedMeal.ID, s.menusGen, nil
}

// applyMenus installs a menu result only while the session is still in menu
// selection for the same meal and the load has not been superseded. Stale
// responses (navigated away, different meal, older generation) are dropped.
func (s *Session) applyMenus(mealID int64, gen int, items []catalog.Menu, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMenuSelection || s.selectedMeal == nil || s.selectedMeal.ID != mealID || gen != s.menusGen {
		return
	}
	if err != nil {
		s.menus = MenusLoad{State: catalog.StateFailed, MealID: mealID, Error: err.Error()}
		return
	}
	s.menus = MenusLoad{State: catalog.StateReady, MealID: mealID, Items: items}
	if s.activeTab >= len(items) {
		s.activeTab = 0
	}
}

func (s *Session) beginStayLoad() (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.Ref == "" {
		return "", 0, ErrWrongStep
	}
	s.stayGen++
	s.stay = StayLoad{State: catalog.StateLoading}
	return s.identity.Ref, s.stayGen, nil
}

// applyStay installs a stay result unless the patient changed or the load
// was superseded.
func (s *Session) applyStay(patientRef string, gen int, stay catalog.Stay, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.Ref != patientRef || gen != s.stayGen {
		return
	}
	if err != nil {
		s.stay = StayLoad{State: catalog.StateFailed, Error: err.Error()}
		return
	}
	s.stay = StayLoad{State: catalog.StateReady, Stay: stay}
}

// activeMenuLocked resolves the menu under the active tab, falling back to
// index 0 when the list shrank below the stored index. Callers hold s.mu.
func (s *Session) activeMenuLocked() *catalog.Menu {
	if s.menus.State != catalog.StateReady || len(s.menus.Items) == 0 {
		return nil
	}
	idx := s.activeTab
	if idx >= len(s.menus.Items) {
		idx = 0
	}
	return &s.menus.Items[idx]
}

func (s *Session) clampedTabLocked() int {
	if s.menus.State == catalog.StateReady && s.activeTab >= len(s.menus.Items) {
		return 0
	}
	return s.activeTab
}

const refCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateRef produces the 6-character order reference shown on the recap.
func generateRef() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = refCharset[rand.IntN(len(refCharset))]
	}
	return string(b)
}
