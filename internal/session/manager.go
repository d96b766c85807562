package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/caretray/api/internal/catalog"
)

// Manager owns the live kiosk sessions and drives the asynchronous catalog
// loads on their behalf. Loads run in their own goroutines and settle back
// into the session through the scope-guarded apply methods; navigation never
// cancels an in-flight load, stale results are simply dropped on arrival.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	loader   catalog.Loader
}

// NewManager creates a Manager loading through the given gateway.
func NewManager(loader catalog.Loader) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		loader:   loader,
	}
}

// Create starts a fresh session in the Identifying step. Prior sessions are
// left to expire with the process; a new order always begins here.
func (m *Manager) Create() *Session {
	s := newSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a live session.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Scan applies a scanned identity to the session and, on success, starts
// the meal catalog and stay record loads.
func (m *Manager) Scan(id uuid.UUID, code string) (*Session, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.Scan(code); err != nil {
		return s, err
	}

	gen := s.beginMealsLoad()
	go m.loadMeals(s, gen)

	if ref, stayGen, err := s.beginStayLoad(); err == nil {
		go m.loadStay(s, ref, stayGen)
	}
	return s, nil
}

// SelectMeal records the meal choice and starts the scoped menu load.
func (m *Manager) SelectMeal(id uuid.UUID, mealID int64) (*Session, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	gen, err := s.selectMeal(mealID)
	if err != nil {
		return s, err
	}
	go m.loadMenus(s, mealID, gen)
	return s, nil
}

// Refresh re-invokes the load behind the current step after dropping its
// cached scope. This is the only path that re-fetches already loaded data.
func (m *Manager) Refresh(id uuid.UUID) (*Session, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	switch s.Snapshot().Step {
	case StepMealSelection:
		m.loader.InvalidateMeals()
		gen := s.beginMealsLoad()
		go m.loadMeals(s, gen)
		if ref, stayGen, err := s.beginStayLoad(); err == nil {
			m.loader.InvalidateStay(ref)
			go m.loadStay(s, ref, stayGen)
		}
		return s, nil
	case StepMenuSelection:
		mealID, gen, err := s.beginMenusLoad()
		if err != nil {
			return s, err
		}
		m.loader.InvalidateMenus(mealID)
		go m.loadMenus(s, mealID, gen)
		return s, nil
	default:
		return s, ErrWrongStep
	}
}

// PatientRef resolves the patient identifier held by a session, used to gate
// access to patient-scoped streams.
func (m *Manager) PatientRef(id uuid.UUID) (string, bool) {
	s, ok := m.Get(id)
	if !ok {
		return "", false
	}
	ref := s.PatientRef()
	return ref, ref != ""
}

// Loads run without a parent context on purpose: navigation does not cancel
// them, the gateway bounds their duration, and arrival is scope-checked.

func (m *Manager) loadMeals(s *Session, gen int) {
	meals, err := m.loader.Meals(context.Background())
	s.applyMeals(gen, meals, err)
}

func (m *Manager) loadMenus(s *Session, mealID int64, gen int) {
	menus, err := m.loader.MenusForMeal(context.Background(), mealID)
	s.applyMenus(mealID, gen, menus, err)
}

func (m *Manager) loadStay(s *Session, patientRef string, gen int) {
	stay, err := m.loader.Stay(context.Background(), patientRef)
	s.applyStay(patientRef, gen, stay, err)
}
