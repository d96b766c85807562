package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/caretray/api/internal/catalog"
)

var testMeals = []catalog.Meal{
	{ID: 1, Name: "Breakfast Tray"},
	{ID: 2, Name: "Lunch Set"},
	{ID: 3, Name: "Dinner Bowl"},
}

var testMenus = []catalog.Menu{
	{ID: 10, Name: "Classic", Body: []string{"Soup", "Chicken", "Cake"}},
	{ID: 11, Name: "Veggie", Body: []string{"Salad", "Gratin"}},
}

// readySession builds a session parked at menu selection with meals and
// menus applied, the way a user who scanned and picked a meal would see it.
func readySession(t *testing.T) *Session {
	t.Helper()
	s := newSession()
	if err := s.Scan("P12345"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	gen := s.beginMealsLoad()
	s.applyMeals(gen, testMeals, nil)
	menusGen, err := s.selectMeal(2)
	if err != nil {
		t.Fatalf("selectMeal: %v", err)
	}
	s.applyMenus(2, menusGen, testMenus, nil)
	return s
}

func TestScanAdvancesToMealSelection(t *testing.T) {
	s := newSession()
	if got := s.Snapshot().Step; got != StepIdentifying {
		t.Fatalf("new session step = %q", got)
	}

	if err := s.Scan("P12345"); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	v := s.Snapshot()
	if v.Step != StepMealSelection {
		t.Errorf("step = %q, want %q", v.Step, StepMealSelection)
	}
	if v.Patient != "P12345" {
		t.Errorf("patient = %q, want P12345", v.Patient)
	}
	if v.ScannedAt == nil {
		t.Error("scanned_at not recorded")
	}
}

func TestScanEmptyCodeStaysIdentifying(t *testing.T) {
	s := newSession()
	err := s.Scan("")
	if !errors.Is(err, ErrEmptyScan) {
		t.Fatalf("err = %v, want ErrEmptyScan", err)
	}

	v := s.Snapshot()
	if v.Step != StepIdentifying {
		t.Errorf("step = %q, want identifying", v.Step)
	}
	if v.Error == "" {
		t.Error("expected a user-visible error message")
	}

	// A following successful scan recovers.
	if err := s.Scan("P1"); err != nil {
		t.Fatalf("Scan after failure: %v", err)
	}
	if v := s.Snapshot(); v.Error != "" {
		t.Errorf("error message not cleared: %q", v.Error)
	}
}

func TestSelectMealRequiresLoadedCatalog(t *testing.T) {
	s := newSession()
	s.Scan("P1")

	// Load still in flight.
	s.beginMealsLoad()
	if _, err := s.selectMeal(1); !errors.Is(err, ErrMealsNotReady) {
		t.Fatalf("err = %v, want ErrMealsNotReady", err)
	}
}

func TestSelectMealUnknownID(t *testing.T) {
	s := newSession()
	s.Scan("P1")
	s.applyMeals(s.beginMealsLoad(), testMeals, nil)

	if _, err := s.selectMeal(99); !errors.Is(err, ErrUnknownMeal) {
		t.Fatalf("err = %v, want ErrUnknownMeal", err)
	}
	if got := s.Snapshot().Step; got != StepMealSelection {
		t.Errorf("step = %q, want meal_selection", got)
	}
}

func TestSelectMealCarriesChoiceForward(t *testing.T) {
	s := newSession()
	s.Scan("P1")
	s.applyMeals(s.beginMealsLoad(), testMeals, nil)

	if _, err := s.selectMeal(2); err != nil {
		t.Fatalf("selectMeal: %v", err)
	}

	v := s.Snapshot()
	if v.Step != StepMenuSelection {
		t.Errorf("step = %q, want menu_selection", v.Step)
	}
	if v.SelectedMeal == nil || v.SelectedMeal.Name != "Lunch Set" {
		t.Errorf("selected meal = %+v", v.SelectedMeal)
	}
	if v.Menus == nil || v.Menus.State != catalog.StateLoading {
		t.Errorf("menus load = %+v, want loading", v.Menus)
	}
	if v.Menus.MealID != 2 {
		t.Errorf("menus scope = %d, want 2", v.Menus.MealID)
	}
}

func TestTabSwitchIsInternalTransition(t *testing.T) {
	s := readySession(t)

	if err := s.SetTab(1); err != nil {
		t.Fatalf("SetTab: %v", err)
	}
	v := s.Snapshot()
	if v.Step != StepMenuSelection {
		t.Errorf("step changed to %q on tab switch", v.Step)
	}
	if v.ActiveTab != 1 {
		t.Errorf("active tab = %d, want 1", v.ActiveTab)
	}
	if v.ActiveMenu == nil || v.ActiveMenu.ID != 11 {
		t.Errorf("active menu = %+v, want Veggie", v.ActiveMenu)
	}

	if err := s.SetTab(-1); !errors.Is(err, ErrInvalidTab) {
		t.Errorf("SetTab(-1) err = %v, want ErrInvalidTab", err)
	}
}

func TestTabResetsWhenMenuListShrinks(t *testing.T) {
	s := readySession(t)
	if err := s.SetTab(1); err != nil {
		t.Fatalf("SetTab: %v", err)
	}

	// A re-load replaces the menu set with a single entry; the stored index
	// no longer exists and must read as 0.
	mealID, gen, err := s.beginMenusLoad()
	if err != nil {
		t.Fatalf("beginMenusLoad: %v", err)
	}
	shrunk := []catalog.Menu{{ID: 12, Name: "Late", Body: []string{"Soup"}}}
	s.applyMenus(mealID, gen, shrunk, nil)

	v := s.Snapshot()
	if v.ActiveTab != 0 {
		t.Errorf("active tab = %d, want 0 after shrink", v.ActiveTab)
	}
	if v.ActiveMenu == nil || v.ActiveMenu.ID != 12 {
		t.Errorf("active menu = %+v, want the remaining menu", v.ActiveMenu)
	}
}

func TestStaleMenuResponseDropped(t *testing.T) {
	s := newSession()
	s.Scan("P1")
	s.applyMeals(s.beginMealsLoad(), testMeals, nil)

	genForMeal1, err := s.selectMeal(1)
	if err != nil {
		t.Fatalf("selectMeal(1): %v", err)
	}

	// User goes back and picks a different meal while the first load is
	// still in flight.
	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	genForMeal2, err := s.selectMeal(2)
	if err != nil {
		t.Fatalf("selectMeal(2): %v", err)
	}

	// The slow response for meal 1 arrives last. Its scope no longer
	// matches and it must not be applied.
	s.applyMenus(1, genForMeal1, []catalog.Menu{{ID: 90, Name: "Stale"}}, nil)

	v := s.Snapshot()
	if v.Menus.State != catalog.StateLoading {
		t.Fatalf("stale response applied: %+v", v.Menus)
	}

	// The relevant response lands normally.
	s.applyMenus(2, genForMeal2, testMenus, nil)
	if v := s.Snapshot(); v.Menus.State != catalog.StateReady || v.Menus.MealID != 2 {
		t.Errorf("menus = %+v, want ready for meal 2", v.Menus)
	}
}

func TestStaleResponseAfterNavigationIgnored(t *testing.T) {
	s := newSession()
	s.Scan("P1")
	s.applyMeals(s.beginMealsLoad(), testMeals, nil)
	gen, _ := s.selectMeal(1)

	// Navigate away before the load settles.
	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	s.applyMenus(1, gen, testMenus, nil)

	if v := s.Snapshot(); v.Step != StepMealSelection {
		t.Errorf("step = %q", v.Step)
	}
	// Re-selecting the meal starts a fresh load rather than trusting the
	// result that arrived while away.
	if _, err := s.selectMeal(1); err != nil {
		t.Fatalf("selectMeal: %v", err)
	}
	if v := s.Snapshot(); v.Menus.State != catalog.StateLoading {
		t.Errorf("menus = %+v, want loading", v.Menus)
	}
}

func TestSupersededMealsLoadDropped(t *testing.T) {
	s := newSession()
	s.Scan("P1")

	oldGen := s.beginMealsLoad()
	newGen := s.beginMealsLoad()

	s.applyMeals(newGen, testMeals, nil)
	s.applyMeals(oldGen, nil, errors.New("timeout"))

	v := s.Snapshot()
	if v.Meals.State != catalog.StateReady || len(v.Meals.Items) != 3 {
		t.Errorf("older load overwrote newer result: %+v", v.Meals)
	}
}

func TestMenuLoadFailureKeepsChosenMeal(t *testing.T) {
	s := newSession()
	s.Scan("P1")
	s.applyMeals(s.beginMealsLoad(), testMeals, nil)
	gen, _ := s.selectMeal(2)

	s.applyMenus(2, gen, nil, errors.New("network down"))

	v := s.Snapshot()
	if v.Menus.State != catalog.StateFailed || v.Menus.Error == "" {
		t.Fatalf("menus = %+v, want failed with message", v.Menus)
	}
	if v.SelectedMeal == nil || v.SelectedMeal.ID != 2 {
		t.Errorf("selected meal corrupted by failed load: %+v", v.SelectedMeal)
	}
	if _, err := s.Confirm(context.Background(), nil); !errors.Is(err, ErrNoMenu) {
		t.Errorf("Confirm err = %v, want ErrNoMenu", err)
	}
}

func TestConfirmRequiresMealAndMenu(t *testing.T) {
	s := newSession()
	if _, err := s.Confirm(context.Background(), nil); !errors.Is(err, ErrWrongStep) {
		t.Errorf("identifying confirm err = %v, want ErrWrongStep", err)
	}

	s.Scan("P1")
	if _, err := s.Confirm(context.Background(), nil); !errors.Is(err, ErrWrongStep) {
		t.Errorf("meal-selection confirm err = %v, want ErrWrongStep", err)
	}

	s.applyMeals(s.beginMealsLoad(), testMeals, nil)
	gen, _ := s.selectMeal(2)

	// Empty menu list: confirmation unavailable.
	s.applyMenus(2, gen, []catalog.Menu{}, nil)
	if _, err := s.Confirm(context.Background(), nil); !errors.Is(err, ErrNoMenu) {
		t.Errorf("empty-menu confirm err = %v, want ErrNoMenu", err)
	}
}

func TestConfirmBuildsRecapOnce(t *testing.T) {
	s := readySession(t)

	first, err := s.Confirm(context.Background(), nil)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(first.Reference) != 6 {
		t.Errorf("reference %q, want 6 characters", first.Reference)
	}
	if first.Meal.Name != "Lunch Set" || first.Menu.Name != "Classic" {
		t.Errorf("recap = %+v", first)
	}
	if len(first.Menu.Body) != 3 {
		t.Errorf("course list length = %d, want 3", len(first.Menu.Body))
	}

	// Re-reading and re-confirming never regenerate the reference.
	again, err := s.Recap()
	if err != nil {
		t.Fatalf("Recap: %v", err)
	}
	if again.Reference != first.Reference {
		t.Errorf("reference regenerated on read: %q vs %q", again.Reference, first.Reference)
	}
	confirmed, err := s.Confirm(context.Background(), nil)
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	if confirmed.Reference != first.Reference {
		t.Errorf("reference regenerated on confirm: %q vs %q", confirmed.Reference, first.Reference)
	}
}

func TestConfirmPlacementFailureKeepsSession(t *testing.T) {
	s := readySession(t)

	placeErr := errors.New("order backend unavailable")
	_, err := s.Confirm(context.Background(), PlacerFunc(func(context.Context, string, int64, int64) error {
		return placeErr
	}))
	if !errors.Is(err, placeErr) {
		t.Fatalf("err = %v, want placement error", err)
	}

	v := s.Snapshot()
	if v.Step != StepMenuSelection {
		t.Errorf("step = %q, want menu_selection after failed placement", v.Step)
	}
	if v.SelectedMeal == nil || v.SelectedMeal.ID != 2 {
		t.Errorf("selection lost: %+v", v.SelectedMeal)
	}
	if v.Recap != nil {
		t.Error("recap built despite failed placement")
	}
}

func TestConfirmPassesSelectionToPlacer(t *testing.T) {
	s := readySession(t)
	ref, stayGen, err := s.beginStayLoad()
	if err != nil {
		t.Fatalf("beginStayLoad: %v", err)
	}
	s.applyStay(ref, stayGen, catalog.Stay{Name: "Jean Dupont"}, nil)

	var gotRef string
	var gotMeal, gotMenu int64
	recap, err := s.Confirm(context.Background(), PlacerFunc(func(_ context.Context, ref string, mealID, menuID int64) error {
		gotRef, gotMeal, gotMenu = ref, mealID, menuID
		return nil
	}))
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if gotRef != "P12345" || gotMeal != 2 || gotMenu != 10 {
		t.Errorf("placer got (%q, %d, %d)", gotRef, gotMeal, gotMenu)
	}
	if recap.Patient != "Jean Dupont" {
		t.Errorf("recap patient = %q, want stay name", recap.Patient)
	}
}

func TestBackwardNavigationKeepsLoadedData(t *testing.T) {
	s := readySession(t)

	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	v := s.Snapshot()
	if v.Step != StepMealSelection {
		t.Fatalf("step = %q", v.Step)
	}
	if v.Meals == nil || v.Meals.State != catalog.StateReady {
		t.Errorf("meal catalog dropped on back navigation: %+v", v.Meals)
	}

	if err := s.Back(); err != nil {
		t.Fatalf("Back to identifying: %v", err)
	}
	if got := s.Snapshot().Step; got != StepIdentifying {
		t.Fatalf("step = %q", got)
	}
	if err := s.Back(); !errors.Is(err, ErrAtFirstStep) {
		t.Errorf("err = %v, want ErrAtFirstStep", err)
	}
}

func TestConfirmedIsTerminal(t *testing.T) {
	s := readySession(t)
	if _, err := s.Confirm(context.Background(), nil); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if err := s.Back(); !errors.Is(err, ErrTerminal) {
		t.Errorf("Back err = %v, want ErrTerminal", err)
	}
	if err := s.SetTab(0); !errors.Is(err, ErrTerminal) {
		t.Errorf("SetTab err = %v, want ErrTerminal", err)
	}
	if err := s.Scan("P9"); !errors.Is(err, ErrTerminal) {
		t.Errorf("Scan err = %v, want ErrTerminal", err)
	}
}

func TestGenerateRefShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref := generateRef()
		if len(ref) != 6 {
			t.Fatalf("ref %q has length %d", ref, len(ref))
		}
		for _, c := range ref {
			if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')) {
				t.Fatalf("ref %q contains %q", ref, fmt.Sprintf("%c", c))
			}
		}
		seen[ref] = true
	}
	if len(seen) < 100 {
		t.Errorf("only %d distinct refs in 200 draws", len(seen))
	}
}
