// Package status maps raw order status codes and free-text meal names onto
// the presentation categories the kiosk UI renders. Both lookups are total:
// unmapped input degrades to a stable fallback category, never an error.
package status

import (
	"strings"

	"github.com/caretray/api/internal/enum"
)

// Category is a presentation bucket: a display label, an accent token the
// frontend maps to its palette, and an icon name.
type Category struct {
	Label  string `json:"label"`
	Accent string `json:"accent"`
	Icon   string `json:"icon"`
}

var statusCategories = map[int]Category{
	enum.OrderStatusPending:   {Label: "On its way", Accent: "blue", Icon: "clock"},
	enum.OrderStatusDelivered: {Label: "Delivered", Accent: "green", Icon: "check-circle"},
	enum.OrderStatusCancelled: {Label: "Cancelled", Accent: "red", Icon: "x-circle"},
}

var unknownStatus = Category{Label: "Unknown", Accent: "slate", Icon: "x-circle"}

// ResolveStatus maps an order status code to its category. Codes outside the
// known set resolve to the Unknown category.
func ResolveStatus(code int) Category {
	if c, ok := statusCategories[code]; ok {
		return c
	}
	return unknownStatus
}

// mealKeywordTableVersion tracks revisions of the keyword table below.
// Adding a category or a term is a data change, not a logic change.
const mealKeywordTableVersion = 2

// Keyword groups are matched in order, first match wins. Terms cover the
// French and English meal names observed in the catalog feed.
var mealKeywordTable = []struct {
	terms    []string
	category Category
}{
	{
		terms:    []string{"petit", "breakfast"},
		category: Category{Label: "Breakfast", Accent: "amber", Icon: "coffee"},
	},
	{
		terms:    []string{"déj", "dej", "lunch"},
		category: Category{Label: "Lunch", Accent: "green", Icon: "sun"},
	},
	{
		terms:    []string{"dîner", "diner", "dinner", "dinne"},
		category: Category{Label: "Dinner", Accent: "indigo", Icon: "moon"},
	},
}

var genericMeal = Category{Label: "Meal", Accent: "blue", Icon: "utensils"}

// ResolveMealCategory infers the presentation category of a meal from its
// name by case-insensitive substring matching against the keyword table.
// Names matching no group (including the empty string) resolve to the
// generic Meal category.
func ResolveMealCategory(name string) Category {
	lower := strings.ToLower(name)
	for _, group := range mealKeywordTable {
		for _, term := range group.terms {
			if strings.Contains(lower, term) {
				return group.category
			}
		}
	}
	return genericMeal
}
