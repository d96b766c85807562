package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Meal is one entry of the meal catalog. Description, duration and servings
// are optional in the feed and nullable in the schema.
type Meal struct {
	ID          int64
	Name        string
	Description pgtype.Text
	Duration    pgtype.Text
	Servings    pgtype.Int4
	SortOrder   int32
}

// Menu is one selectable menu of a meal. Body is the ordered course list;
// index 0 is the first course.
type Menu struct {
	ID     int64
	MealID int64
	Name   string
	Body   []string
}

// Stay is a patient's admission record, looked up by the scanned identifier.
type Stay struct {
	ID          int64
	PatientRef  string
	PatientName string
	CreatedAt   time.Time
}

// Order is a placed meal order attached to a stay.
type Order struct {
	ID        int64
	StayID    int64
	MealID    int64
	MenuID    int64
	Status    int32
	CreatedAt time.Time
}

// OrderWithNames is an order joined with the meal and menu it references,
// the shape the history view renders.
type OrderWithNames struct {
	ID        int64
	Status    int32
	CreatedAt time.Time
	MealID    int64
	MealName  string
	MenuID    int64
	MenuName  string
	MenuBody  []string
}

// Staff is a back-office account (kitchen or admin).
type Staff struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}
