package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ── Meals ──

const listMeals = `
SELECT id, name, description, duration, servings, sort_order
FROM meals
ORDER BY sort_order, id
`

func (q *Queries) ListMeals(ctx context.Context) ([]Meal, error) {
	rows, err := q.db.Query(ctx, listMeals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		var m Meal
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Duration, &m.Servings, &m.SortOrder); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

const getMeal = `
SELECT id, name, description, duration, servings, sort_order
FROM meals
WHERE id = $1
`

func (q *Queries) GetMeal(ctx context.Context, id int64) (Meal, error) {
	var m Meal
	err := q.db.QueryRow(ctx, getMeal, id).
		Scan(&m.ID, &m.Name, &m.Description, &m.Duration, &m.Servings, &m.SortOrder)
	return m, err
}

type CreateMealParams struct {
	Name        string
	Description pgtype.Text
	Duration    pgtype.Text
	Servings    pgtype.Int4
	SortOrder   int32
}

const createMeal = `
INSERT INTO meals (name, description, duration, servings, sort_order)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, description, duration, servings, sort_order
`

func (q *Queries) CreateMeal(ctx context.Context, arg CreateMealParams) (Meal, error) {
	var m Meal
	err := q.db.QueryRow(ctx, createMeal,
		arg.Name, arg.Description, arg.Duration, arg.Servings, arg.SortOrder).
		Scan(&m.ID, &m.Name, &m.Description, &m.Duration, &m.Servings, &m.SortOrder)
	return m, err
}

// ── Menus ──

const listMenusByMeal = `
SELECT id, meal_id, name, body
FROM menus
WHERE meal_id = $1
ORDER BY id
`

func (q *Queries) ListMenusByMeal(ctx context.Context, mealID int64) ([]Menu, error) {
	rows, err := q.db.Query(ctx, listMenusByMeal, mealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		var m Menu
		if err := rows.Scan(&m.ID, &m.MealID, &m.Name, &m.Body); err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

const getMenu = `
SELECT id, meal_id, name, body
FROM menus
WHERE id = $1
`

func (q *Queries) GetMenu(ctx context.Context, id int64) (Menu, error) {
	var m Menu
	err := q.db.QueryRow(ctx, getMenu, id).Scan(&m.ID, &m.MealID, &m.Name, &m.Body)
	return m, err
}

type CreateMenuParams struct {
	MealID int64
	Name   string
	Body   []string
}

const createMenu = `
INSERT INTO menus (meal_id, name, body)
VALUES ($1, $2, $3)
RETURNING id, meal_id, name, body
`

func (q *Queries) CreateMenu(ctx context.Context, arg CreateMenuParams) (Menu, error) {
	var m Menu
	err := q.db.QueryRow(ctx, createMenu, arg.MealID, arg.Name, arg.Body).
		Scan(&m.ID, &m.MealID, &m.Name, &m.Body)
	return m, err
}

// ── Stays ──

const getStayByPatientRef = `
SELECT id, patient_ref, patient_name, created_at
FROM stays
WHERE patient_ref = $1
`

func (q *Queries) GetStayByPatientRef(ctx context.Context, patientRef string) (Stay, error) {
	var s Stay
	err := q.db.QueryRow(ctx, getStayByPatientRef, patientRef).
		Scan(&s.ID, &s.PatientRef, &s.PatientName, &s.CreatedAt)
	return s, err
}

const getStay = `
SELECT id, patient_ref, patient_name, created_at
FROM stays
WHERE id = $1
`

func (q *Queries) GetStay(ctx context.Context, id int64) (Stay, error) {
	var s Stay
	err := q.db.QueryRow(ctx, getStay, id).
		Scan(&s.ID, &s.PatientRef, &s.PatientName, &s.CreatedAt)
	return s, err
}

type CreateStayParams struct {
	PatientRef  string
	PatientName string
}

const createStay = `
INSERT INTO stays (patient_ref, patient_name)
VALUES ($1, $2)
RETURNING id, patient_ref, patient_name, created_at
`

func (q *Queries) CreateStay(ctx context.Context, arg CreateStayParams) (Stay, error) {
	var s Stay
	err := q.db.QueryRow(ctx, createStay, arg.PatientRef, arg.PatientName).
		Scan(&s.ID, &s.PatientRef, &s.PatientName, &s.CreatedAt)
	return s, err
}

// ── Orders ──

type CreateOrderParams struct {
	StayID int64
	MealID int64
	MenuID int64
	Status int32
}

const createOrder = `
INSERT INTO orders (stay_id, meal_id, menu_id, status)
VALUES ($1, $2, $3, $4)
RETURNING id, stay_id, meal_id, menu_id, status, created_at
`

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder, arg.StayID, arg.MealID, arg.MenuID, arg.Status).
		Scan(&o.ID, &o.StayID, &o.MealID, &o.MenuID, &o.Status, &o.CreatedAt)
	return o, err
}

const getOrder = `
SELECT id, stay_id, meal_id, menu_id, status, created_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrder, id).
		Scan(&o.ID, &o.StayID, &o.MealID, &o.MenuID, &o.Status, &o.CreatedAt)
	return o, err
}

type UpdateOrderStatusParams struct {
	ID     int64
	Status int32
}

const updateOrderStatus = `
UPDATE orders
SET status = $2
WHERE id = $1
RETURNING id, stay_id, meal_id, menu_id, status, created_at
`

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status).
		Scan(&o.ID, &o.StayID, &o.MealID, &o.MenuID, &o.Status, &o.CreatedAt)
	return o, err
}

const listOrdersByStay = `
SELECT o.id, o.status, o.created_at,
       ml.id, ml.name,
       mn.id, mn.name, mn.body
FROM orders o
JOIN meals ml ON ml.id = o.meal_id
JOIN menus mn ON mn.id = o.menu_id
WHERE o.stay_id = $1
ORDER BY o.created_at DESC, o.id DESC
`

func (q *Queries) ListOrdersByStay(ctx context.Context, stayID int64) ([]OrderWithNames, error) {
	rows, err := q.db.Query(ctx, listOrdersByStay, stayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []OrderWithNames
	for rows.Next() {
		var o OrderWithNames
		if err := rows.Scan(&o.ID, &o.Status, &o.CreatedAt,
			&o.MealID, &o.MealName,
			&o.MenuID, &o.MenuName, &o.MenuBody); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ── Staff ──

type CreateStaffParams struct {
	FullName     string
	Email        string
	PasswordHash string
	Role         string
}

const createStaff = `
INSERT INTO staff (full_name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING id, full_name, email, password_hash, role, is_active, created_at
`

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	var s Staff
	err := q.db.QueryRow(ctx, createStaff, arg.FullName, arg.Email, arg.PasswordHash, arg.Role).
		Scan(&s.ID, &s.FullName, &s.Email, &s.PasswordHash, &s.Role, &s.IsActive, &s.CreatedAt)
	return s, err
}

const getStaffByEmail = `
SELECT id, full_name, email, password_hash, role, is_active, created_at
FROM staff
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	var s Staff
	err := q.db.QueryRow(ctx, getStaffByEmail, email).
		Scan(&s.ID, &s.FullName, &s.Email, &s.PasswordHash, &s.Role, &s.IsActive, &s.CreatedAt)
	return s, err
}

const getStaffByID = `
SELECT id, full_name, email, password_hash, role, is_active, created_at
FROM staff
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetStaffByID(ctx context.Context, id uuid.UUID) (Staff, error) {
	var s Staff
	err := q.db.QueryRow(ctx, getStaffByID, id).
		Scan(&s.ID, &s.FullName, &s.Email, &s.PasswordHash, &s.Role, &s.IsActive, &s.CreatedAt)
	return s, err
}
