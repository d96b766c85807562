package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/caretray/api/internal/database"
	"github.com/caretray/api/internal/enum"
	"github.com/jackc/pgx/v5"
)

// Errors returned by the order service.
var (
	ErrStayNotFound  = errors.New("no active stay for patient")
	ErrMealNotFound  = errors.New("meal not found")
	ErrMenuNotFound  = errors.New("menu not found")
	ErrMenuMismatch  = errors.New("menu does not belong to meal")
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status code")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to place orders and update them.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetStayByPatientRef(ctx context.Context, patientRef string) (database.Stay, error)
	GetStay(ctx context.Context, id int64) (database.Stay, error)
	GetMeal(ctx context.Context, id int64) (database.Meal, error)
	GetMenu(ctx context.Context, id int64) (database.Menu, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// PlacedOrder is a freshly created order with the names needed downstream.
type PlacedOrder struct {
	Order      database.Order
	PatientRef string
	MealName   string
	MenuName   string
}

// StatusChange is the result of a status update, with the patient the
// order belongs to so callers can notify the right room.
type StatusChange struct {
	Order      database.Order
	PatientRef string
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// PlaceOrder validates the selection against the catalog and creates the
// order atomically. The order starts in the pending status.
func (s *OrderService) PlaceOrder(ctx context.Context, patientRef string, mealID, menuID int64) (*PlacedOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	stay, err := store.GetStayByPatientRef(ctx, patientRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStayNotFound
		}
		return nil, fmt.Errorf("get stay: %w", err)
	}

	meal, err := store.GetMeal(ctx, mealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMealNotFound
		}
		return nil, fmt.Errorf("get meal: %w", err)
	}

	menu, err := store.GetMenu(ctx, menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuNotFound
		}
		return nil, fmt.Errorf("get menu: %w", err)
	}
	if menu.MealID != meal.ID {
		return nil, ErrMenuMismatch
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		StayID: stay.ID,
		MealID: meal.ID,
		MenuID: menu.ID,
		Status: int32(enum.OrderStatusPending),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PlacedOrder{
		Order:      order,
		PatientRef: stay.PatientRef,
		MealName:   meal.Name,
		MenuName:   menu.Name,
	}, nil
}

// UpdateStatus sets the status on an existing order.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status int) (*StatusChange, error) {
	if !enum.KnownOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     orderID,
		Status: int32(status),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	stay, err := store.GetStay(ctx, order.StayID)
	if err != nil {
		return nil, fmt.Errorf("get stay: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &StatusChange{Order: order, PatientRef: stay.PatientRef}, nil
}
