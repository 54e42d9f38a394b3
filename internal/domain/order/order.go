// Package order implements the cart-as-order model: item mutation, stock
// validation, the status state machine, and final-price computation.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/merako/storefront/internal/domain/achievement"
	"github.com/merako/storefront/internal/domain/catalog"
)

// Sentinel errors for order operations.
var (
	ErrNotFound      = errors.New("order not found")
	ErrNoActiveOrder = errors.New("no active order")
	ErrItemNotFound  = errors.New("item not found in order")
	ErrNotOwner      = errors.New("order belongs to another user")
	// ErrNotDeletable is returned when deleting an order that is not in
	// PROCESSING or CANCELLED.
	ErrNotDeletable = errors.New("only processing or cancelled orders can be deleted")
)

// InvalidQuantityError indicates a non-positive requested quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// InsufficientStockError indicates the requested quantity exceeds the
// available stock.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d available", e.ProductName, e.Available)
}

// InvalidTransitionError indicates an illegal status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Status is the order lifecycle state.
type Status string

// Order statuses. DELIVERED and CANCELLED are terminal.
const (
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusSent, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next: PROCESSING -> SENT|CANCELLED, SENT -> DELIVERED|CANCELLED.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusProcessing:
		return next == StatusSent || next == StatusCancelled
	case StatusSent:
		return next == StatusDelivered || next == StatusCancelled
	}
	return false
}

// Order is a user's order. The PROCESSING order doubles as the cart.
type Order struct {
	ID         int64
	UserID     int64
	Status     Status
	Items      []Item
	FinalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Item is a single line in an order. Price is the line total: unit price
// times quantity, snapshotted at the last mutation.
type Item struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// item returns a pointer to the line for productID, or nil.
func (o *Order) item(productID int64) *Item {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

// removeItem drops the line for productID, preserving item order.
func (o *Order) removeItem(productID int64) {
	items := o.Items[:0]
	for _, it := range o.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	o.Items = items
}

// Repository defines persistence operations for orders and their items.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// Update saves the order row and replaces its items.
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Order, error)
	// FindActiveByUser returns the user's PROCESSING order, or
	// ErrNoActiveOrder.
	FindActiveByUser(ctx context.Context, userID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}

// ProductStore is the slice of the catalog the order engine needs: product
// lookup and atomic stock adjustment. Satisfied by catalog.ProductRepository.
type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) error
}

// BonusSource is the slice of the achievement engine the order engine needs
// for pricing, bonus consumption, and post-delivery evaluation.
type BonusSource interface {
	ActiveBonuses(ctx context.Context, userID int64) ([]achievement.UserAchievement, error)
	ConsumeFastSignupBonus(ctx context.Context, userID int64) (bool, error)
	ConsumeOrderCountBonuses(ctx context.Context, userID int64) error
	EvaluateDeliveredOrders(ctx context.Context, userID int64) error
}

// TxRunner executes fn inside a single storage transaction: either every
// write in fn is persisted or none are.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
