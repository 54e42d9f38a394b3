// Package catalog holds the product and category model and the CRUD rules
// around them.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog operations.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrProductInOrders  = errors.New("product is referenced by existing orders")
	// ErrInsufficientStock is returned by stock adjustments that would drive
	// the stock quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Image         string
	CategoryID    int64
}

// Category groups products. Deleting a category cascades to its products.
type Category struct {
	ID   int64
	Name string
}

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]Product, error)
	// AdjustStock atomically changes the stock quantity by delta.
	// A negative delta that exceeds the available stock fails with
	// ErrInsufficientStock and leaves the row untouched.
	AdjustStock(ctx context.Context, id int64, delta int) error
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]Category, error)
}

// OrderReferences reports whether any order item still references a product.
// Implemented by the order storage; keeps the catalog decoupled from the
// order package.
type OrderReferences interface {
	ProductInOrders(ctx context.Context, productID int64) (bool, error)
}
