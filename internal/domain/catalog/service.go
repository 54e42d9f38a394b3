package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// ValidationError indicates malformed catalog input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Service encapsulates catalog business rules: category name uniqueness and
// the order-reference guard on product deletion.
type Service struct {
	products   ProductRepository
	categories CategoryRepository
	orders     OrderReferences
}

// NewService creates a catalog Service with the required dependencies.
func NewService(products ProductRepository, categories CategoryRepository, orders OrderReferences) *Service {
	return &Service{
		products:   products,
		categories: categories,
		orders:     orders,
	}
}

// CreateProduct validates and persists a new product.
func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if _, err := s.categories.GetByID(ctx, p.CategoryID); err != nil {
		return err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return errors.Wrap(err, "create product")
	}
	return nil
}

// UpdateProduct applies the given fields to an existing product.
func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if _, err := s.products.GetByID(ctx, p.ID); err != nil {
		return err
	}
	if _, err := s.categories.GetByID(ctx, p.CategoryID); err != nil {
		return err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return errors.Wrap(err, "update product")
	}
	return nil
}

// DeleteProduct removes a product unless any order item still references it.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return err
	}

	referenced, err := s.orders.ProductInOrders(ctx, id)
	if err != nil {
		return errors.Wrap(err, "check order references")
	}
	if referenced {
		return ErrProductInOrders
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// Product returns a single product by ID.
func (s *Service) Product(ctx context.Context, id int64) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Products returns the full catalog.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// ProductsByCategory returns all products in the given category.
func (s *Service) ProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	return s.products.ListByCategory(ctx, categoryID)
}

// CreateCategory persists a new category, enforcing name uniqueness.
func (s *Service) CreateCategory(ctx context.Context, c *Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	exists, err := s.categories.ExistsByName(ctx, c.Name)
	if err != nil {
		return errors.Wrap(err, "check category name")
	}
	if exists {
		return ErrCategoryExists
	}

	if err := s.categories.Create(ctx, c); err != nil {
		return errors.Wrap(err, "create category")
	}
	return nil
}

// UpdateCategory renames an existing category, enforcing name uniqueness.
func (s *Service) UpdateCategory(ctx context.Context, id int64, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Name != name {
		exists, err := s.categories.ExistsByName(ctx, name)
		if err != nil {
			return nil, errors.Wrap(err, "check category name")
		}
		if exists {
			return nil, ErrCategoryExists
		}
	}

	c.Name = name
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update category")
	}
	return c, nil
}

// DeleteCategory removes a category; its products go with it.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete category")
	}
	return nil
}

// Category returns a single category by ID.
func (s *Service) Category(ctx context.Context, id int64) (*Category, error) {
	return s.categories.GetByID(ctx, id)
}

// Categories returns all categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.categories.List(ctx)
}

func validateProduct(p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if p.StockQuantity < 0 {
		return &ValidationError{Field: "stockQuantity", Reason: "must not be negative"}
	}
	return nil
}
