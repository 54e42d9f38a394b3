// Package api exposes the storefront over HTTP: public catalog browsing,
// authenticated cart and order flows, reviews, achievements, and the admin
// surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/merako/storefront/internal/auth"
	"github.com/merako/storefront/internal/domain/achievement"
	"github.com/merako/storefront/internal/domain/catalog"
	"github.com/merako/storefront/internal/domain/order"
	"github.com/merako/storefront/internal/domain/review"
	"github.com/merako/storefront/internal/domain/user"
)

// Server holds the handler dependencies and assembles the router.
type Server struct {
	users        *user.Service
	catalog      *catalog.Service
	orders       *order.Service
	reviews      *review.Service
	achievements *achievement.Engine
	tokens       *auth.Tokens
	validate     *validator.Validate
}

// NewServer creates the API server over the domain services.
func NewServer(
	users *user.Service,
	cat *catalog.Service,
	orders *order.Service,
	reviews *review.Service,
	achievements *achievement.Engine,
	tokens *auth.Tokens,
) *Server {
	return &Server{
		users:        users,
		catalog:      cat,
		orders:       orders,
		reviews:      reviews,
		achievements: achievements,
		tokens:       tokens,
		validate:     validator.New(),
	}
}

// Routes builds the full route tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		// Public surface.
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/products/{id}/reviews", s.handleProductReviews)
		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{id}/products", s.handleProductsByCategory)
		r.Get("/achievements", s.handleListAchievements)

		// Customer surface.
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate, requireUser)

			r.Post("/auth/password", s.handleChangePassword)

			r.Get("/me", s.handleProfile)
			r.Put("/me", s.handleUpdateProfile)
			r.Get("/me/achievements", s.handleMyAchievements)
			r.Get("/me/reviews", s.handleMyReviews)

			r.Get("/cart", s.handleCart)
			r.Post("/cart/items", s.handleAddItem)
			r.Put("/cart/items/{productID}", s.handleSetItemQuantity)
			r.Post("/cart/items/{productID}/decrease", s.handleDecreaseItem)
			r.Delete("/cart/items/{productID}", s.handleRemoveItem)
			r.Post("/cart/send", s.handleSendOrder)

			r.Get("/orders", s.handleMyOrders)
			r.Get("/orders/{id}", s.handleGetOrder)
			r.Post("/orders/{id}/cancel", s.handleCancelOrder)
			r.Delete("/orders/{id}", s.handleDeleteOrder)

			r.Post("/products/{id}/reviews", s.handleAddReview)
			r.Delete("/products/{id}/reviews", s.handleDeleteReview)
		})

		// Admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authenticate, requireAdmin)

			r.Post("/products", s.handleCreateProduct)
			r.Put("/products/{id}", s.handleUpdateProduct)
			r.Delete("/products/{id}", s.handleDeleteProduct)

			r.Post("/categories", s.handleCreateCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)

			r.Get("/orders", s.handleAllOrders)
			r.Put("/orders/{id}/status", s.handleUpdateOrderStatus)
			r.Delete("/orders/{id}", s.handleAdminDeleteOrder)

			r.Get("/users", s.handleListUsers)
			r.Post("/users/{id}/block", s.handleToggleBlock)
		})
	})

	return r
}
