// Package user holds customer and admin accounts and the authenticated
// principal model.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for account operations.
var (
	ErrNotFound           = errors.New("user not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBlocked            = errors.New("user is blocked")
)

// User is a customer account. CreatedAt feeds the fast-signup achievement.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Address      string
	Blocked      bool
	CreatedAt    time.Time
}

// Admin is a staff account with full administrative capability.
type Admin struct {
	ID           int64
	Email        string
	PasswordHash string
}

// Role distinguishes the two principal kinds.
type Role string

// Principal roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the tagged variant resolved once at authentication: exactly
// one of User or Admin is set, according to Role.
type Principal struct {
	Role  Role
	User  *User
	Admin *Admin
}

// IsAdmin reports whether the principal carries admin capability.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ID returns the underlying account ID.
func (p Principal) ID() int64 {
	if p.Role == RoleAdmin {
		return p.Admin.ID
	}
	return p.User.ID
}

// Repository defines persistence operations for customer accounts.
type Repository interface {
	// Create persists a new user; a duplicate email fails with ErrEmailTaken.
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// AdminRepository defines lookup operations for admin accounts.
type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	GetByID(ctx context.Context, id int64) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
}
