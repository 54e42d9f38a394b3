package user

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordPolicyError indicates a new password that violates the policy.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string {
	return "password rejected: " + e.Reason
}

// Service manages accounts and resolves credentials into a Principal.
type Service struct {
	users  Repository
	admins AdminRepository
}

// NewService creates a user Service with the required repositories.
func NewService(users Repository, admins AdminRepository) *Service {
	return &Service{users: users, admins: admins}
}

// Register hashes the password and persists a new customer account.
func (s *Service) Register(ctx context.Context, u *User, password string) error {
	if err := checkPasswordPolicy(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	u.PasswordHash = string(hash)

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return ErrEmailTaken
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

// Authenticate resolves credentials into a Principal. Admin accounts are
// checked first, then customer accounts; blocked customers are rejected.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return &Principal{Role: RoleAdmin, Admin: admin}, nil
	case !errors.Is(err, ErrAdminNotFound):
		return nil, errors.Wrap(err, "lookup admin")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "lookup user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Blocked {
		return nil, ErrBlocked
	}
	return &Principal{Role: RoleUser, User: u}, nil
}

// ResolvePrincipal reloads a principal by role and ID, used when
// authenticating a token rather than credentials.
func (s *Service) ResolvePrincipal(ctx context.Context, role Role, id int64) (*Principal, error) {
	if role == RoleAdmin {
		admin, err := s.admins.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Principal{Role: RoleAdmin, Admin: admin}, nil
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Blocked {
		return nil, ErrBlocked
	}
	return &Principal{Role: RoleUser, User: u}, nil
}

// UpdateProfile applies the non-empty fields to the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, name, phone, address string) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(name); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(phone); v != "" {
		u.Phone = v
	}
	if v := strings.TrimSpace(address); v != "" {
		u.Address = v
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, errors.Wrap(err, "update user")
	}
	return u, nil
}

// ChangePassword verifies the old password and replaces it with a new one
// that satisfies the password policy.
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return errors.Wrap(err, "lookup user")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	if oldPassword == newPassword {
		return &PasswordPolicyError{Reason: "new password must differ from the old one"}
	}
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	u.PasswordHash = string(hash)

	if err := s.users.Update(ctx, u); err != nil {
		return errors.Wrap(err, "update user")
	}
	return nil
}

// ToggleBlock flips the blocked flag on a customer account.
func (s *Service) ToggleBlock(ctx context.Context, userID int64) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Blocked = !u.Blocked
	if err := s.users.Update(ctx, u); err != nil {
		return nil, errors.Wrap(err, "update user")
	}
	return u, nil
}

// ByID returns a user by ID.
func (s *Service) ByID(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// ByEmail returns a user by email.
func (s *Service) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, email)
}

// List returns all customer accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// checkPasswordPolicy enforces the account password rules: at least six
// characters with at least one letter and one digit.
func checkPasswordPolicy(password string) error {
	if len(password) < 6 {
		return &PasswordPolicyError{Reason: "must be at least 6 characters"}
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &PasswordPolicyError{Reason: "must contain at least one letter and one digit"}
	}
	return nil
}
