package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/merako/storefront/internal/domain/user"
)

// UserRepository implements user.Repository.
type UserRepository struct {
	db *DB
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a customer account repository backed by db.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const insertUserSQL = `
INSERT INTO users (email, password_hash, name, phone, address, blocked, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.db.q(ctx).QueryRow(ctx, insertUserSQL,
		u.Email, u.PasswordHash, u.Name, u.Phone, u.Address, u.Blocked, u.CreatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return errors.Wrap(err, "insert user")
}

const updateUserSQL = `
UPDATE users
SET email = $2, password_hash = $3, name = $4, phone = $5, address = $6, blocked = $7
WHERE id = $1`

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateUserSQL,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Address, u.Blocked,
	)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return errors.Wrap(err, "update user")
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

const selectUserSQL = `
SELECT id, email, password_hash, name, phone, address, blocked, created_at
FROM users`

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.findOne(ctx, selectUserSQL+` WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, selectUserSQL+` WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*user.User, error) {
	rows, err := r.db.q(ctx).Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.db.q(ctx).Query(ctx, selectUserSQL+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query users")
	}
	return pgx.CollectRows(rows, scanUser)
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Address, &u.Blocked, &u.CreatedAt)
	return u, err
}

// AdminRepository implements user.AdminRepository.
type AdminRepository struct {
	db *DB
}

var _ user.AdminRepository = (*AdminRepository)(nil)

// NewAdminRepository creates an admin account repository backed by db.
func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(ctx context.Context, a *user.Admin) error {
	err := r.db.q(ctx).QueryRow(ctx,
		`INSERT INTO admins (email, password_hash) VALUES ($1, $2) RETURNING id`,
		a.Email, a.PasswordHash,
	).Scan(&a.ID)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return errors.Wrap(err, "insert admin")
}

func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*user.Admin, error) {
	return r.findOne(ctx, `SELECT id, email, password_hash FROM admins WHERE id = $1`, id)
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*user.Admin, error) {
	return r.findOne(ctx, `SELECT id, email, password_hash FROM admins WHERE email = $1`, email)
}

func (r *AdminRepository) findOne(ctx context.Context, query string, arg any) (*user.Admin, error) {
	rows, err := r.db.q(ctx).Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "query admin")
	}

	a, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (user.Admin, error) {
		var a user.Admin
		err := row.Scan(&a.ID, &a.Email, &a.PasswordHash)
		return a, err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrAdminNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan admin")
	}
	return &a, nil
}
