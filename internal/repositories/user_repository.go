package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/TrevorThebe/cdstock/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	ListIDsExcept(ctx context.Context, excludeID string) ([]string, error)
	ListAdminIDs(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateRole(ctx context.Context, id, role string) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	Delete(ctx context.Context, id string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, email, name, phone, password_hash, role, is_blocked, avatar_url, created_at, updated_at`

// Create inserts a new user row, generating an id when absent.
func (r *UserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleNormal
	}

	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (id, email, name, phone, password_hash, role, is_blocked, avatar_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.Phone, user.PasswordHash, user.Role, user.IsBlocked, user.AvatarURL).
		StructScan(&user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// List returns all users newest first.
func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	return users, err
}

// ListIDsExcept returns every user id except the supplied one.
func (r *UserRepo) ListIDsExcept(ctx context.Context, excludeID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE id <> $1 ORDER BY created_at`, excludeID)
	return ids, err
}

// ListAdminIDs returns ids of users holding the admin or super role.
func (r *UserRepo) ListAdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE role IN ('admin', 'super') ORDER BY created_at`)
	return ids, err
}

// Exists checks whether a user id is present.
func (r *UserRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, id)
	return exists, err
}

// UpdateRole changes a user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id, role string) error {
	return r.updateOne(ctx, `UPDATE users SET role=$2, updated_at=$3 WHERE id=$1`, id, role)
}

// SetBlocked flips the blocked flag. Blocked users fail login from then on.
func (r *UserRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.updateOne(ctx, `UPDATE users SET is_blocked=$2, updated_at=$3 WHERE id=$1`, id, blocked)
}

// Delete removes a user row. Notification and chat rows keep their id
// references so history stays intact.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) updateOne(ctx context.Context, query string, id string, value any) error {
	res, err := r.db.ExecContext(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
