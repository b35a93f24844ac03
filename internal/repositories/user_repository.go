package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lookatme/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (int64, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateRole(ctx context.Context, id int64, role string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.User, error)
	Statistics(ctx context.Context, recent int) (models.Statistics, error)
}

const userColumns = `id, name, email, password, avatar, bio, status, role, created_at, updated_at`

// SQLUserRepository provides SQL-backed persistence for users.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository constructs a user repository on top of the shared connection pool.
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// Create persists a new user record and returns its generated id.
func (r *SQLUserRepository) Create(ctx context.Context, user models.User) (int64, error) {
	if user.Status == "" {
		user.Status = models.StatusOffline
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	var id int64
	err := r.db.QueryRowxContext(ctx, `
        INSERT INTO users (name, email, password, avatar, bio, status, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `, user.Name, user.Email, user.Password, user.Avatar, user.Bio, user.Status, user.Role,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC()).Scan(&id)
	if err != nil {
		if errors.Is(constraintError(err), ErrConflict) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

// FindByID fetches a user by primary key.
func (r *SQLUserRepository) FindByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}
	return user, nil
}

// FindByEmail fetches a user by their email address.
func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}
	return user, nil
}

// UpdateStatus sets a user's presence status.
func (r *SQLUserRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.updateColumn(ctx, "status", id, status)
}

// UpdateRole changes a user's role.
func (r *SQLUserRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	return r.updateColumn(ctx, "role", id, role)
}

func (r *SQLUserRepository) updateColumn(ctx context.Context, column string, id int64, value string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+column+` = $1, updated_at = $2 WHERE id = $3`,
		value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	return requireAffected(res)
}

// Delete removes a user. Friend edges, posts and sessions go with it.
func (r *SQLUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res)
}

// List returns every user, newest first.
func (r *SQLUserRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id DESC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Statistics aggregates user and post counts plus the most recently registered users.
func (r *SQLUserRepository) Statistics(ctx context.Context, recent int) (models.Statistics, error) {
	var stats models.Statistics
	err := r.db.GetContext(ctx, &stats, `
        SELECT
            (SELECT COUNT(*) FROM users) AS total_users,
            (SELECT COUNT(*) FROM posts) AS total_posts,
            (SELECT COUNT(*) FROM users WHERE status = 'online') AS online_users,
            (SELECT COUNT(*) FROM users WHERE role = 'admin') AS admin_users,
            (SELECT COUNT(*) FROM users WHERE role = 'premium') AS premium_users,
            (SELECT COUNT(*) FROM users WHERE role = 'advertiser') AS advertiser_users
    `)
	if err != nil {
		return models.Statistics{}, fmt.Errorf("select statistics: %w", err)
	}

	stats.RecentUsers = []models.User{}
	if err := r.db.SelectContext(ctx, &stats.RecentUsers,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1`, recent); err != nil {
		return models.Statistics{}, fmt.Errorf("select recent users: %w", err)
	}

	return stats, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ UserRepository = (*SQLUserRepository)(nil)
