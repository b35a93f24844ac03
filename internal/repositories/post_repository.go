package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lookatme/backend/internal/models"
)

// PostRepository defines data access for posts.
type PostRepository interface {
	Create(ctx context.Context, post models.NewPost) (models.Post, error)
	ListForUserAndFriends(ctx context.Context, userID int64, limit, offset int) ([]models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]models.AdminPost, error)
	Delete(ctx context.Context, id int64) error
}

const postColumns = `p.id, p.user_id, u.name AS user_name, u.avatar AS user_avatar, p.content,
            p.media_type, p.media_url, p.audio_duration, p.created_at`

// SQLPostRepository provides SQL-backed persistence for posts.
type SQLPostRepository struct {
	db *sqlx.DB
}

// NewSQLPostRepository constructs a post repository on top of the shared connection pool.
func NewSQLPostRepository(db *sqlx.DB) *SQLPostRepository {
	return &SQLPostRepository{db: db}
}

// Create inserts a post and returns it joined with the author's display fields.
func (r *SQLPostRepository) Create(ctx context.Context, post models.NewPost) (models.Post, error) {
	// The legacy image column mirrors the media URL for visual attachments.
	var image *string
	if post.MediaType != nil && (*post.MediaType == models.MediaImage || *post.MediaType == models.MediaGIF) {
		image = post.MediaURL
	}

	var id int64
	err := r.db.QueryRowxContext(ctx, `
        INSERT INTO posts (user_id, content, image, media_type, media_url, audio_duration, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, post.UserID, post.Content, image, post.MediaType, post.MediaURL, post.AudioDuration, post.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		if errors.Is(constraintError(err), ErrNotFound) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("insert post: %w", err)
	}

	var created models.Post
	err = r.db.GetContext(ctx, &created, `
        SELECT `+postColumns+`
        FROM posts p
        JOIN users u ON u.id = p.user_id
        WHERE p.id = $1
    `, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("select created post: %w", err)
	}

	return created, nil
}

// ListForUserAndFriends returns posts authored by userID or by anyone sharing an
// accepted edge with userID, newest first.
func (r *SQLPostRepository) ListForUserAndFriends(ctx context.Context, userID int64, limit, offset int) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.db.SelectContext(ctx, &posts, `
        SELECT `+postColumns+`
        FROM posts p
        JOIN users u ON u.id = p.user_id
        WHERE p.user_id = $1 OR p.user_id IN (
            SELECT `+counterpart+`
            FROM friends f
            WHERE f.status = 'accepted' AND (f.user_id = $1 OR f.friend_id = $1)
        )
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT $2 OFFSET $3
    `, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query post feed: %w", err)
	}
	return posts, nil
}

// ListRecent returns the newest posts with author contact details for moderation.
func (r *SQLPostRepository) ListRecent(ctx context.Context, limit int) ([]models.AdminPost, error) {
	posts := []models.AdminPost{}
	err := r.db.SelectContext(ctx, &posts, `
        SELECT p.id, p.user_id, u.name AS user_name, u.email AS user_email, p.content,
            p.media_type, p.media_url, p.created_at
        FROM posts p
        JOIN users u ON u.id = p.user_id
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	return posts, nil
}

// Delete removes a post.
func (r *SQLPostRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(res)
}

var _ PostRepository = (*SQLPostRepository)(nil)
