package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lookatme/backend/internal/models"
)

// FriendRepository defines data access for friend edges and their projections.
type FriendRepository interface {
	Request(ctx context.Context, userID, friendID int64, at time.Time) (string, error)
	Accept(ctx context.Context, fromUserID, toUserID int64) error
	Summary(ctx context.Context, userID int64) (models.FriendSummary, error)
	ListFriends(ctx context.Context, userID int64, filter FriendFilter) ([]models.Friend, error)
	SearchUsers(ctx context.Context, userID int64, term string, limit int) ([]models.UserSearchResult, error)
	Incoming(ctx context.Context, userID int64, limit int) ([]models.IncomingRequest, error)
	Outgoing(ctx context.Context, userID int64, limit int) ([]models.OutgoingRequest, error)
	PendingCount(ctx context.Context, userID int64) (models.PendingCount, error)
}

// FriendFilter narrows a friend listing.
type FriendFilter struct {
	// Term filters by case-insensitive substring of the friend's name.
	Term       string
	OnlineOnly bool
	Limit      int
}

// counterpart resolves the other side of an edge touching $1.
const counterpart = `CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END`

// SQLFriendRepository provides SQL-backed persistence for friend edges.
type SQLFriendRepository struct {
	db *sqlx.DB
}

// NewSQLFriendRepository constructs a friend repository on top of the shared connection pool.
func NewSQLFriendRepository(db *sqlx.DB) *SQLFriendRepository {
	return &SQLFriendRepository{db: db}
}

// Request records that userID wants to befriend friendID and returns the resulting
// edge status. A pending edge in the opposite direction is accepted instead of
// creating a second edge; an existing edge for the same ordered pair is left as is.
// ErrNotFound is returned when either user does not exist.
//
// On PostgreSQL the check and the insert run in a serializable transaction so two
// opposite requests racing each other cannot both insert; the loser is retried and
// then sees the winner's edge.
func (r *SQLFriendRepository) Request(ctx context.Context, userID, friendID int64, at time.Time) (string, error) {
	var opts *sql.TxOptions
	if r.db.DriverName() == "pgx" {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}

	backoff := requestRetryBackoff
	for attempt := 1; ; attempt++ {
		status, err := r.request(ctx, opts, userID, friendID, at)
		if err == nil || !isSerializationFailure(err) || attempt == requestRetryAttempts {
			return status, err
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

const (
	requestRetryAttempts = 5
	requestRetryBackoff  = 10 * time.Millisecond
)

func (r *SQLFriendRepository) request(ctx context.Context, opts *sql.TxOptions, userID, friendID int64, at time.Time) (string, error) {
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("begin friend request: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var reverse string
	err = tx.GetContext(ctx, &reverse,
		`SELECT status FROM friends WHERE user_id = $1 AND friend_id = $2`, friendID, userID)
	switch {
	case err == nil:
		if reverse == models.FriendPending {
			if _, err := tx.ExecContext(ctx,
				`UPDATE friends SET status = 'accepted' WHERE user_id = $1 AND friend_id = $2 AND status = 'pending'`,
				friendID, userID); err != nil {
				return "", fmt.Errorf("accept reverse friend request: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit friend request: %w", err)
		}
		return models.FriendAccepted, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("select reverse friend edge: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO friends (user_id, friend_id, status, created_at)
        VALUES ($1, $2, 'pending', $3)
        ON CONFLICT (user_id, friend_id) DO NOTHING
    `, userID, friendID, at.UTC()); err != nil {
		if mapped := constraintError(err); mapped != nil {
			return "", mapped
		}
		return "", fmt.Errorf("insert friend request: %w", err)
	}

	var status string
	if err := tx.GetContext(ctx, &status,
		`SELECT status FROM friends WHERE user_id = $1 AND friend_id = $2`, userID, friendID); err != nil {
		return "", fmt.Errorf("select friend edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit friend request: %w", err)
	}
	return status, nil
}

// Accept moves the pending edge fromUserID -> toUserID to accepted. ErrNotFound is
// returned when no such pending edge exists.
func (r *SQLFriendRepository) Accept(ctx context.Context, fromUserID, toUserID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE friends SET status = 'accepted' WHERE user_id = $1 AND friend_id = $2 AND status = 'pending'`,
		fromUserID, toUserID)
	if err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}
	return requireAffected(res)
}

// Summary counts accepted edges touching userID and how many distinct counterparts are online.
func (r *SQLFriendRepository) Summary(ctx context.Context, userID int64) (models.FriendSummary, error) {
	var summary models.FriendSummary
	err := r.db.GetContext(ctx, &summary, `
        SELECT
            (SELECT COUNT(*) FROM friends f
             WHERE f.status = 'accepted' AND (f.user_id = $1 OR f.friend_id = $1)) AS total,
            (SELECT COUNT(DISTINCT u.id) FROM friends f
             JOIN users u ON u.id = `+counterpart+`
             WHERE f.status = 'accepted' AND (f.user_id = $1 OR f.friend_id = $1)
               AND u.id <> $1 AND u.status = 'online') AS online
    `, userID)
	if err != nil {
		return models.FriendSummary{}, fmt.Errorf("select friend summary: %w", err)
	}
	return summary, nil
}

// ListFriends returns users connected to userID by an accepted edge, ordered by name.
func (r *SQLFriendRepository) ListFriends(ctx context.Context, userID int64, filter FriendFilter) ([]models.Friend, error) {
	var (
		query strings.Builder
		args  = []any{userID}
	)
	query.WriteString(`
        SELECT DISTINCT u.id, u.name, u.avatar, u.status, u.id AS relation_id
        FROM friends f
        JOIN users u ON u.id = ` + counterpart + `
        WHERE f.status = 'accepted' AND (f.user_id = $1 OR f.friend_id = $1) AND u.id <> $1`)

	if term := strings.TrimSpace(filter.Term); term != "" {
		args = append(args, likePattern(term))
		fmt.Fprintf(&query, ` AND LOWER(u.name) LIKE $%d ESCAPE '\'`, len(args))
	}
	if filter.OnlineOnly {
		query.WriteString(` AND u.status = 'online'`)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	fmt.Fprintf(&query, ` ORDER BY u.name ASC, u.id ASC LIMIT $%d`, len(args))

	friends := []models.Friend{}
	if err := r.db.SelectContext(ctx, &friends, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// SearchUsers finds users other than userID by name and reports the relation status
// to each. An accepted edge in either direction wins over a pending one.
func (r *SQLFriendRepository) SearchUsers(ctx context.Context, userID int64, term string, limit int) ([]models.UserSearchResult, error) {
	results := []models.UserSearchResult{}
	err := r.db.SelectContext(ctx, &results, `
        SELECT u.id, u.name, u.avatar, u.status,
            COALESCE((
                SELECT f.status FROM friends f
                WHERE (f.user_id = $1 AND f.friend_id = u.id) OR (f.user_id = u.id AND f.friend_id = $1)
                ORDER BY CASE WHEN f.status = 'accepted' THEN 0 ELSE 1 END
                LIMIT 1
            ), 'none') AS friend_status
        FROM users u
        WHERE u.id <> $1 AND LOWER(u.name) LIKE $2 ESCAPE '\'
        ORDER BY u.name ASC, u.id ASC
        LIMIT $3
    `, userID, likePattern(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return results, nil
}

// Incoming lists pending edges targeting userID, newest first.
func (r *SQLFriendRepository) Incoming(ctx context.Context, userID int64, limit int) ([]models.IncomingRequest, error) {
	requests := []models.IncomingRequest{}
	err := r.db.SelectContext(ctx, &requests, `
        SELECT f.id, f.user_id AS from_user_id, u.name, u.avatar, u.status, f.created_at
        FROM friends f
        JOIN users u ON u.id = f.user_id
        WHERE f.friend_id = $1 AND f.status = 'pending'
        ORDER BY f.created_at DESC, f.id DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list incoming friend requests: %w", err)
	}
	return requests, nil
}

// Outgoing lists pending edges requested by userID, newest first.
func (r *SQLFriendRepository) Outgoing(ctx context.Context, userID int64, limit int) ([]models.OutgoingRequest, error) {
	requests := []models.OutgoingRequest{}
	err := r.db.SelectContext(ctx, &requests, `
        SELECT f.id, f.friend_id AS to_user_id, u.name, u.avatar, u.status, f.created_at
        FROM friends f
        JOIN users u ON u.id = f.friend_id
        WHERE f.user_id = $1 AND f.status = 'pending'
        ORDER BY f.created_at DESC, f.id DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outgoing friend requests: %w", err)
	}
	return requests, nil
}

// PendingCount counts pending edges in both directions for userID.
func (r *SQLFriendRepository) PendingCount(ctx context.Context, userID int64) (models.PendingCount, error) {
	var count models.PendingCount
	err := r.db.GetContext(ctx, &count, `
        SELECT
            (SELECT COUNT(*) FROM friends WHERE friend_id = $1 AND status = 'pending') AS incoming,
            (SELECT COUNT(*) FROM friends WHERE user_id = $1 AND status = 'pending') AS outgoing
    `, userID)
	if err != nil {
		return models.PendingCount{}, fmt.Errorf("count pending friend requests: %w", err)
	}
	return count, nil
}

var _ FriendRepository = (*SQLFriendRepository)(nil)
