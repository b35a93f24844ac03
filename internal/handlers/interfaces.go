package handlers

import (
	"context"
	"io"

	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/posts"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) (int64, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// SessionManager issues, verifies and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID int64) (models.SessionTokens, error)
	Verify(accessToken string) (int64, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string) (int64, error)
}

// FriendService captures operations required by the friend handlers.
type FriendService interface {
	SendRequest(ctx context.Context, userID, targetID int64) (string, error)
	AcceptRequest(ctx context.Context, userID, fromUserID int64) error
	Summary(ctx context.Context, userID int64) (models.FriendSummary, error)
	ListFriends(ctx context.Context, userID int64, term string) ([]models.Friend, error)
	OnlineFriends(ctx context.Context, userID int64) ([]models.Friend, error)
	Search(ctx context.Context, userID int64, term string) ([]models.UserSearchResult, error)
	Pending(ctx context.Context, userID int64) (models.PendingRequests, error)
	PendingCount(ctx context.Context, userID int64) (models.PendingCount, error)
}

// PostService captures operations required by the post handlers.
type PostService interface {
	Create(ctx context.Context, authorID int64, in posts.Input) (models.Post, error)
	ListForUserAndFriends(ctx context.Context, userID int64, page posts.Page) ([]models.Post, error)
}

// AdminService captures the moderation operations behind the admin API.
type AdminService interface {
	Statistics(ctx context.Context) (models.Statistics, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ChangeRole(ctx context.Context, actorID, userID int64, role string) error
	DeleteUser(ctx context.Context, actorID, userID int64) error
	ListPosts(ctx context.Context) ([]models.AdminPost, error)
	DeletePost(ctx context.Context, postID int64) error
}

// MediaStorage persists uploaded media and returns a public URL for it.
type MediaStorage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}
