// Package admin implements the moderation operations behind the admin API and
// the maintenance commands.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/repositories"
)

const (
	recentUsers = 5
	postsLimit  = 100
)

var (
	// ErrInvalidRole is returned for roles outside models.Roles.
	ErrInvalidRole = errors.New("invalid role")
	// ErrSelfDemotion is returned when an admin tries to drop their own admin role.
	ErrSelfDemotion = errors.New("cannot remove your own admin role")
	// ErrSelfDeletion is returned when an admin tries to delete their own account.
	ErrSelfDeletion = errors.New("cannot delete your own account")
	// ErrNotFound is returned when the target user or post does not exist.
	ErrNotFound = errors.New("not found")
)

// UserStore is the user persistence the service depends on.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.User, error)
	Statistics(ctx context.Context, recent int) (models.Statistics, error)
}

// PostStore is the post persistence the service depends on.
type PostStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.AdminPost, error)
	Delete(ctx context.Context, id int64) error
}

// Service exposes moderation operations.
type Service struct {
	users UserStore
	posts PostStore
}

// NewService wires the service to its stores.
func NewService(users UserStore, posts PostStore) *Service {
	return &Service{users: users, posts: posts}
}

func notFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Statistics returns platform totals and the most recent registrations.
func (s *Service) Statistics(ctx context.Context) (models.Statistics, error) {
	stats, err := s.users.Statistics(ctx, recentUsers)
	if err != nil {
		return models.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	return stats, nil
}

// ListUsers returns every user, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ChangeRole sets the role of userID on behalf of actorID.
func (s *Service) ChangeRole(ctx context.Context, actorID, userID int64, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return ErrInvalidRole
	}
	if actorID == userID && role != models.RoleAdmin {
		return ErrSelfDemotion
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update role: %w", err)
	}

	logging.FromContext(ctx).Info("user role changed", "actor_id", actorID, "target_id", userID, "role", role)
	return nil
}

// ChangeRoleByEmail sets the role of the user registered with email. It backs the
// change-role command, which runs without an acting admin.
func (s *Service) ChangeRoleByEmail(ctx context.Context, email, role string) (models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return models.User{}, ErrInvalidRole
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return models.User{}, fmt.Errorf("update role: %w", notFound(err))
	}

	logging.FromContext(ctx).Info("user role changed", "target_id", user.ID, "previous_role", user.Role, "role", role)
	user.Role = role
	return user, nil
}

// DeleteUser removes userID and everything they own.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return ErrSelfDeletion
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}

	logging.FromContext(ctx).Info("user deleted", "actor_id", actorID, "target_id", userID)
	return nil
}

// ListPosts returns the latest posts for moderation.
func (s *Service) ListPosts(ctx context.Context) ([]models.AdminPost, error) {
	posts, err := s.posts.ListRecent(ctx, postsLimit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// DeletePost removes a post.
func (s *Service) DeletePost(ctx context.Context, postID int64) error {
	if err := s.posts.Delete(ctx, postID); err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete post: %w", err)
	}

	logging.FromContext(ctx).Info("post deleted", "post_id", postID)
	return nil
}
