// Package friends implements the friendship state machine and the friend-facing
// projections (summary, lists, search and pending requests).
package friends

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/repositories"
)

const (
	friendsLimit = 200
	searchLimit  = 50
	pendingLimit = 100
)

var (
	// ErrSelfRequest is returned when a user tries to befriend themselves.
	ErrSelfRequest = errors.New("cannot add yourself")
	// ErrUserNotFound is returned when the request target does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrRequestNotFound is returned when there is no pending request to accept.
	ErrRequestNotFound = errors.New("friend request not found")
	// ErrRequestFailed hides store failures from callers of mutating operations.
	ErrRequestFailed = errors.New("failed to process friend request")
)

// Store is the persistence the service depends on.
type Store interface {
	Request(ctx context.Context, userID, friendID int64, at time.Time) (string, error)
	Accept(ctx context.Context, fromUserID, toUserID int64) error
	Summary(ctx context.Context, userID int64) (models.FriendSummary, error)
	ListFriends(ctx context.Context, userID int64, filter repositories.FriendFilter) ([]models.Friend, error)
	SearchUsers(ctx context.Context, userID int64, term string, limit int) ([]models.UserSearchResult, error)
	Incoming(ctx context.Context, userID int64, limit int) ([]models.IncomingRequest, error)
	Outgoing(ctx context.Context, userID int64, limit int) ([]models.OutgoingRequest, error)
	PendingCount(ctx context.Context, userID int64) (models.PendingCount, error)
}

// Service provides friend request and friendship business logic.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithNowFunc overrides the clock used to stamp new requests.
func (s *Service) WithNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SendRequest asks targetID to become a friend of userID and returns the resulting
// edge status. Repeating a request is a no-op; answering a pending request from
// targetID accepts it.
func (s *Service) SendRequest(ctx context.Context, userID, targetID int64) (string, error) {
	ctx, span := logging.StartSpan(ctx, "friends.SendRequest")
	defer span.End()

	if userID == targetID {
		return "", ErrSelfRequest
	}

	status, err := s.store.Request(ctx, userID, targetID, s.now().UTC())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrUserNotFound
		}
		span.RecordError(err)
		logging.FromContext(ctx).Error("send friend request failed",
			"user_id", userID, "target_id", targetID, "error", err)
		return "", ErrRequestFailed
	}

	logging.FromContext(ctx).Info("friend request recorded",
		"user_id", userID, "target_id", targetID, "status", status)
	return status, nil
}

// AcceptRequest accepts the pending request fromUserID sent to userID.
func (s *Service) AcceptRequest(ctx context.Context, userID, fromUserID int64) error {
	ctx, span := logging.StartSpan(ctx, "friends.AcceptRequest")
	defer span.End()

	if err := s.store.Accept(ctx, fromUserID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRequestNotFound
		}
		span.RecordError(err)
		logging.FromContext(ctx).Error("accept friend request failed",
			"user_id", userID, "from_user_id", fromUserID, "error", err)
		return ErrRequestFailed
	}

	logging.FromContext(ctx).Info("friend request accepted", "user_id", userID, "from_user_id", fromUserID)
	return nil
}

// Summary counts the user's friends and how many of them are online.
func (s *Service) Summary(ctx context.Context, userID int64) (models.FriendSummary, error) {
	ctx, span := logging.StartSpan(ctx, "friends.Summary")
	defer span.End()

	summary, err := s.store.Summary(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return models.FriendSummary{}, fmt.Errorf("friend summary: %w", err)
	}
	return summary, nil
}

// ListFriends returns accepted friends, optionally filtered by a name substring.
func (s *Service) ListFriends(ctx context.Context, userID int64, term string) ([]models.Friend, error) {
	ctx, span := logging.StartSpan(ctx, "friends.ListFriends")
	defer span.End()

	friends, err := s.store.ListFriends(ctx, userID, repositories.FriendFilter{
		Term:  strings.TrimSpace(term),
		Limit: friendsLimit,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// OnlineFriends returns accepted friends that are currently online.
func (s *Service) OnlineFriends(ctx context.Context, userID int64) ([]models.Friend, error) {
	ctx, span := logging.StartSpan(ctx, "friends.OnlineFriends")
	defer span.End()

	friends, err := s.store.ListFriends(ctx, userID, repositories.FriendFilter{
		OnlineOnly: true,
		Limit:      friendsLimit,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list online friends: %w", err)
	}
	return friends, nil
}

// Search finds other users by name. A blank term matches nobody.
func (s *Service) Search(ctx context.Context, userID int64, term string) ([]models.UserSearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.UserSearchResult{}, nil
	}

	ctx, span := logging.StartSpan(ctx, "friends.Search")
	defer span.End()

	results, err := s.store.SearchUsers(ctx, userID, term, searchLimit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search users: %w", err)
	}
	return results, nil
}

// Pending lists unanswered requests in both directions.
func (s *Service) Pending(ctx context.Context, userID int64) (models.PendingRequests, error) {
	ctx, span := logging.StartSpan(ctx, "friends.Pending")
	defer span.End()

	incoming, err := s.store.Incoming(ctx, userID, pendingLimit)
	if err != nil {
		span.RecordError(err)
		return models.PendingRequests{}, fmt.Errorf("incoming requests: %w", err)
	}
	outgoing, err := s.store.Outgoing(ctx, userID, pendingLimit)
	if err != nil {
		span.RecordError(err)
		return models.PendingRequests{}, fmt.Errorf("outgoing requests: %w", err)
	}
	return models.PendingRequests{Incoming: incoming, Outgoing: outgoing}, nil
}

// PendingCount counts unanswered requests in both directions.
func (s *Service) PendingCount(ctx context.Context, userID int64) (models.PendingCount, error) {
	ctx, span := logging.StartSpan(ctx, "friends.PendingCount")
	defer span.End()

	count, err := s.store.PendingCount(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return models.PendingCount{}, fmt.Errorf("pending count: %w", err)
	}
	return count, nil
}
