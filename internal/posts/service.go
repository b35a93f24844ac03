// Package posts validates new posts and serves the friend-scoped feed.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/repositories"
)

const (
	// MaxContentLength is the longest post body accepted, in characters.
	MaxContentLength = 100

	// DefaultFeedLimit is the page size used when the caller gives none.
	DefaultFeedLimit = 50
	// MaxFeedLimit caps the page size a caller may request.
	MaxFeedLimit = 100
)

// ErrAuthorNotFound is returned when the author no longer exists.
var ErrAuthorNotFound = errors.New("author not found")

// ValidationError describes why a post was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Input is the user-supplied part of a new post.
type Input struct {
	Content       string
	MediaType     string
	MediaURL      string
	AudioDuration *int64
}

// Page selects a window of the feed.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultFeedLimit
	case p.Limit > MaxFeedLimit:
		p.Limit = MaxFeedLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Store is the persistence the service depends on.
type Store interface {
	Create(ctx context.Context, post models.NewPost) (models.Post, error)
	ListForUserAndFriends(ctx context.Context, userID int64, limit, offset int) ([]models.Post, error)
}

// Service creates posts and reads the feed.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithNowFunc overrides the clock used to stamp new posts.
func (s *Service) WithNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Validate normalizes in and checks it against the post rules.
func Validate(in Input) (Input, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.MediaType = strings.ToLower(strings.TrimSpace(in.MediaType))
	in.MediaURL = strings.TrimSpace(in.MediaURL)

	if utf8.RuneCountInString(in.Content) > MaxContentLength {
		return in, invalid("content", fmt.Sprintf("Post content must be at most %d characters", MaxContentLength))
	}
	if in.Content == "" && in.MediaType == "" && in.MediaURL == "" {
		return in, invalid("content", "Post content or media is required")
	}
	if in.MediaURL != "" && in.MediaType == "" {
		return in, invalid("mediaType", "Media type is required when media is attached")
	}

	switch in.MediaType {
	case "":
	case models.MediaImage, models.MediaGIF:
		if in.MediaURL == "" {
			return in, invalid("mediaUrl", "Media URL is required for images")
		}
	case models.MediaAudio:
		if in.MediaURL == "" {
			return in, invalid("mediaUrl", "Media URL is required for audio")
		}
	default:
		return in, invalid("mediaType", "Media type must be one of image, gif or audio")
	}

	if in.AudioDuration != nil {
		if in.MediaType != models.MediaAudio {
			return in, invalid("audioDuration", "Audio duration is only allowed for audio posts")
		}
		if *in.AudioDuration < 0 {
			return in, invalid("audioDuration", "Audio duration cannot be negative")
		}
	}

	return in, nil
}

// Create validates in and stores it as a post by authorID.
func (s *Service) Create(ctx context.Context, authorID int64, in Input) (models.Post, error) {
	ctx, span := logging.StartSpan(ctx, "posts.Create")
	defer span.End()

	in, err := Validate(in)
	if err != nil {
		return models.Post{}, err
	}

	post := models.NewPost{
		UserID:        authorID,
		Content:       in.Content,
		AudioDuration: in.AudioDuration,
		CreatedAt:     s.now().UTC(),
	}
	if in.MediaType != "" {
		post.MediaType = &in.MediaType
		post.MediaURL = &in.MediaURL
	}

	created, err := s.store.Create(ctx, post)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Post{}, ErrAuthorNotFound
		}
		span.RecordError(err)
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	logging.FromContext(ctx).Info("post created", "post_id", created.ID, "user_id", authorID)
	return created, nil
}

// ListForUserAndFriends returns the feed for userID: their own posts and those of
// accepted friends, newest first.
func (s *Service) ListForUserAndFriends(ctx context.Context, userID int64, page Page) ([]models.Post, error) {
	ctx, span := logging.StartSpan(ctx, "posts.ListForUserAndFriends")
	defer span.End()

	page = page.normalize()
	posts, err := s.store.ListForUserAndFriends(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return posts, nil
}
