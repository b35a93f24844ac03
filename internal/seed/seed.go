// Package seed fills a development database with fake users, friendships and
// posts. It goes through the same services as the HTTP API, so seeded data obeys
// the normal validation and friendship rules.
package seed

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/lookatme/backend/internal/auth"
	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/posts"
)

// DefaultPassword is the password every seeded account is created with.
const DefaultPassword = "password123"

// UserStore creates accounts.
type UserStore interface {
	Create(ctx context.Context, user models.User) (int64, error)
}

// FriendService sends and accepts friend requests.
type FriendService interface {
	SendRequest(ctx context.Context, userID, targetID int64) (string, error)
	AcceptRequest(ctx context.Context, userID, fromUserID int64) error
}

// PostService publishes posts.
type PostService interface {
	Create(ctx context.Context, authorID int64, in posts.Input) (models.Post, error)
}

// Options controls how much data is generated.
type Options struct {
	Users          int
	FriendsPerUser int
	PostsPerUser   int
	// EmailDomain is appended to generated addresses.
	EmailDomain string
}

// Result counts what was created.
type Result struct {
	Users     int
	Accepted  int
	Pending   int
	Posts     int
	FirstUser string
}

func (o Options) withDefaults() Options {
	if o.Users <= 0 {
		o.Users = 20
	}
	if o.FriendsPerUser < 0 {
		o.FriendsPerUser = 0
	}
	if o.FriendsPerUser >= o.Users {
		o.FriendsPerUser = o.Users - 1
	}
	if o.PostsPerUser < 0 {
		o.PostsPerUser = 0
	}
	if o.EmailDomain == "" {
		o.EmailDomain = "seed.lookatme.local"
	}
	return o
}

// Factory generates and persists fake data.
type Factory struct {
	users   UserStore
	friends FriendService
	posts   PostService
	faker   *gofakeit.Faker
}

// NewFactory binds a factory to the stores it writes through. A non-zero seed makes
// the generated data reproducible.
func NewFactory(users UserStore, friends FriendService, posts PostService, seed int64) *Factory {
	return &Factory{users: users, friends: friends, posts: posts, faker: gofakeit.New(seed)}
}

// Run creates opts.Users accounts, sends a request from each one to the next
// opts.FriendsPerUser accounts, accepts all of them except those whose target
// index is a multiple of three, and writes opts.PostsPerUser posts per account.
func (f *Factory) Run(ctx context.Context, opts Options) (Result, error) {
	opts = opts.withDefaults()

	hashed, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return Result{}, fmt.Errorf("hash seed password: %w", err)
	}

	var res Result
	ids := make([]int64, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user := f.buildUser(i, hashed, opts.EmailDomain)
		id, err := f.users.Create(ctx, user)
		if err != nil {
			return res, fmt.Errorf("create user %s: %w", user.Email, err)
		}
		if i == 0 {
			res.FirstUser = user.Email
		}
		ids = append(ids, id)
		res.Users++
	}

	for i, from := range ids {
		for step := 1; step <= opts.FriendsPerUser && i+step < len(ids); step++ {
			to := ids[i+step]
			if _, err := f.friends.SendRequest(ctx, from, to); err != nil {
				return res, fmt.Errorf("request %d -> %d: %w", from, to, err)
			}
			if (i+step)%3 == 0 {
				res.Pending++
				continue
			}
			if err := f.friends.AcceptRequest(ctx, to, from); err != nil {
				return res, fmt.Errorf("accept %d -> %d: %w", from, to, err)
			}
			res.Accepted++
		}
	}

	for _, id := range ids {
		for p := 0; p < opts.PostsPerUser; p++ {
			if _, err := f.posts.Create(ctx, id, f.buildPost()); err != nil {
				return res, fmt.Errorf("create post for %d: %w", id, err)
			}
			res.Posts++
		}
	}

	return res, nil
}

func (f *Factory) buildUser(i int, hashedPassword, domain string) models.User {
	name := f.faker.Name()
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	bio := f.faker.Sentence(8)
	avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID())
	status := models.StatusOffline
	if f.faker.Bool() {
		status = models.StatusOnline
	}
	return models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s.%d@%s", local, i+1, domain),
		Password: hashedPassword,
		Avatar:   &avatar,
		Bio:      &bio,
		Status:   status,
		Role:     models.RoleUser,
	}
}

func (f *Factory) buildPost() posts.Input {
	in := posts.Input{Content: truncate(f.faker.Sentence(f.faker.Number(3, 12)), posts.MaxContentLength)}
	switch f.faker.Number(0, 5) {
	case 0:
		in.MediaType = models.MediaImage
		in.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
	case 1:
		in.MediaType = models.MediaAudio
		in.MediaURL = fmt.Sprintf("https://media.lookatme.local/seed/%s.webm", f.faker.UUID())
		d := int64(f.faker.Number(1, 120))
		in.AudioDuration = &d
	}
	return in
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
