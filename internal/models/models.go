package models

import "time"

// User statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User roles.
const (
	RoleUser       = "user"
	RolePremium    = "premium"
	RoleAdvertiser = "advertiser"
	RoleAdmin      = "admin"
)

// Roles lists every assignable role.
var Roles = []string{RoleUser, RolePremium, RoleAdvertiser, RoleAdmin}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents an account within the LookAtMe platform.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Avatar    *string   `db:"avatar" json:"avatar"`
	Bio       *string   `db:"bio" json:"bio"`
	Status    string    `db:"status" json:"status"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Friend edge states. An edge starts pending and can only move to accepted.
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
	// FriendNone is reported by search when no edge exists in either direction.
	FriendNone = "none"
)

// FriendEdge is a directed friendship row: UserID requested, FriendID is the target.
type FriendEdge struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FriendID  int64     `db:"friend_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// FriendSummary counts accepted friendships and how many of those friends are online.
type FriendSummary struct {
	Total  int `db:"total" json:"total"`
	Online int `db:"online" json:"online"`
}

// Friend is a user connected to the viewer by an accepted edge.
type Friend struct {
	ID         int64   `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Avatar     *string `db:"avatar" json:"avatar"`
	Status     string  `db:"status" json:"status"`
	RelationID int64   `db:"relation_id" json:"relationId"`
}

// UserSearchResult is a user matched by name, annotated with the viewer's relation to them.
type UserSearchResult struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Avatar       *string `db:"avatar" json:"avatar"`
	Status       string  `db:"status" json:"status"`
	FriendStatus string  `db:"friend_status" json:"friendStatus"`
}

// IncomingRequest is a pending edge targeting the viewer.
type IncomingRequest struct {
	ID         int64     `db:"id" json:"id"`
	FromUserID int64     `db:"from_user_id" json:"fromUserId"`
	Name       string    `db:"name" json:"name"`
	Avatar     *string   `db:"avatar" json:"avatar"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// OutgoingRequest is a pending edge requested by the viewer.
type OutgoingRequest struct {
	ID        int64     `db:"id" json:"id"`
	ToUserID  int64     `db:"to_user_id" json:"toUserId"`
	Name      string    `db:"name" json:"name"`
	Avatar    *string   `db:"avatar" json:"avatar"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PendingRequests groups both directions of unanswered requests.
type PendingRequests struct {
	Incoming []IncomingRequest `json:"incoming"`
	Outgoing []OutgoingRequest `json:"outgoing"`
}

// PendingCount counts unanswered requests in both directions.
type PendingCount struct {
	Incoming int `db:"incoming" json:"incoming"`
	Outgoing int `db:"outgoing" json:"outgoing"`
}

// Post media types.
const (
	MediaImage = "image"
	MediaGIF   = "gif"
	MediaAudio = "audio"
)

// Post is a feed entry joined with its author's display fields.
type Post struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"userId"`
	UserName      string    `db:"user_name" json:"userName"`
	UserAvatar    *string   `db:"user_avatar" json:"userAvatar"`
	Content       string    `db:"content" json:"content"`
	MediaType     *string   `db:"media_type" json:"mediaType"`
	MediaURL      *string   `db:"media_url" json:"mediaUrl"`
	AudioDuration *int64    `db:"audio_duration" json:"audioDuration"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// NewPost carries validated input for a post insert.
type NewPost struct {
	UserID        int64
	Content       string
	MediaType     *string
	MediaURL      *string
	AudioDuration *int64
	CreatedAt     time.Time
}

// AdminPost is a moderation listing row.
type AdminPost struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	UserName  string    `db:"user_name" json:"userName"`
	UserEmail string    `db:"user_email" json:"userEmail"`
	Content   string    `db:"content" json:"content"`
	MediaType *string   `db:"media_type" json:"mediaType"`
	MediaURL  *string   `db:"media_url" json:"mediaUrl"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Statistics summarises platform activity for the admin dashboard.
type Statistics struct {
	TotalUsers      int    `db:"total_users" json:"totalUsers"`
	TotalPosts      int    `db:"total_posts" json:"totalPosts"`
	OnlineUsers     int    `db:"online_users" json:"onlineUsers"`
	AdminUsers      int    `db:"admin_users" json:"adminUsers"`
	PremiumUsers    int    `db:"premium_users" json:"premiumUsers"`
	AdvertiserUsers int    `db:"advertiser_users" json:"advertiserUsers"`
	RecentUsers     []User `db:"-" json:"recentUsers"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
