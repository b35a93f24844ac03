package handlers

import (
	"net/http"

	"github.com/lookatme/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	DB       Pinger
	Users    UserStore
	Sessions SessionManager
	Friends  FriendService
	Posts    PostService
	Admin    AdminService
	// Media is nil when no object store is configured.
	Media MediaStorage

	AuthLimiter   RateLimiter
	FriendLimiter RateLimiter
	SecureCookies bool

	// Metrics serves the Prometheus exposition on /metrics when set.
	Metrics http.Handler
}

// RegisterRoutes wires the public API into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	auth := AuthHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		Limiter:       deps.AuthLimiter,
		SecureCookies: deps.SecureCookies,
	}
	friends := FriendHandler{Friends: deps.Friends}
	posts := PostHandler{Posts: deps.Posts}
	media := MediaHandler{Storage: deps.Media}

	requireUser := middleware.RequireUser(deps.Sessions)
	protect := func(h http.HandlerFunc) http.Handler { return requireUser(h) }

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/status/database", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}

	mux.HandleFunc("/api/auth/register", auth.Register)
	mux.HandleFunc("/api/auth/login", auth.Login)
	mux.HandleFunc("/api/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/auth/logout", auth.Logout)

	mux.Handle("/api/friends/summary", protect(friends.Summary))
	mux.Handle("/api/friends/list", protect(friends.List))
	mux.Handle("/api/friends/search", protect(friends.Search))
	mux.Handle("/api/friends/request", requireUser(
		middleware.RateLimit(deps.FriendLimiter, "friend-request")(http.HandlerFunc(friends.Request))))
	mux.Handle("/api/friends/accept", protect(friends.Accept))
	mux.Handle("/api/friends/pending", protect(friends.Pending))
	mux.Handle("/api/friends/online", protect(friends.Online))

	mux.Handle("/api/posts/create", protect(posts.Create))
	mux.Handle("/api/posts/feed", protect(posts.Feed))
	mux.Handle("/api/posts/media", protect(media.Upload))
}

// RegisterAdminRoutes wires the admin API into the provided ServeMux. Everything
// except login and logout requires an authenticated admin.
func RegisterAdminRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	admin := AdminHandler{
		Admin:         deps.Admin,
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		Limiter:       deps.AuthLimiter,
		SecureCookies: deps.SecureCookies,
	}

	requireUser := middleware.RequireUser(deps.Sessions)
	requireAdmin := middleware.RequireAdmin(deps.Users)
	protect := func(h http.HandlerFunc) http.Handler { return requireUser(requireAdmin(h)) }

	mux.HandleFunc("/healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}

	mux.HandleFunc("/admin/api/login", admin.Login)
	mux.HandleFunc("/admin/api/logout", admin.Logout)
	mux.Handle("GET /admin/api/stats", protect(admin.Stats))
	mux.Handle("GET /admin/api/users", protect(admin.ListUsers))
	mux.Handle("POST /admin/api/users/{id}/role", protect(admin.ChangeRole))
	mux.Handle("DELETE /admin/api/users/{id}", protect(admin.DeleteUser))
	mux.Handle("GET /admin/api/posts", protect(admin.ListPosts))
	mux.Handle("DELETE /admin/api/posts/{id}", protect(admin.DeletePost))
}
