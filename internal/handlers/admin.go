package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lookatme/backend/internal/admin"
	"github.com/lookatme/backend/internal/auth"
	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/repositories"
)

// AdminHandler serves the moderation API.
type AdminHandler struct {
	Admin         AdminService
	Users         UserStore
	Sessions      SessionManager
	Limiter       RateLimiter
	SecureCookies bool
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// Login handles POST /admin/api/login. Only admins may sign in here; the role is
// checked before the password.
func (h AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "admin-login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("admin login lookup failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to sign in")
			return
		}
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if user.Role != models.RoleAdmin {
		logger.Warn("non-admin attempted admin login", "user_id", user.ID, "role", user.Role)
		respondError(ctx, w, http.StatusForbidden, "admin access required")
		return
	}

	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		logger.Warn("admin login password mismatch", "user_id", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("admin session issue failed", "error", err, "user_id", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	logger.Info("admin signed in", "user_id", user.ID)
	setAccessCookie(w, tokens, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, authResponse{User: &user, Tokens: tokens})
}

// Logout handles POST /admin/api/logout: the refresh token is revoked, the admin
// marked offline and the access cookie cleared.
func (h AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	AuthHandler{Users: h.Users, Sessions: h.Sessions, SecureCookies: h.SecureCookies}.Logout(w, r)
}

// Stats handles GET /admin/api/stats.
func (h AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.Admin.Statistics(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("load statistics failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	respondJSON(ctx, w, http.StatusOK, stats)
}

// ListUsers handles GET /admin/api/users.
func (h AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.Admin.ListUsers(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list users failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load users")
		return
	}
	respondJSON(ctx, w, http.StatusOK, users)
}

// ChangeRole handles POST /admin/api/users/{id}/role.
func (h AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	targetID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.Admin.ChangeRole(ctx, actorID, targetID, req.Role)
	switch {
	case err == nil:
		respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
	case errors.Is(err, admin.ErrInvalidRole):
		respondError(ctx, w, http.StatusBadRequest, "role must be one of user, premium, advertiser, admin")
	case errors.Is(err, admin.ErrSelfDemotion):
		respondError(ctx, w, http.StatusBadRequest, "cannot remove your own admin role")
	case errors.Is(err, admin.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "user not found")
	default:
		logging.FromContext(ctx).Error("change role failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change role")
	}
}

// DeleteUser handles DELETE /admin/api/users/{id}.
func (h AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	targetID, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.Admin.DeleteUser(ctx, actorID, targetID)
	switch {
	case err == nil:
		respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
	case errors.Is(err, admin.ErrSelfDeletion):
		respondError(ctx, w, http.StatusBadRequest, "cannot delete your own account")
	case errors.Is(err, admin.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "user not found")
	default:
		logging.FromContext(ctx).Error("delete user failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete user")
	}
}

// ListPosts handles GET /admin/api/posts.
func (h AdminHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.Admin.ListPosts(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list posts failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load posts")
		return
	}
	respondJSON(ctx, w, http.StatusOK, list)
}

// DeletePost handles DELETE /admin/api/posts/{id}.
func (h AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postID, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.Admin.DeletePost(ctx, postID)
	switch {
	case err == nil:
		respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
	case errors.Is(err, admin.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "post not found")
	default:
		logging.FromContext(ctx).Error("delete post failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete post")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
