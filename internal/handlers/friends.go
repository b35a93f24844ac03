package handlers

import (
	"errors"
	"net/http"

	"github.com/lookatme/backend/internal/friends"
	"github.com/lookatme/backend/internal/logging"
)

// FriendHandler provides the friend graph endpoints.
type FriendHandler struct {
	Friends FriendService
}

type friendSummaryResponse struct {
	Total           int `json:"total"`
	Online          int `json:"online"`
	PendingIncoming int `json:"pendingIncoming"`
	PendingOutgoing int `json:"pendingOutgoing"`
}

type friendRequestBody struct {
	TargetID int64 `json:"targetId"`
}

type acceptRequestBody struct {
	FromUserID int64 `json:"fromUserId"`
}

// Summary handles GET /api/friends/summary.
func (h FriendHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	summary, err := h.Friends.Summary(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("friend summary failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load friend summary")
		return
	}
	pending, err := h.Friends.PendingCount(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("pending count failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load friend summary")
		return
	}

	respondJSON(ctx, w, http.StatusOK, friendSummaryResponse{
		Total:           summary.Total,
		Online:          summary.Online,
		PendingIncoming: pending.Incoming,
		PendingOutgoing: pending.Outgoing,
	})
}

// List handles GET /api/friends/list?q=.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	list, err := h.Friends.ListFriends(ctx, userID, r.URL.Query().Get("q"))
	if err != nil {
		logging.FromContext(ctx).Error("list friends failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load friends")
		return
	}
	respondJSON(ctx, w, http.StatusOK, list)
}

// Online handles GET /api/friends/online.
func (h FriendHandler) Online(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	list, err := h.Friends.OnlineFriends(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list online friends failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load online friends")
		return
	}
	respondJSON(ctx, w, http.StatusOK, list)
}

// Search handles GET /api/friends/search?q=.
func (h FriendHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	results, err := h.Friends.Search(ctx, userID, r.URL.Query().Get("q"))
	if err != nil {
		logging.FromContext(ctx).Error("search users failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to search users")
		return
	}
	respondJSON(ctx, w, http.StatusOK, results)
}

// Request handles POST /api/friends/request.
func (h FriendHandler) Request(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var body friendRequestBody
	if err := decodeJSON(w, r, &body); err != nil || body.TargetID <= 0 {
		respondError(ctx, w, http.StatusBadRequest, "targetId is required")
		return
	}

	status, err := h.Friends.SendRequest(ctx, userID, body.TargetID)
	switch {
	case err == nil:
		respondJSON(ctx, w, http.StatusOK, successResponse{Success: true, Status: status})
	case errors.Is(err, friends.ErrSelfRequest):
		respondError(ctx, w, http.StatusBadRequest, "Cannot add yourself")
	case errors.Is(err, friends.ErrUserNotFound):
		respondError(ctx, w, http.StatusNotFound, "User not found")
	default:
		respondError(ctx, w, http.StatusInternalServerError, "Failed to send friend request")
	}
}

// Accept handles POST /api/friends/accept.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var body acceptRequestBody
	if err := decodeJSON(w, r, &body); err != nil || body.FromUserID <= 0 {
		respondError(ctx, w, http.StatusBadRequest, "fromUserId is required")
		return
	}

	err := h.Friends.AcceptRequest(ctx, userID, body.FromUserID)
	switch {
	case err == nil:
		respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
	case errors.Is(err, friends.ErrRequestNotFound):
		respondError(ctx, w, http.StatusNotFound, "Friend request not found")
	default:
		respondError(ctx, w, http.StatusInternalServerError, "Failed to accept friend request")
	}
}

// Pending handles GET /api/friends/pending.
func (h FriendHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	pending, err := h.Friends.Pending(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list pending requests failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load pending requests")
		return
	}
	respondJSON(ctx, w, http.StatusOK, pending)
}
