package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/posts"
)

// PostHandler provides post creation and the feed.
type PostHandler struct {
	Posts PostService
}

type createPostRequest struct {
	Content       string `json:"content"`
	MediaType     string `json:"mediaType"`
	MediaURL      string `json:"mediaUrl"`
	AudioDuration *int64 `json:"audioDuration"`
}

// Create handles POST /api/posts/create.
func (h PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if isBodyTooLarge(err) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.Posts.Create(ctx, userID, posts.Input{
		Content:       req.Content,
		MediaType:     req.MediaType,
		MediaURL:      req.MediaURL,
		AudioDuration: req.AudioDuration,
	})
	if err != nil {
		var verr *posts.ValidationError
		switch {
		case errors.As(err, &verr):
			respondError(ctx, w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, posts.ErrAuthorNotFound):
			respondError(ctx, w, http.StatusUnauthorized, "authenticated user not found")
		default:
			logging.FromContext(ctx).Error("create post failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create post")
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, post)
}

// Feed handles GET /api/posts/feed?limit=&offset=.
func (h PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var page posts.Page
	query := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(ctx, w, http.StatusBadRequest, name+" must be an integer")
			return
		}
		*dst = v
	}

	feed, err := h.Posts.ListForUserAndFriends(ctx, userID, page)
	if err != nil {
		logging.FromContext(ctx).Error("load feed failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load feed")
		return
	}
	respondJSON(ctx, w, http.StatusOK, feed)
}
