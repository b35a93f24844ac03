package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/models"
)

// MaxMediaBytes bounds a single uploaded file.
const MaxMediaBytes = 10 << 20

const (
	sniffLen          = 512
	multipartOverhead = 1 << 20
)

type mediaKind struct {
	mediaType string
	ext       string
}

// Keyed by http.DetectContentType output. Browser voice recordings are webm
// containers, which sniff as video/webm.
var allowedMedia = map[string]mediaKind{
	"image/png":       {models.MediaImage, ".png"},
	"image/jpeg":      {models.MediaImage, ".jpg"},
	"image/webp":      {models.MediaImage, ".webp"},
	"image/gif":       {models.MediaGIF, ".gif"},
	"video/webm":      {models.MediaAudio, ".webm"},
	"application/ogg": {models.MediaAudio, ".ogg"},
	"audio/mpeg":      {models.MediaAudio, ".mp3"},
	"audio/wave":      {models.MediaAudio, ".wav"},
	"video/mp4":       {models.MediaAudio, ".m4a"},
}

// MediaHandler accepts media uploads for posts.
type MediaHandler struct {
	Storage MediaStorage
}

type mediaResponse struct {
	MediaURL  string `json:"mediaUrl"`
	MediaType string `json:"mediaType"`
}

// Upload handles POST /api/posts/media with a multipart "file" field.
func (h MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Storage == nil {
		respondError(ctx, w, http.StatusServiceUnavailable, "media uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxMediaBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "file must be at most 10 MiB")
			return
		}
		respondError(ctx, w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxMediaBytes {
		respondError(ctx, w, http.StatusRequestEntityTooLarge, "file must be at most 10 MiB")
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		logger.Warn("read upload failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "unable to read file")
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	kind, ok := allowedMedia[contentType]
	if !ok {
		respondError(ctx, w, http.StatusUnsupportedMediaType, "unsupported media type")
		return
	}

	key := fmt.Sprintf("posts/%d/%s%s", userID, uuid.NewString(), kind.ext)
	url, err := h.Storage.Save(ctx, key, contentType, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		logger.Error("store media failed", "key", key, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store media")
		return
	}

	logger.Info("media uploaded", "key", key, "media_type", kind.mediaType, "bytes", header.Size)
	respondJSON(ctx, w, http.StatusCreated, mediaResponse{MediaURL: url, MediaType: kind.mediaType})
}
