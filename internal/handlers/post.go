package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/heroverse/apiserver/internal/services"
	"go.uber.org/zap"
)

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	posts  *services.PostService
	logger *zap.Logger
}

func NewPostHandler(posts *services.PostService, logger *zap.Logger) *PostHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostHandler{posts: posts, logger: logger}
}

// PostRouter registers post routes on the given router. Reads are public;
// creating a post requires auth.
func PostRouter(r chi.Router, posts *services.PostService, logger *zap.Logger, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPostHandler(posts, logger)

	r.Get("/", handler.ListPosts)
	r.With(authMiddleware).Post("/", handler.CreatePost)
	r.Get("/{postID}", handler.GetPost)
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)

	result, err := h.posts.List(r.Context(), page, size)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "postID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req CreatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	post, err := h.posts.Create(r.Context(), identity.ID, req.Title, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
