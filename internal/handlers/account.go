package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/heroverse/apiserver/internal/services"
	"github.com/heroverse/apiserver/types"
	"go.uber.org/zap"
)

const (
	formFieldImage     = "image"
	maxMultipartMemory = 8 << 20
)

// AccountHandler serves the authenticated account and subscription routes.
type AccountHandler struct {
	subscriptions  *services.SubscriptionService
	accounts       *services.AccountService
	logger         *zap.Logger
	maxAvatarBytes int64
}

func NewAccountHandler(
	subscriptions *services.SubscriptionService,
	accounts *services.AccountService,
	logger *zap.Logger,
	maxAvatarBytes int64,
) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = 5 << 20
	}
	return &AccountHandler{
		subscriptions:  subscriptions,
		accounts:       accounts,
		logger:         logger,
		maxAvatarBytes: maxAvatarBytes,
	}
}

// AccountRouter registers account routes. Every route requires auth.
func AccountRouter(r chi.Router, handler *AccountHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)

	r.Get("/me", handler.Me)
	r.Patch("/me", handler.UpdateMe)
	r.Delete("/me", handler.DeleteMe)
	r.Get("/subscribers", handler.Subscribers)
	r.Post("/subscribe", handler.Subscribe)
	r.Post("/unsubscribe", handler.Unsubscribe)
	r.Post("/upload_image", handler.UploadImage)
	r.Get("/{userID}", handler.GetAccount)
}

// UsersRouter registers the user listing.
func UsersRouter(r chi.Router, handler *AccountHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/", handler.ListUsers)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	account, err := h.subscriptions.GetSelf(r.Context(), identity.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	account, err := h.subscriptions.GetSelf(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var patch types.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, err := h.accounts.UpdateProfile(r.Context(), identity.ID, patch)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.accounts.Delete(r.Context(), identity.ID); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)

	profiles, total, err := h.subscriptions.ListUsers(r.Context(), page, size)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list users")
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, profiles)
}

func (h *AccountHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	page, size := parsePagination(r)
	result, err := h.subscriptions.GetSubscribers(r.Context(), identity.ID, page, size)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load subscribers")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AccountHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.changeSubscription(w, r, true)
}

func (h *AccountHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.changeSubscription(w, r, false)
}

func (h *AccountHandler) changeSubscription(w http.ResponseWriter, r *http.Request, subscribe bool) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req SubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.ProfileID = strings.TrimSpace(req.ProfileID)
	if req.ProfileID == "" {
		writeError(w, http.StatusBadRequest, "profileId is required")
		return
	}

	var (
		ids     []string
		message string
	)
	if subscribe {
		ids, err = h.subscriptions.Subscribe(r.Context(), identity.ID, req.ProfileID)
		message = "subscribed"
	} else {
		ids, err = h.subscriptions.Unsubscribe(r.Context(), identity.ID, req.ProfileID)
		message = "unsubscribed"
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update subscription")
		return
	}
	writeJSON(w, http.StatusOK, SubscriptionResponse{Message: message, Subscribers: ids})
}

func (h *AccountHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes+(1<<20))
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxAvatarBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if int64(len(data)) > h.maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	account, err := h.accounts.UploadAvatar(r.Context(), identity.ID, data)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to upload image")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type SubscriptionRequest struct {
	ProfileID string `json:"profileId"`
}

type SubscriptionResponse struct {
	Message     string   `json:"message"`
	Subscribers []string `json:"subscribers"`
}
