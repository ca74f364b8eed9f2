package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/heroverse/apiserver/internal/services"
	"github.com/heroverse/apiserver/types"
	"go.uber.org/zap"
)

// ProfileHandler serves public profile discovery.
type ProfileHandler struct {
	profiles *services.ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles *services.ProfileService, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// ProfileRouter registers profile routes on the given router.
func ProfileRouter(r chi.Router, profiles *services.ProfileService, logger *zap.Logger) {
	handler := NewProfileHandler(profiles, logger)
	r.Get("/", handler.FindProfiles)
}

func (h *ProfileHandler) FindProfiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := types.ProfileFilter{
		Nickname: query.Get("nickname"),
		Power:    query.Get("power"),
	}

	profiles, err := h.profiles.FindProfiles(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to find profiles")
		return
	}
	writeJSON(w, http.StatusOK, ProfileListResponse{Items: profiles})
}

type ProfileListResponse struct {
	Items []types.Profile `json:"items"`
}
