package handlers

import (
	"errors"
	"net/http"

	"github.com/heroverse/apiserver/internal/services"
	"github.com/heroverse/apiserver/internal/store"
	"go.uber.org/zap"
)

// writeServiceError maps a service error to a status code and body.
// Unrecognized errors become a 500 with fallback as the message; the cause
// is logged and never sent to the client.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var validation *services.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrMissingCredential):
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, services.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrSelfSubscription),
		errors.Is(err, services.ErrAlreadySubscribed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	default:
		if logger != nil {
			logger.Error(fallback, zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
