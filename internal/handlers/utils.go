package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/heroverse/apiserver/internal/services"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func withIdentity(ctx context.Context, identity services.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func identityFromContext(ctx context.Context) (services.Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(services.Identity)
	if !ok || strings.TrimSpace(identity.ID) == "" {
		return services.Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return decoder.Decode(dst)
}

// parsePagination reads page and size. Missing or unparseable values come
// back as 0 and are replaced by the service defaults.
func parsePagination(r *http.Request) (page, size int) {
	query := r.URL.Query()
	page, _ = strconv.Atoi(strings.TrimSpace(query.Get("page")))

	rawSize := strings.TrimSpace(query.Get("size"))
	if rawSize == "" {
		rawSize = strings.TrimSpace(query.Get("limit"))
	}
	size, _ = strconv.Atoi(rawSize)
	return page, size
}
