package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/heroverse/apiserver/internal/media"
	"github.com/heroverse/apiserver/types"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// ObjectStore is the subset of object storage used for avatars.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// AccountService manages a user's own profile.
type AccountService struct {
	users         UserRepository
	objects       ObjectStore
	events        EventSink
	logger        *zap.Logger
	publicBaseURL   string
	avatarSize      int
	avatarMaxPixels int
}

func NewAccountService(
	users UserRepository,
	objects ObjectStore,
	events EventSink,
	logger *zap.Logger,
	publicBaseURL string,
	avatarSize int,
	avatarMaxPixels int,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if avatarSize < 1 {
		avatarSize = 256
	}
	if avatarMaxPixels < 1 {
		avatarMaxPixels = media.DefaultMaxPixels
	}
	return &AccountService{
		users:           users,
		objects:         objects,
		events:          events,
		logger:          logger,
		publicBaseURL:   strings.TrimRight(publicBaseURL, "/"),
		avatarSize:      avatarSize,
		avatarMaxPixels: avatarMaxPixels,
	}
}

// UpdateProfile applies a partial update to the caller's profile.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, patch types.ProfilePatch) (types.Account, error) {
	if patch.Empty() {
		return types.Account{}, invalid("no fields to update")
	}
	if patch.Nickname != nil && strings.TrimSpace(*patch.Nickname) == "" {
		return types.Account{}, invalid("nickname cannot be empty")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Account{}, err
	}
	patch.Apply(&user)

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return types.Account{}, err
	}
	emit(ctx, s.events, s.logger, types.EventUserUpdated, userID, userID)
	return types.NewAccount(updated), nil
}

// UploadAvatar resizes the uploaded image, stores it, and points the
// user's avatar at the stored object.
func (s *AccountService) UploadAvatar(ctx context.Context, userID string, data []byte) (types.Account, error) {
	if s.objects == nil {
		return types.Account{}, errors.New("object storage is not configured")
	}
	if len(data) == 0 {
		return types.Account{}, invalid("image is required")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return types.Account{}, err
	}

	encoded, err := media.ResizeAvatar(data, s.avatarSize, s.avatarMaxPixels)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return types.Account{}, invalid("unsupported image format")
		}
		return types.Account{}, err
	}

	key := fmt.Sprintf("avatars/%s/%s.png", userID, ksuid.New().String())
	if err := s.objects.Put(ctx, key, bytes.NewReader(encoded), int64(len(encoded)), media.AvatarContentType); err != nil {
		return types.Account{}, fmt.Errorf("store avatar: %w", err)
	}

	previous, err := s.users.SetAvatar(ctx, userID, s.publicBaseURL+"/"+key)
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn("delete orphaned avatar failed", zap.String("key", key), zap.Error(delErr))
		}
		return types.Account{}, err
	}
	updated, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Account{}, err
	}

	if oldKey, ok := s.objectKey(previous); ok {
		if err := s.objects.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("delete previous avatar failed", zap.String("key", oldKey), zap.Error(err))
		}
	}

	emit(ctx, s.events, s.logger, types.EventUserAvatarUpdated, userID, userID)
	return types.NewAccount(updated), nil
}

// Delete removes the caller's account. The store drops the id from every
// other user's subscriber set.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	emit(ctx, s.events, s.logger, types.EventUserDeleted, userID, userID)
	return nil
}

// objectKey maps an avatar URL back to a key in our storage. URLs that
// point elsewhere (seeded avatars, external links) are not ours to delete.
func (s *AccountService) objectKey(avatarURL string) (string, bool) {
	prefix := s.publicBaseURL + "/"
	if avatarURL == "" || !strings.HasPrefix(avatarURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(avatarURL, prefix)
	if !strings.HasPrefix(key, "avatars/") {
		return "", false
	}
	return key, true
}
