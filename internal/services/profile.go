package services

import (
	"context"

	"github.com/heroverse/apiserver/types"
	"go.uber.org/zap"
)

// ProfileCache stores profile search results keyed by a normalized filter.
type ProfileCache interface {
	Get(ctx context.Context, filter types.ProfileFilter) ([]types.Profile, bool, error)
	Set(ctx context.Context, filter types.ProfileFilter, profiles []types.Profile) error
}

// ProfileService provides public profile discovery.
type ProfileService struct {
	users  UserRepository
	cache  ProfileCache
	logger *zap.Logger
}

// NewProfileService constructs a ProfileService. cache may be nil.
func NewProfileService(users UserRepository, cache ProfileCache, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, cache: cache, logger: logger}
}

// FindProfiles returns every profile whose nickname contains filter.Nickname
// and which has a power tag containing filter.Power, both case-insensitive.
func (s *ProfileService) FindProfiles(ctx context.Context, filter types.ProfileFilter) ([]types.Profile, error) {
	filter = filter.Normalized()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, filter)
		if err != nil {
			s.logger.Warn("profile cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	users, err := s.users.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	profiles := make([]types.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, types.NewProfile(user))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, filter, profiles); err != nil {
			s.logger.Warn("profile cache write failed", zap.Error(err))
		}
	}
	return profiles, nil
}
