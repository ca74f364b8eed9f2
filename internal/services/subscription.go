package services

import (
	"context"
	"errors"

	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/types"
	"go.uber.org/zap"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage applies the listing defaults: values below 1 fall back to
// page 1 and size 10, and size is capped at MaxPageSize.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// SubscriptionService maintains the subscriber relation between users and
// the views derived from it.
type SubscriptionService struct {
	users  UserRepository
	events EventSink
	logger *zap.Logger
}

func NewSubscriptionService(users UserRepository, events EventSink, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{users: users, events: events, logger: logger}
}

// Subscribe adds actorID to the subscribers of targetID and returns the
// target's updated subscriber ids. A repeated subscribe is rejected with
// ErrAlreadySubscribed and leaves the set unchanged.
func (s *SubscriptionService) Subscribe(ctx context.Context, actorID, targetID string) ([]string, error) {
	if actorID == targetID {
		return nil, ErrSelfSubscription
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	if err := s.users.AddSubscriber(ctx, targetID, actorID); err != nil {
		if errors.Is(err, store.ErrAlreadyMember) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.events, s.logger, types.EventUserSubscribed, targetID, actorID)
	return subscriberIDs(target), nil
}

// Unsubscribe removes actorID from the subscribers of targetID. Removing an
// id that is not present succeeds without changing the set.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, actorID, targetID string) ([]string, error) {
	if actorID == targetID {
		return nil, ErrSelfSubscription
	}

	if err := s.users.RemoveSubscriber(ctx, targetID, actorID); err != nil {
		return nil, err
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.events, s.logger, types.EventUserUnsubscribed, targetID, actorID)
	return subscriberIDs(target), nil
}

// GetSubscribers returns one page of userID's subscribers in insertion order.
func (s *SubscriptionService) GetSubscribers(ctx context.Context, userID string, page, size int) (types.Page[types.SubscriberSummary], error) {
	page, size = NormalizePage(page, size)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Page[types.SubscriberSummary]{}, err
	}

	total := len(user.Subscribers)
	start, end := types.PageBounds(page, size, total)

	resolved, err := s.users.GetByIDs(ctx, user.Subscribers[start:end])
	if err != nil {
		return types.Page[types.SubscriberSummary]{}, err
	}

	items := make([]types.SubscriberSummary, 0, len(resolved))
	for _, subscriber := range resolved {
		items = append(items, types.NewSubscriberSummary(subscriber))
	}

	return types.Page[types.SubscriberSummary]{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: types.PageCount(total, size),
	}, nil
}

// GetSelf returns the caller's full record with its derived subscriber count.
func (s *SubscriptionService) GetSelf(ctx context.Context, userID string) (types.Account, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Account{}, err
	}
	return types.NewAccount(user), nil
}

// ListUsers returns one page of public profiles in creation order, along
// with the total number of users.
func (s *SubscriptionService) ListUsers(ctx context.Context, page, size int) ([]types.Profile, int, error) {
	page, size = NormalizePage(page, size)

	users, total, err := s.users.List(ctx, types.PageOffset(page, size), size)
	if err != nil {
		return nil, 0, err
	}

	profiles := make([]types.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, types.NewProfile(user))
	}
	return profiles, total, nil
}

func subscriberIDs(user types.User) []string {
	if user.Subscribers == nil {
		return []string{}
	}
	return user.Subscribers
}
