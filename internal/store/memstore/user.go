// Package memstore keeps users and posts in process memory. It backs the
// "memory" store driver and the package tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/types"
)

// UserRepository is a mutex-guarded in-memory user collection. Every
// operation runs under the lock, so subscriber set changes are atomic.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]types.User
	order []string
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]types.User),
		now:   time.Now,
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if user := r.users[id]; user.Username == username {
			return cloneUser(user), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users = append(users, cloneUser(user))
		}
	}
	return users, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.order)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit < 1 || end > total {
		end = total
	}

	users := make([]types.User, 0, end-offset)
	for _, id := range r.order[offset:end] {
		users = append(users, cloneUser(r.users[id]))
	}
	return users, total, nil
}

func (r *UserRepository) Find(ctx context.Context, filter types.ProfileFilter) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]types.User, 0)
	for _, id := range r.order {
		user := r.users[id]
		if filter.Matches(user) {
			users = append(users, cloneUser(user))
		}
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}

	now := r.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Subscribers = nil

	r.users[user.ID] = cloneUser(user)
	r.order = append(r.order, user.ID)
	return cloneUser(user), nil
}

// Update writes the profile fields of user. Username, password hash and
// subscribers are left untouched.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}

	current.Name = user.Name
	current.Nickname = user.Nickname
	current.Description = user.Description
	current.Power = append([]string(nil), user.Power...)
	current.IsActive = user.IsActive
	current.UpdatedAt = r.now()

	r.users[current.ID] = current
	return cloneUser(current), nil
}

func (r *UserRepository) SetAvatar(ctx context.Context, userID, avatar string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	previous := current.Avatar
	current.Avatar = avatar
	current.UpdatedAt = r.now()
	r.users[userID] = current
	return previous, nil
}

// Delete removes the user and sweeps its id out of every subscriber set.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for key, user := range r.users {
		if user.HasSubscriber(id) {
			user.Subscribers = without(user.Subscribers, id)
			r.users[key] = user
		}
	}
	return nil
}

func (r *UserRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]types.User)
	r.order = nil
	return nil
}

func (r *UserRepository) AddSubscriber(ctx context.Context, userID, subscriberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := r.users[subscriberID]; !ok {
		return store.ErrNotFound
	}
	if user.HasSubscriber(subscriberID) {
		return store.ErrAlreadyMember
	}
	user.Subscribers = append(append([]string(nil), user.Subscribers...), subscriberID)
	r.users[userID] = user
	return nil
}

func (r *UserRepository) RemoveSubscriber(ctx context.Context, userID, subscriberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Subscribers = without(user.Subscribers, subscriberID)
	r.users[userID] = user
	return nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func cloneUser(u types.User) types.User {
	u.Power = append([]string(nil), u.Power...)
	u.Subscribers = append([]string(nil), u.Subscribers...)
	return u
}
