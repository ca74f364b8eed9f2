package services

import (
	"context"

	"github.com/heroverse/apiserver/types"
)

// UserRepository defines persistence operations for users.
//
// AddSubscriber and RemoveSubscriber must be atomic with respect to each
// other: implementations apply them as a single set-union or set-difference
// write rather than a read-modify-write of the whole subscriber list.
// Update writes editable profile fields only and never touches subscribers
// or the avatar. SetAvatar swaps the avatar alone and returns the previous
// value.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Find(ctx context.Context, filter types.ProfileFilter) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SetAvatar(ctx context.Context, userID, avatar string) (string, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	AddSubscriber(ctx context.Context, userID, subscriberID string) error
	RemoveSubscriber(ctx context.Context, userID, subscriberID string) error
}
