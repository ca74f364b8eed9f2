package types

import "time"

// UserEventType names a change to a user record.
type UserEventType string

const (
	EventUserSubscribed    UserEventType = "user.subscribed"
	EventUserUnsubscribed  UserEventType = "user.unsubscribed"
	EventUserUpdated       UserEventType = "user.updated"
	EventUserAvatarUpdated UserEventType = "user.avatar_updated"
	EventUserCreated       UserEventType = "user.created"
	EventUserDeleted       UserEventType = "user.deleted"
)

// UserEvent is published whenever a user record changes.
type UserEvent struct {
	// Type identifies the kind of change.
	Type UserEventType `json:"type"`

	// UserID is the user whose record changed.
	UserID string `json:"userId"`

	// ActorID is the user who caused the change. For subscription events
	// it is the subscriber; otherwise it equals UserID.
	ActorID string `json:"actorId,omitempty"`

	// OccurredAt is when the change was applied.
	OccurredAt time.Time `json:"occurredAt"`
}
