package mongostore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserDocumentToUser(t *testing.T) {
	id := primitive.NewObjectID()
	sub1 := primitive.NewObjectID()
	sub2 := primitive.NewObjectID()

	user := userDocument{
		ID:          id,
		Username:    "Logan",
		Password:    "$2a$10$hash",
		Name:        "James Howlett",
		Nickname:    "Wolverine",
		Power:       []string{"Regeneration"},
		IsActive:    true,
		Subscribers: []primitive.ObjectID{sub1, sub2},
	}.toUser()

	if user.ID != id.Hex() {
		t.Fatalf("unexpected id: %q", user.ID)
	}
	if user.PasswordHash != "$2a$10$hash" {
		t.Fatalf("password hash not mapped")
	}
	if len(user.Subscribers) != 2 || user.Subscribers[0] != sub1.Hex() || user.Subscribers[1] != sub2.Hex() {
		t.Fatalf("subscriber order not preserved: %v", user.Subscribers)
	}
	if user.SubscriptionsAmount() != 2 {
		t.Fatalf("unexpected subscriptions amount: %d", user.SubscriptionsAmount())
	}
}

func TestNonNil(t *testing.T) {
	if got := nonNil(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
