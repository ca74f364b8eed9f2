package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/types"
)

func mustCreate(t *testing.T, repo *UserRepository, username string) types.User {
	t.Helper()

	user, err := repo.Create(context.Background(), types.User{Username: username, Name: username})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return user
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	repo := NewUserRepository()
	mustCreate(t, repo, "logan")

	_, err := repo.Create(context.Background(), types.User{Username: "logan"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddSubscriberIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	wade := mustCreate(t, repo, "wade")
	logan := mustCreate(t, repo, "logan")

	if err := repo.AddSubscriber(ctx, wade.ID, logan.ID); err != nil {
		t.Fatalf("add subscriber: %v", err)
	}
	if err := repo.AddSubscriber(ctx, wade.ID, logan.ID); !errors.Is(err, store.ErrAlreadyMember) {
		t.Fatalf("expected already member, got %v", err)
	}

	got, err := repo.GetByID(ctx, wade.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Subscribers) != 1 || got.Subscribers[0] != logan.ID {
		t.Fatalf("unexpected subscribers: %v", got.Subscribers)
	}
}

func TestAddSubscriberUnknownUser(t *testing.T) {
	repo := NewUserRepository()
	wade := mustCreate(t, repo, "wade")

	if err := repo.AddSubscriber(context.Background(), "missing", wade.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateKeepsSubscribers(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	wade := mustCreate(t, repo, "wade")
	logan := mustCreate(t, repo, "logan")
	if err := repo.AddSubscriber(ctx, wade.ID, logan.ID); err != nil {
		t.Fatalf("add subscriber: %v", err)
	}

	stale := wade
	stale.Nickname = "Deadpool"
	updated, err := repo.Update(ctx, stale)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Nickname != "Deadpool" {
		t.Fatalf("nickname not updated: %q", updated.Nickname)
	}
	if len(updated.Subscribers) != 1 {
		t.Fatalf("update must not overwrite subscribers, got %v", updated.Subscribers)
	}
}

func TestSetAvatarSwapsOnlyAvatar(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	wade := mustCreate(t, repo, "wade")

	previous, err := repo.SetAvatar(ctx, wade.ID, "https://cdn.test/a.png")
	if err != nil {
		t.Fatalf("set avatar: %v", err)
	}
	if previous != "" {
		t.Fatalf("unexpected previous avatar %q", previous)
	}

	stale := wade
	stale.Nickname = "Deadpool"
	if _, err := repo.Update(ctx, stale); err != nil {
		t.Fatalf("update: %v", err)
	}

	previous, err = repo.SetAvatar(ctx, wade.ID, "https://cdn.test/b.png")
	if err != nil {
		t.Fatalf("set avatar: %v", err)
	}
	if previous != "https://cdn.test/a.png" {
		t.Fatalf("stale update reverted avatar, previous=%q", previous)
	}

	if _, err := repo.SetAvatar(ctx, "missing", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteCascadesSubscriberReferences(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	wade := mustCreate(t, repo, "wade")
	logan := mustCreate(t, repo, "logan")
	tony := mustCreate(t, repo, "tony")
	_ = repo.AddSubscriber(ctx, wade.ID, logan.ID)
	_ = repo.AddSubscriber(ctx, wade.ID, tony.ID)

	if err := repo.Delete(ctx, logan.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := repo.GetByID(ctx, wade.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Subscribers) != 1 || got.Subscribers[0] != tony.ID {
		t.Fatalf("expected only tony to remain, got %v", got.Subscribers)
	}
	if _, err := repo.GetByID(ctx, logan.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted user to be missing, got %v", err)
	}
}

func TestListPaginatesInCreationOrder(t *testing.T) {
	repo := NewUserRepository()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		mustCreate(t, repo, name)
	}

	users, total, err := repo.List(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("unexpected total: %d", total)
	}
	if len(users) != 2 || users[0].Username != "c" || users[1].Username != "d" {
		t.Fatalf("unexpected page: %+v", users)
	}
}
