package seed

import (
	"context"
	"testing"

	"github.com/heroverse/apiserver/internal/store/memstore"
)

type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func TestRunSeedsRoster(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	seeder := NewSeeder(repo, plainHasher{}, nil, "http://localhost:3000/assets")

	users, err := seeder.Run(ctx, Roster, true)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(users) != len(Roster) {
		t.Fatalf("expected %d users, got %d", len(Roster), len(users))
	}

	deadpool := users[0]
	if deadpool.Nickname != "Deadpool" || len(deadpool.Subscribers) != 4 {
		t.Fatalf("unexpected deadpool: %+v", deadpool)
	}
	if deadpool.Subscribers[0] != users[1].ID || deadpool.Subscribers[3] != users[4].ID {
		t.Fatalf("subscribers out of order: %v", deadpool.Subscribers)
	}
	if deadpool.PasswordHash != "hashed:123" {
		t.Fatalf("password not hashed through hasher")
	}
	if users[1].Avatar != "http://localhost:3000/assets/wolverine.png" {
		t.Fatalf("unexpected avatar %q", users[1].Avatar)
	}
	if users[2].SubscriptionsAmount() != 0 {
		t.Fatalf("iron man should have no subscribers")
	}
}

func TestRunResetReplacesExisting(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	seeder := NewSeeder(repo, plainHasher{}, nil, "")

	if _, err := seeder.Run(ctx, Roster, false); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if _, err := seeder.Run(ctx, Roster, false); err == nil {
		t.Fatalf("expected duplicate usernames without reset")
	}
	if _, err := seeder.Run(ctx, Roster, true); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	_, total, err := repo.List(ctx, 0, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != len(Roster) {
		t.Fatalf("expected %d users after reset, got %d", len(Roster), total)
	}
}

func TestRunRejectsSelfLink(t *testing.T) {
	roster := []Hero{{Username: "solo", Password: "x", Subscribers: []int{1}}}
	seeder := NewSeeder(memstore.NewUserRepository(), plainHasher{}, nil, "")
	if _, err := seeder.Run(context.Background(), roster, true); err == nil {
		t.Fatalf("expected error for self subscription")
	}
}
