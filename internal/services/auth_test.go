package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heroverse/apiserver/config"
	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/internal/store/memstore"
	"github.com/heroverse/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

func newTestTokens(t *testing.T) *TokenService {
	t.Helper()

	tokens, err := NewTokenService(config.AuthConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return tokens
}

func newTestAuth(t *testing.T) (*AuthService, *memstore.UserRepository) {
	t.Helper()

	repo := memstore.NewUserRepository()
	svc := NewAuthService(repo, newTestTokens(t), nil, nil)
	svc.hashCost = bcrypt.MinCost
	return svc, repo
}

func TestLoginIssuesTokenPair(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	account, err := svc.Register(ctx, RegisterRequest{Username: "user1", Password: "123", Name: "Wade Wilson", Nickname: "Deadpool"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Login(ctx, "user1", "123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	identity, err := svc.Authenticate(pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.ID != account.ID || identity.Username != "user1" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	if _, err := svc.Register(ctx, RegisterRequest{Username: "user1", Password: "123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "user1", "wrong")
	_, unknownUser := svc.Login(ctx, "nobody", "123")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v and %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("login errors differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	if _, err := svc.Register(ctx, RegisterRequest{Username: "user1", Password: "123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterRequest{Username: "user1", Password: "456"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterRequiresCredentials(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Register(context.Background(), RegisterRequest{Username: "  "})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuth(t)

	if _, err := svc.Register(ctx, RegisterRequest{Username: "user1", Password: "123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := repo.GetByUsername(ctx, "user1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.PasswordHash == "123" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("123")) != nil {
		t.Fatalf("password was not hashed")
	}
}

func TestRegisterEmitsCreated(t *testing.T) {
	sink := &recordingSink{}
	svc := NewAuthService(memstore.NewUserRepository(), newTestTokens(t), sink, nil)
	svc.hashCost = bcrypt.MinCost

	if _, err := svc.Register(context.Background(), RegisterRequest{Username: "user1", Password: "123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	got := sink.eventTypes()
	if len(got) != 1 || got[0] != types.EventUserCreated {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestRefreshAccessToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	if _, err := svc.Register(ctx, RegisterRequest{Username: "user1", Password: "123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(ctx, "user1", "123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, err := svc.RefreshAccessToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := svc.Authenticate(access); err != nil {
		t.Fatalf("refreshed token rejected: %v", err)
	}

	if _, err := svc.RefreshAccessToken(""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := svc.RefreshAccessToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestAuthenticateRejectsMissingAndGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)

	if _, err := svc.Authenticate(""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := svc.Authenticate("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
