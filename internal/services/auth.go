package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// comparePassword runs bcrypt even for unknown users so that both login
// failure paths take comparable time.
func comparePassword(hash, password string) error {
	if hash == "" {
		dummyHashOnce.Do(func() {
			dummyHash, _ = bcrypt.GenerateFromPassword([]byte("heroverse"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// RegisterRequest holds the fields accepted at sign-up.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

// AuthService authenticates users and issues tokens.
type AuthService struct {
	users    UserRepository
	tokens   *TokenService
	events   EventSink
	logger   *zap.Logger
	hashCost int
}

func NewAuthService(users UserRepository, tokens *TokenService, events EventSink, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		events:   events,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

// Login verifies credentials and issues an access/refresh token pair.
// An unknown username and a wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return TokenPair{}, err
	}
	if err := comparePassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.tokens.IssuePair(Identity{ID: user.ID, Username: user.Username})
}

// RefreshAccessToken issues a new access token for the identity carried by
// a valid refresh token. The claim is trusted as-is; the store is not
// consulted.
func (s *AuthService) RefreshAccessToken(refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", ErrMissingCredential
	}
	identity, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	return s.tokens.IssueAccess(identity)
}

// Authenticate resolves a bearer token into an identity.
func (s *AuthService) Authenticate(accessToken string) (Identity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return Identity{}, ErrMissingCredential
	}
	return s.tokens.VerifyAccess(accessToken)
}

// Register creates a new account. A taken username yields store.ErrConflict.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (types.Account, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Username == "" || req.Password == "" {
		return types.Account{}, invalid("username and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return types.Account{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     req.Username,
		PasswordHash: string(hashed),
		Name:         req.Name,
		Nickname:     req.Nickname,
		Power:        []string{},
		IsActive:     true,
	})
	if err != nil {
		return types.Account{}, err
	}

	emit(ctx, s.events, s.logger, types.EventUserCreated, user.ID, user.ID)
	return types.NewAccount(user), nil
}

// HashPassword hashes a plaintext password with the service's bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
