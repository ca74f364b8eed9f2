package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/heroverse/apiserver/config"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Identity is the claim carried by every token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues and verifies HS256 tokens. Access and refresh tokens
// are signed with separate secrets and tagged with a typ claim.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	refreshSecret := cfg.RefreshSecret
	if strings.TrimSpace(refreshSecret) == "" {
		refreshSecret = cfg.AccessSecret
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// IssuePair signs a fresh access and refresh token for identity.
func (s *TokenService) IssuePair(identity Identity) (TokenPair, error) {
	access, err := s.IssueAccess(identity)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issue(identity, tokenTypeRefresh, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) IssueAccess(identity Identity) (string, error) {
	return s.issue(identity, tokenTypeAccess, s.accessSecret, s.accessTTL)
}

// VerifyAccess returns the identity of a valid access token.
func (s *TokenService) VerifyAccess(tokenString string) (Identity, error) {
	return s.verify(tokenString, tokenTypeAccess, s.accessSecret)
}

// VerifyRefresh returns the identity of a valid refresh token.
func (s *TokenService) VerifyRefresh(tokenString string) (Identity, error) {
	return s.verify(tokenString, tokenTypeRefresh, s.refreshSecret)
}

func (s *TokenService) issue(identity Identity, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		ID:        identity.ID,
		Username:  identity.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) verify(tokenString, tokenType string, secret []byte) (Identity, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return Identity{}, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.TokenType)
	}
	if strings.TrimSpace(claims.ID) == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Identity{ID: claims.ID, Username: claims.Username}, nil
}
