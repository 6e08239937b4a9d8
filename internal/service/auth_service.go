package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rewrz/word-soul/internal/cache"
	"github.com/rewrz/word-soul/internal/model"
	"github.com/rewrz/word-soul/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("refresh token revoked")
)

// AuthService handles registration, login and the token lifecycle
type AuthService struct {
	users      repository.UserRepo
	tokens     cache.TokenCache
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepo, tokens cache.TokenCache, secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		jwtSecret:  []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.users.Create(ctx, &model.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	return err
}

// Login validates credentials and mints an access/refresh token pair
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.mintAccessToken(user.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, tokenID, err := s.mintRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Add(ctx, tokenID, user.ID, s.refreshTTL); err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until logout or
// expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	userID, ok, err := s.tokens.UserID(ctx, claims.TokenID)
	if err != nil {
		return "", err
	}
	if !ok || userID != claims.UserID {
		return "", ErrTokenRevoked
	}

	return s.mintAccessToken(claims.UserID)
}

// Logout revokes the refresh token. Access tokens are left to expire on
// their own; they are short-lived by design.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		// An unusable token needs no revocation.
		return nil
	}
	return s.tokens.Remove(ctx, claims.TokenID)
}

// ValidateAccessToken validates a bearer token and returns its claims.
// Expiry is reported as ErrTokenExpired so callers can distinguish it from
// garbage tokens.
func (s *AuthService) ValidateAccessToken(tokenString string) (*model.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.AccessClaims)
	if !ok || !token.Valid || claims.TokenType != model.TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) mintAccessToken(userID int64) (string, error) {
	claims := &model.AccessClaims{
		UserID:    userID,
		TokenType: model.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) mintRefreshToken(userID int64) (string, string, error) {
	tokenID := uuid.New().String()
	claims := &model.RefreshClaims{
		UserID:    userID,
		TokenID:   tokenID,
		TokenType: model.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.refreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", "", err
	}
	return signed, tokenID, nil
}

func (s *AuthService) parseRefreshToken(tokenString string) (*model.RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.RefreshClaims)
	if !ok || !token.Valid || claims.TokenID == "" || claims.TokenType != model.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
