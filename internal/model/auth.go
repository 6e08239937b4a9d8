package model

import "github.com/golang-jwt/jwt/v5"

// Error kinds carried in 401 bodies. TokenExpired is the distinguished
// signal that tells clients to attempt a refresh instead of logging out.
const (
	ErrKindTokenExpired = "token_expired"
	ErrKindTokenInvalid = "token_invalid"
)

// Token type values carried in the "typ" claim. Validation rejects a token
// presented for the other role, so a refresh token cannot pass as a bearer
// token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims are JWT claims for short-lived access tokens
type AccessClaims struct {
	UserID    int64  `json:"uid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims are JWT claims for long-lived refresh tokens. TokenID is
// the allowlist key; a refresh token whose ID has been revoked is dead.
type RefreshClaims struct {
	UserID    int64  `json:"uid"`
	TokenID   string `json:"jti"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RegisterRequest is the request body for user registration
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest exchanges a refresh token for a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the replacement access token
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// LogoutRequest revokes a refresh token server-side
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse is the error body shape for every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
