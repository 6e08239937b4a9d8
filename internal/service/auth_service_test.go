package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewrz/word-soul/internal/model"
)

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) (int64, error) {
	r.nextID++
	user.ID = r.nextID
	r.users[user.Username] = user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.users[username], nil
}

type fakeTokenCache struct {
	tokens map[string]int64
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{tokens: make(map[string]int64)}
}

func (c *fakeTokenCache) Add(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	c.tokens[tokenID] = userID
	return nil
}

func (c *fakeTokenCache) UserID(ctx context.Context, tokenID string) (int64, bool, error) {
	userID, ok := c.tokens[tokenID]
	return userID, ok, nil
}

func (c *fakeTokenCache) Remove(ctx context.Context, tokenID string) error {
	delete(c.tokens, tokenID)
	return nil
}

func newAuthFixture(accessTTL time.Duration) (*AuthService, *fakeUserRepo, *fakeTokenCache) {
	users := newFakeUserRepo()
	tokens := newFakeTokenCache()
	svc := NewAuthService(users, tokens, "test-secret", accessTTL, 24*time.Hour)
	return svc, users, tokens
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc, users, _ := newAuthFixture(time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))
	assert.ErrorIs(t, svc.Register(ctx, "玩家一号", "another"), ErrUsernameTaken)

	// The stored hash is never the raw password.
	assert.NotEqual(t, "secret", users.users["玩家一号"].PasswordHash)
}

func TestLoginMintsValidTokenPair(t *testing.T) {
	svc, _, tokens := newAuthFixture(time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))

	resp, err := svc.Login(ctx, "玩家一号", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)

	// The refresh token's id is allowlisted.
	assert.Len(t, tokens.tokens, 1)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newAuthFixture(time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))

	_, err := svc.Login(ctx, "玩家一号", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "不存在的人", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpiredAccessTokenIsDistinguishedFromGarbage(t *testing.T) {
	svc, _, _ := newAuthFixture(-time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))
	resp, err := svc.Login(ctx, "玩家一号", "secret")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(resp.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshIssuesNewAccessTokenWithoutRotation(t *testing.T) {
	svc, _, tokens := newAuthFixture(time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))
	resp, err := svc.Login(ctx, "玩家一号", "secret")
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)

	// The refresh token stays valid: a second refresh also works.
	_, err = svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Len(t, tokens.tokens, 1)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, tokens := newAuthFixture(time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))
	resp, err := svc.Login(ctx, "玩家一号", "secret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.RefreshToken))
	assert.Empty(t, tokens.tokens)

	_, err = svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshRejectsForgedToken(t *testing.T) {
	svc, _, _ := newAuthFixture(time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))
	resp, err := svc.Login(ctx, "玩家一号", "secret")
	require.NoError(t, err)

	forger := NewAuthService(newFakeUserRepo(), newFakeTokenCache(), "other-secret", time.Minute, 24*time.Hour)
	_, err = forger.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// An access token is not a refresh token.
	_, err = svc.Refresh(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenIsNotABearerToken(t *testing.T) {
	svc, _, _ := newAuthFixture(time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "玩家一号", "secret"))
	resp, err := svc.Login(ctx, "玩家一号", "secret")
	require.NoError(t, err)

	// The refresh token is signed with the same secret and carries uid,
	// but its type claim keeps it out of the access path.
	_, err = svc.ValidateAccessToken(resp.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.TokenTypeAccess, claims.TokenType)
}
