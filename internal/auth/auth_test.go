package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(testSecret, 0)
	assert.Error(t, err)

	svc, err := NewTokenService(testSecret, 100*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Hour, svc.TTL())
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc, err := NewTokenService(testSecret, 100*time.Hour)
	require.NoError(t, err)

	token, err := svc.Issue(42)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestTokenService_Verify_Rejects(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	validClaims := func(mutate func(*jwt.RegisteredClaims)) jwt.RegisteredClaims {
		now := time.Now()
		c := jwt.RegisteredClaims{
			Subject:   strconv.Itoa(7),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		}
		mutate(&c)
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed", token: "malformed.token.here"},
		{name: "empty", token: ""},
		{
			name:  "wrong secret",
			token: sign(validClaims(func(*jwt.RegisteredClaims) {}), jwt.SigningMethodHS256, []byte("another-secret")),
		},
		{
			name: "expired",
			token: sign(validClaims(func(c *jwt.RegisteredClaims) {
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			}), jwt.SigningMethodHS256, []byte(testSecret)),
		},
		{
			name: "missing expiry",
			token: sign(validClaims(func(c *jwt.RegisteredClaims) {
				c.ExpiresAt = nil
			}), jwt.SigningMethodHS256, []byte(testSecret)),
		},
		{
			name: "wrong issuer",
			token: sign(validClaims(func(c *jwt.RegisteredClaims) {
				c.Issuer = "someone-else"
			}), jwt.SigningMethodHS256, []byte(testSecret)),
		},
		{
			name: "wrong audience",
			token: sign(validClaims(func(c *jwt.RegisteredClaims) {
				c.Audience = jwt.ClaimStrings{"other-client"}
			}), jwt.SigningMethodHS256, []byte(testSecret)),
		},
		{
			name: "non numeric subject",
			token: sign(validClaims(func(c *jwt.RegisteredClaims) {
				c.Subject = "ann"
			}), jwt.SigningMethodHS256, []byte(testSecret)),
		},
		{
			name:  "none algorithm",
			token: sign(validClaims(func(*jwt.RegisteredClaims) {}), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := svc.Verify(tt.token)
			assert.Error(t, err)
			assert.Zero(t, userID)
		})
	}
}

func TestTokenService_ExpiresAfterTTL(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }
	token, err := svc.Issue(1)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	_, err = svc.Verify(token)
	assert.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "longpass1")
	require.NoError(t, err)
	assert.NotEqual(t, "longpass1", hash)

	other, err := h.Hash(ctx, "longpass1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "each hash carries its own salt")

	assert.NoError(t, h.Compare(ctx, hash, "longpass1"))
	assert.ErrorIs(t, h.Compare(ctx, hash, "wrongpass"), ErrPasswordMismatch)
	assert.ErrorIs(t, h.CompareDummy(ctx, "longpass1"), ErrPasswordMismatch)
}

func TestPasswordHasher_CancelledContext(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "longpass1")
	assert.ErrorIs(t, err, context.Canceled)
}
