package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	alice := &domain.User{ID: 7, Username: "alice"}

	tok, expires, err := svc.Issue(alice)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, int64(7), claims.UserID())
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	alice := &domain.User{ID: 7, Username: "alice"}
	tok, _, err := svc.Issue(alice)
	require.NoError(t, err)

	t.Run("WrongKey", func(t *testing.T) {
		_, err := NewTokenService("other", time.Hour).Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		expired, _, err := NewTokenService("secret", -time.Minute).Issue(alice)
		require.NoError(t, err)
		_, err = svc.Verify(expired)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "alice",
			ID:        "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Verify(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("ForeignIssuer", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    "elsewhere",
			Subject:   "alice",
			ID:        "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Verify(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoExpiry", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "alice", ID: "7"}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Verify(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("MissingAccount", func(t *testing.T) {
		anon, _, err := svc.Issue(&domain.User{Username: "ghost"})
		require.NoError(t, err)
		_, err = svc.Verify(anon)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
