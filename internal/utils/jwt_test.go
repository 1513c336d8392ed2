package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "manager", 15)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	uid, role, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.Equal(t, "manager", role)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 1, "admin", 15)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":  float64(7),
		"role": "plumber",
		"exp":  time.Now().Add(-time.Minute).Unix(),
		"iat":  time.Now().Add(-time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, _, err = ParseAccessToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAccessTokenRejectsNonHMAC(t *testing.T) {
	// alg=none tokens must never validate
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": float64(1), "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHasNoRole(t *testing.T) {
	tok, err := NewRefreshToken("refresh-secret", 9, 7)
	require.NoError(t, err)

	uid, err := ParseRefreshToken("refresh-secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), uid)

	// a refresh token must not pass as an access token even with the right
	// secret, because it carries no role claim
	_, _, err = ParseAccessToken("refresh-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenSecretsIndependent(t *testing.T) {
	tok, err := NewRefreshToken("refresh-secret", 9, 7)
	require.NoError(t, err)

	_, err = ParseRefreshToken("access-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashRefreshRaw(t *testing.T) {
	a := HashRefreshRaw("token-one")
	b := HashRefreshRaw("token-one")
	c := HashRefreshRaw("token-two")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // hex-encoded sha256
	assert.NotContains(t, a, "token-one")
}
