package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateAndValidate(t *testing.T) {
	tok, err := GenerateToken("user-42", secret, time.Hour)
	require.NoError(t, err)

	key, err := ValidateToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", key)
}

func TestValidateToken_Rejects(t *testing.T) {
	good, err := GenerateToken("user-42", secret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(good, []byte("other-secret"))
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	s, err := expired.SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateToken(s, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateToken(noSubject, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateToken("garbage", secret)
	assert.Error(t, err)
}

func TestGenerateToken_Validation(t *testing.T) {
	_, err := GenerateToken(" ", secret, time.Hour)
	assert.Error(t, err)
	_, err = GenerateToken("k", nil, time.Hour)
	assert.Error(t, err)
}
