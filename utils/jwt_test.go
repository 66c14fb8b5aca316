package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/inkblog/config"
)

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := GenerateToken(7, "alice", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseTokenExpired(t *testing.T) {
	tok, err := GenerateToken(7, "alice", "user", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(tok)
	assert.Error(t, err)
}

func TestParseTokenWrongSecret(t *testing.T) {
	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = ParseToken(tok)
	assert.Error(t, err)
}

func TestParseTokenForeignIssuer(t *testing.T) {
	claims := Claims{UserID: 1, Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Get().JWTSecret))
	require.NoError(t, err)
	_, err = ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
