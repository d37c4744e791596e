package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agegate/pkg/domain"
	dErrors "agegate/pkg/domain-errors"
)

var (
	jwtService = NewJWTService("test-signing-key", "agegate-test")
	cartID     = domain.CartID("cart-42")
	issuedAt   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt  = issuedAt.Add(time.Hour)
)

func Test_GenerateSessionToken(t *testing.T) {
	token, err := jwtService.GenerateSessionToken(cartID, "bank-1", issuedAt, expiresAt)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token, issuedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, cartID, claims.CartID())
	assert.Equal(t, "bank-1", claims.AuthServerID)
	assert.Equal(t, "agegate-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt.Time))
}

func Test_GenerateSessionToken_UniqueIDs(t *testing.T) {
	a, err := jwtService.GenerateSessionToken(cartID, "bank-1", issuedAt, expiresAt)
	require.NoError(t, err)
	b, err := jwtService.GenerateSessionToken(cartID, "bank-1", issuedAt, expiresAt)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string", issuedAt)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeSessionMismatch, "invalid session token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateSessionToken(cartID, "bank-1", issuedAt, expiresAt)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token, expiresAt.Add(time.Second))
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeSessionMismatch, "session token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "agegate-test")
	token, err := other.GenerateSessionToken(cartID, "bank-1", issuedAt, expiresAt)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token, issuedAt)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionMismatch))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewJWTService("test-signing-key", "someone-else")
	token, err := other.GenerateSessionToken(cartID, "bank-1", issuedAt, expiresAt)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token, issuedAt)
	require.Error(t, err)
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(cartID),
			Issuer:    "agegate-test",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token, issuedAt)
	require.Error(t, err)
}
