package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests-only"

func signToken(t *testing.T, secret string, c claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidate_Success(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	now := time.Now().UTC()

	tokenString := signToken(t, testSecret, claims{
		UserID: "user-1",
		Email:  "ana@example.com",
		Role:   "client",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	})

	got, err := verifier.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "client", got.Role)
}

func TestValidate_Expired(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	past := time.Now().UTC().Add(-time.Hour)

	tokenString := signToken(t, testSecret, claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	})

	_, err := verifier.Validate(tokenString)
	assert.Error(t, err)
}

func TestValidate_WrongSecret(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	now := time.Now().UTC()

	tokenString := signToken(t, "another-secret-entirely-not-the-same", claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})

	_, err := verifier.Validate(tokenString)
	assert.Error(t, err)
}

func TestValidate_Garbage(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	_, err := verifier.Validate("not-a-jwt")
	assert.Error(t, err)
}
