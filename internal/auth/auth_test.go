package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := NewTokenManager(testSecret, "newsboard", 30*24*time.Hour)

	token, err := m.Issue(42, "ada")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "newsboard", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenManager_VerifyRejects(t *testing.T) {
	m := NewTokenManager(testSecret, "newsboard", time.Hour)

	signRaw := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", signRaw(jwt.MapClaims{"sub": "1", "iss": "newsboard", "exp": future}, "other-secret")},
		{"expired", signRaw(jwt.MapClaims{"sub": "1", "iss": "newsboard", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)},
		{"missing subject", signRaw(jwt.MapClaims{"iss": "newsboard", "exp": future}, testSecret)},
		{"non numeric subject", signRaw(jwt.MapClaims{"sub": "abc", "iss": "newsboard", "exp": future}, testSecret)},
		{"wrong issuer", signRaw(jwt.MapClaims{"sub": "1", "iss": "elsewhere", "exp": future}, testSecret)},
		{"no expiry", signRaw(jwt.MapClaims{"sub": "1", "iss": "newsboard"}, testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestTokenManager_SignUsesTTL(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewTokenManager(testSecret, "newsboard", time.Hour)
	m.now = func() time.Time { return fixed }

	token, err := m.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.Itoa(7)}}, 2*time.Hour)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())

	m.now = func() time.Time { return fixed.Add(3 * time.Hour) }
	_, err = m.Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_EmptySecret(t *testing.T) {
	_, err := NewTokenManager("", "newsboard", time.Hour).Issue(1, "ada")
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	ok, err := h.Compare(hash, "hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong-password1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("not-a-bcrypt-hash", "hunter22")
	assert.Error(t, err)
}
