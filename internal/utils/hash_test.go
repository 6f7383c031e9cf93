package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}

func TestHashPassword_Success(t *testing.T) {
	// Arrange
	h := newTestHasher()

	// Act
	hash, err := h.HashPassword("admin123")

	// Assert
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"), "bcrypt hash should carry its identifier")
	assert.NotEqual(t, "admin123", hash)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h := newTestHasher()

	hash1, err := h.HashPassword("samepassword")
	require.NoError(t, err)
	hash2, err := h.HashPassword("samepassword")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2, "same password should hash differently")
	assert.True(t, h.VerifyPassword("samepassword", hash1))
	assert.True(t, h.VerifyPassword("samepassword", hash2))
}

func TestHashPassword_TooLong(t *testing.T) {
	h := newTestHasher()

	_, err := h.HashPassword(strings.Repeat("a", 73))

	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyPassword(t *testing.T) {
	h := newTestHasher()
	hash, err := h.HashPassword("test123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct password", "test123", hash, true},
		{"wrong password", "test124", hash, false},
		{"case sensitive", "TEST123", hash, false},
		{"empty password", "", hash, false},
		{"empty hash", "test123", "", false},
		{"malformed hash", "test123", "not-a-bcrypt-hash", false},
		{"truncated hash", "test123", hash[:20], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.VerifyPassword(tt.password, tt.hash))
		})
	}
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.MaxCost, NewPasswordHasher(99).cost)
	assert.Equal(t, 12, NewPasswordHasher(12).cost)
}

func BenchmarkHashPassword(b *testing.B) {
	h := NewPasswordHasher(DefaultHashCost)
	for i := 0; i < b.N; i++ {
		_, _ = h.HashPassword("benchmark-password")
	}
}
