package membership

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice", NormalizeKey("ALICE"))
	assert.Equal(t, "straße", NormalizeKey("STRAßE"))
	assert.Equal(t, "", NormalizeKey(""))
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 100 {
		token, err := GenerateToken()
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, tokenSize)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestPasswordHasher(t *testing.T) {
	t.Parallel()

	h := passwordHasher{cost: bcrypt.MinCost}

	hash, salt, err := h.hash("Secr3t!")
	require.NoError(t, err)
	assert.NotEmpty(t, salt)
	assert.True(t, h.verify(hash, salt, "Secr3t!"))
	assert.False(t, h.verify(hash, salt, "secr3t!"))
	assert.False(t, h.verify(hash, "other-salt", "Secr3t!"))
	assert.False(t, h.verify("", salt, "Secr3t!"))
	assert.False(t, h.verify(hash, salt, ""))

	hash2, salt2, err := h.hash("Secr3t!")
	require.NoError(t, err)
	assert.NotEqual(t, salt, salt2)
	assert.NotEqual(t, hash, hash2)

	long := strings.Repeat("p", 200)
	hash, salt, err = h.hash(long)
	require.NoError(t, err)
	assert.True(t, h.verify(hash, salt, long))
	assert.False(t, h.verify(hash, salt, long[:199]))
}

func TestPasswordPolicy_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		want     error
	}{
		{"default ok", DefaultPasswordPolicy(), "abcdef", nil},
		{"default short", DefaultPasswordPolicy(), "abcde", ErrPasswordTooShort},
		{"counts runes", PasswordPolicy{MinLength: 3}, "äöü", nil},
		{"symbols ok", PasswordPolicy{MinNonAlphanumeric: 2}, "ab!#", nil},
		{"symbols missing", PasswordPolicy{MinNonAlphanumeric: 2}, "ab!c", ErrPasswordNeedsSymbols},
		{"pattern ok", PasswordPolicy{StrengthPattern: `\d`}, "abc1", nil},
		{"pattern mismatch", PasswordPolicy{StrengthPattern: `\d`}, "abcd", ErrPasswordPatternMismatch},
		{"bad pattern", PasswordPolicy{StrengthPattern: `(`}, "abcd", ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.policy.Check(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ApplicationName = strings.Repeat("a", 257)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.BcryptCost = 2
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Policy.StrengthPattern = "["
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Policy.MinLength = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestPartialError(t *testing.T) {
	t.Parallel()

	err := &PartialError{Op: "add", Applied: []string{"a"}, Failed: []string{"b", "c"}, Err: ErrStorageUnavailable}
	assert.Equal(t, "membership: add partially applied (applied: [a], failed: [b, c]): membership: storage unavailable", err.Error())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
