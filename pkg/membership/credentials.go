package membership

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	saltSize  = 16
	tokenSize = 16
)

// NormalizeKey lower-cases a natural key (user name, provider, provider user id) independently of locale.
func NormalizeKey(s string) string {
	// Casers are stateful, so one is created per call.
	return cases.Lower(language.Und).String(s)
}

// GenerateToken returns a URL-safe random token carrying 16 bytes of entropy.
func GenerateToken() (string, error) {
	b := make([]byte, tokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func generateSalt() (string, error) {
	b := make([]byte, saltSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// passwordHasher hashes password+salt with bcrypt. The salted password is first reduced with SHA-256 so
// that long passwords are not silently truncated at bcrypt's 72-byte input limit.
type passwordHasher struct {
	cost int
}

func (h passwordHasher) prehash(password, salt string) []byte {
	sum := sha256.Sum256([]byte(password + salt))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// hash returns a fresh salt and the hash of password under it.
func (h passwordHasher) hash(password string) (hash, salt string, err error) {
	salt, err = generateSalt()
	if err != nil {
		return "", "", err
	}
	b, err := bcrypt.GenerateFromPassword(h.prehash(password, salt), h.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), salt, nil
}

func (h passwordHasher) verify(hash, salt, password string) bool {
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), h.prehash(password, salt)) == nil
}
