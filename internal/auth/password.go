package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations matches the PBKDF2-SHA256 work factor of current werkzeug releases.
	DefaultIterations = 600000
	saltLength        = 16
	keyLength         = sha256.Size
	saltAlphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ErrMalformedHash is returned when a stored hash is not in pbkdf2:sha256:<iter>$<salt>$<hex> form.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher produces and verifies salted PBKDF2-SHA256 password hashes. The encoded form is
// compatible with werkzeug's generate_password_hash(method="pbkdf2:sha256").
type Hasher struct {
	Iterations int
}

// NewHasher returns a Hasher using DefaultIterations.
func NewHasher() *Hasher {
	return &Hasher{Iterations: DefaultIterations}
}

// Hash derives and encodes a hash for password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt, err := randomSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), h.Iterations, keyLength, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", h.Iterations, salt, hex.EncodeToString(key)), nil
}

// Verify reports whether password matches the encoded hash.
func (h *Hasher) Verify(encoded, password string) (bool, error) {
	method, salt, digest, ok := splitHash(encoded)
	if !ok {
		return false, ErrMalformedHash
	}
	parts := strings.Split(method, ":")
	if len(parts) != 3 || parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return false, ErrMalformedHash
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return false, ErrMalformedHash
	}
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false, ErrMalformedHash
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func splitHash(encoded string) (method, salt, digest string, ok bool) {
	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func randomSalt(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = saltAlphabet[int(b[i])%len(saltAlphabet)]
	}
	return string(b), nil
}
