package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCode is returned when the confirmation code or its token does not check out.
	ErrInvalidCode = errors.New("invalid confirmation code")
	// ErrCodeExpired is returned when the pending registration is past its deadline.
	ErrCodeExpired = errors.New("confirmation code expired")
)

// PendingRegistration is a validated sign-up awaiting its emailed code.
type PendingRegistration struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

type signupClaims struct {
	PendingRegistration
	CodeHash string `json:"code_hash"`
	jwt.RegisteredClaims
}

// SignupTokens issues and redeems HS256 tokens carrying a pending registration.
// The code itself is never stored, only an HMAC bound to the token id.
type SignupTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignupTokens creates a SignupTokens signing with secret; tokens live for ttl.
func NewSignupTokens(secret string, ttl time.Duration) *SignupTokens {
	return &SignupTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs p together with a digest of code.
func (s *SignupTokens) Issue(p PendingRegistration, code string) (string, error) {
	now := s.now()
	id := uuid.NewString()
	claims := signupClaims{
		PendingRegistration: p,
		CodeHash:            s.codeHash(id, code),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign registration token: %w", err)
	}
	return signed, nil
}

// Redeem verifies token and code and returns the pending registration.
func (s *SignupTokens) Redeem(tokenString, code string) (*PendingRegistration, error) {
	var claims signupClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCodeExpired
		}
		return nil, ErrInvalidCode
	}

	want, err := hex.DecodeString(claims.CodeHash)
	if err != nil {
		return nil, ErrInvalidCode
	}
	got, _ := hex.DecodeString(s.codeHash(claims.ID, code))
	if !hmac.Equal(got, want) {
		return nil, ErrInvalidCode
	}
	return &claims.PendingRegistration, nil
}

func (s *SignupTokens) codeHash(id, code string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewCode returns a random six-digit confirmation code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
