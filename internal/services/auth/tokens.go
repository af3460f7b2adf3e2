package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"krostyshop/internal/domain/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carried in every token we issue
type Claims struct {
	Role    user.Role `json:"role"`
	Purpose string    `json:"purpose"`
	// Stamp fingerprints the password hash the token was issued against
	Stamp string `json:"stp"`
	jwt.RegisteredClaims
}

// UserID parses the subject
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenIssuer signs and verifies HS256 tokens
type TokenIssuer struct {
	secret []byte
	issuer string
}

func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: "krostyshop"}
}

// Issue signs a token for u valid for ttl from now
func (t *TokenIssuer) Issue(u *user.User, purpose string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		Role:    u.Role,
		Purpose: purpose,
		Stamp:   t.stamp(u.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, expiry and purpose
func (t *TokenIssuer) Parse(raw, purpose string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Current reports whether c was issued against u's present password
func (t *TokenIssuer) Current(c *Claims, u *user.User) bool {
	return hmac.Equal([]byte(c.Stamp), []byte(t.stamp(u.PasswordHash)))
}

func (t *TokenIssuer) stamp(passwordHash string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(passwordHash))
	return hex.EncodeToString(mac.Sum(nil)[:12])
}
