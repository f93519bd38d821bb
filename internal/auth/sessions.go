package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession covers every way a token can be unusable: malformed,
// expired, tampered with, or signed with a different secret.
var ErrInvalidSession = errors.New("invalid session")

// Claims carries the account ID alongside the registered claim set.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Sessions issues and verifies the signed tokens kept in the session cookie.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl}
}

// TTL reports the token lifetime, which doubles as the cookie max age.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

func (s *Sessions) Issue(userID int64) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (s *Sessions) Verify(token string) (int64, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidSession
	}
	if claims.UserID <= 0 {
		return 0, ErrInvalidSession
	}
	return claims.UserID, nil
}
