// Package session issues and validates the JWT carried by signed-in users.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"roastradar/internal/apperr"
)

// Claims is the session payload. Handlers read these fields; they never
// re-derive the current user from anywhere else.
type Claims struct {
	UserID              string `json:"id"`
	Username            string `json:"username"`
	IsVerified          bool   `json:"isVerified"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
	jwt.RegisteredClaims
}

// Manager signs and validates session tokens with a shared HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the given account.
func (m *Manager) Issue(userID, username string, isVerified, isAcceptingMessages bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:              userID,
		Username:            username,
		IsVerified:          isVerified,
		IsAcceptingMessages: isAcceptingMessages,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "roastradar",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "could not sign session token", err)
	}
	return signed, nil
}

// Validate parses a token string and returns its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid session token", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.New(apperr.Unauthenticated, "invalid session token")
	}
	return claims, nil
}
