// Package callertoken issues and validates the bearer tokens relayers and
// principals use to authenticate HTTP calls. The token binds a caller to a
// principal address; what that principal may do is the access gate's concern.
package callertoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"veristry/pkg/domain"
)

// Manager signs and validates caller tokens with a shared HS256 key.
type Manager struct {
	key []byte
}

// NewManager creates a token manager from the configured signing key.
func NewManager(key string) *Manager {
	return &Manager{key: []byte(key)}
}

// Issue creates a token whose subject is the caller's principal address.
func (m *Manager) Issue(principal domain.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   principal.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign caller token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning the caller principal.
func (m *Manager) ValidateToken(tokenString string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.key, nil
	})
	if err != nil {
		return domain.ZeroPrincipal, fmt.Errorf("parse caller token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return domain.ZeroPrincipal, fmt.Errorf("invalid caller token")
	}
	principal, err := domain.ParsePrincipal(claims.Subject)
	if err != nil {
		return domain.ZeroPrincipal, fmt.Errorf("invalid token subject: %w", err)
	}
	return principal, nil
}
