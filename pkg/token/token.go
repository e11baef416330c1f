// Package token issues and validates the bearer tokens the in-page agent
// presents on the ingest API. Token auth is optional: with no secret
// configured, the ingest surface is open (local single-user deployments).
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the agent token claims. AgentID identifies one agent install.
type Claims struct {
	AgentID string `json:"agent_id"`
	jwt.RegisteredClaims
}

// Manager handles agent token operations.
type Manager struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewManager creates a token manager. An empty secret disables token auth.
func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		expiry: expiry,
		issuer: "transcriptpro",
	}
}

// Enabled reports whether token auth is configured.
func (m *Manager) Enabled() bool {
	return len(m.secret) > 0
}

// Issue generates a signed token for an agent.
func (m *Manager) Issue(agentID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		AgentID: agentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   agentID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a token, returning its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
