package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Issuer is stamped on every agent token and required on validation.
const Issuer = "soccer-proxy"

// Claims identify the player an agent token was minted for.
type Claims struct {
	Team string `json:"team"`
	Unum int    `json:"unum"`
	jwt.RegisteredClaims
}

// Is reports whether the claims were minted for team/unum.
func (c *Claims) Is(team string, unum int) bool {
	return c != nil && c.Team == team && c.Unum == unum
}

// JWTManager mints and checks HS256 agent tokens with a shared secret.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		ttl:    15 * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(5*time.Second),
		),
	}
}

// WithTTL sets how long minted tokens stay valid. Non-positive values are
// ignored.
func (m *JWTManager) WithTTL(d time.Duration) *JWTManager {
	if d > 0 {
		m.ttl = d
	}
	return m
}

// Subject is the token subject for an agent.
func Subject(team string, unum int) string {
	return fmt.Sprintf("%s/%d", team, unum)
}

// GenerateAgentToken signs a token for team/unum and returns its expiry.
func (m *JWTManager) GenerateAgentToken(team string, unum int) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Team: team,
		Unum: unum,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   Subject(team, unum),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign agent token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken checks signature, issuer and expiry and returns the claims.
// Every failure maps to ErrMissingToken or ErrInvalidToken.
func (m *JWTManager) ValidateToken(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
