// Package auth resolves clan leadership from HS256 bearer tokens.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrDisabled     = errors.New("token signing disabled: no secret configured")
)

// Clan roles carried in the role claim.
const (
	RoleLeader   = "leader"
	RoleCoLeader = "coLeader"
	RoleElder    = "elder"
	RoleMember   = "member"
)

const defaultTokenDuration = 24 * time.Hour

// Claims is the JWT payload. Subject holds the player tag or name of the caller.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IsLeadership reports whether the role may see and record leadership data.
func (c *Claims) IsLeadership() bool {
	return c != nil && (c.Role == RoleLeader || c.Role == RoleCoLeader)
}

// Actor names the caller for RecordedBy fields.
func (c *Claims) Actor() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// Service signs and validates tokens.
type Service struct {
	secret        []byte
	tokenDuration time.Duration
}

// NewService creates a service. An empty secret disables every token.
func NewService(secret string, tokenDuration time.Duration) *Service {
	if tokenDuration <= 0 {
		tokenDuration = defaultTokenDuration
	}
	return &Service{secret: []byte(secret), tokenDuration: tokenDuration}
}

// Enabled reports whether a secret is configured.
func (s *Service) Enabled() bool { return len(s.secret) > 0 }

// GenerateToken signs a token for subject with the given clan role.
func (s *Service) GenerateToken(subject, role string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken parses and verifies a token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FromRequest validates the request's bearer token. It returns nil claims and
// no error when the header is absent.
func (s *Service) FromRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, ErrInvalidToken
	}
	return s.ValidateToken(token)
}
