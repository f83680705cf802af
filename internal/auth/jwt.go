// Package auth issues and checks the credentials the API accepts: JWT access
// tokens and the one-time confirmation codes exchanged for them.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /auth/signup  → account row + confirmation code, code is emailed
//  2. POST /auth/token   → username + code exchanged for a signed JWT
//  3. Every later request carries "Authorization: Bearer <jwt>"; the
//     middleware verifies it and puts the caller's Actor in the context
//
// Tokens are HS256, carrying the account ID as "sub" and an expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. Tokens it issues expire after ttl.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate signs an HS256 access token whose subject is accountID.
func (s *TokenService) Generate(accountID string) (string, error) {
	return s.GenerateWithDuration(accountID, s.ttl)
}

// GenerateWithDuration is Generate with an explicit lifetime.
func (s *TokenService) GenerateWithDuration(accountID string, d time.Duration) (string, error) {
	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    s.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the account ID in its "sub" claim.
//
// jwt.WithValidMethods pins HS256, which shuts out "alg: none" and
// algorithm-confusion tokens.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrTokenInvalid)
	}
	return c.Subject, nil
}
